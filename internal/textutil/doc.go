// Package textutil provides text processing utilities for transcript
// normalization and filename sanitization.
//
// The primary use cases are:
//   - Normalizing transcript text to NFC so decomposed diacritics from the
//     alignment tooling compare equal to their composed forms
//   - Sanitizing group names before they become directory and clip names
package textutil
