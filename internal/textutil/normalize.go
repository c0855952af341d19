package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTranscript trims surrounding whitespace and converts the text to
// Unicode NFC. Interior whitespace is preserved.
func NormalizeTranscript(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	if norm.NFC.IsNormalString(trimmed) {
		return trimmed
	}
	return norm.NFC.String(trimmed)
}
