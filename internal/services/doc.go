// Package services defines shared utilities consumed by the extractor,
// assembler, and registry integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and group names for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     consistently (configuration vs external tool vs auth) so the run ledger
//     and exit paths can report them uniformly.
package services
