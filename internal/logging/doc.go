// Package logging assembles structured slog loggers and formatting helpers used
// across liepavoice commands.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing (including the optional rotated log file), and exposes
// context-aware helpers so extraction and assembly code can tag log lines with
// run IDs, stages, and group names. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
package logging
