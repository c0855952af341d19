// Package logs reads the rotated liepavoice log file for the CLI.
//
// Tail prints the last lines of the file with bounded memory and can keep
// following it across lumberjack rotations. RunFilter narrows the output to a
// single pipeline run in either the console or the JSON log format.
package logs
