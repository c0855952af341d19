// Package ffprobe reads the audio stream layout of a recording.
//
// Inspect asks ffprobe for audio streams only, so Result.Streams never holds
// video or subtitle entries. ffprobe reports numbers as strings; the helper
// methods parse them and return zero for missing or malformed values.
package ffprobe
