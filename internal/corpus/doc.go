// Package corpus reads the recording manifest that drives extraction and
// flattens it into extraction tasks.
//
// The manifest maps arbitrary recording keys to descriptors of the form
//
//	{ "media": {"path": "..."}, "tiers": ["..."], "speech": ... }
//
// where speech is either a flat list of segments (no tiers) or an object keyed
// by tier name whose values are a single segment or a list of segments.
package corpus
