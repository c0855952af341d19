// Package dataset assembles per-group clip folders into one labeled audio
// dataset, splits it into train and test partitions, and saves it in an
// audiofolder layout a dataset registry can ingest directly.
//
// Records are carried by reference to their clip files. Cast only tags the
// target audio format; decoding and resampling happen when Save materializes
// each split.
package dataset
