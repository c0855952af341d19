// Package extract slices recordings into utterance clips.
//
// Each corpus task is processed independently: the media is decoded once,
// every segment the Policy admits is exported as a compressed clip under
// <output>/<group>/, and the group's metadata.csv index is rewritten to list
// exactly the clips exported. Run fans tasks out across a bounded worker pool
// and collects every outcome; a failed task never stops the others.
package extract
