package extract

import (
	"fmt"

	"liepavoice/internal/corpus"
	"liepavoice/internal/metrics"
	"liepavoice/internal/textutil"
)

// Policy decides which segments become clips.
type Policy struct {
	exclude       map[string]struct{}
	minDurationMS int64
}

// NewPolicy builds a policy excluding the given annotation tokens and any
// segment shorter than minDurationMS.
func NewPolicy(excludeTokens []string, minDurationMS int64) Policy {
	exclude := make(map[string]struct{}, len(excludeTokens))
	for _, token := range excludeTokens {
		if normalized := textutil.NormalizeTranscript(token); normalized != "" {
			exclude[normalized] = struct{}{}
		}
	}
	return Policy{exclude: exclude, minDurationMS: minDurationMS}
}

// Classify returns the metrics outcome for seg: exported when the segment is
// admitted, otherwise the first rule it fails.
func (p Policy) Classify(seg corpus.Segment) string {
	if _, excluded := p.exclude[textutil.NormalizeTranscript(seg.Val)]; excluded {
		return metrics.OutcomeExcludedToken
	}
	if seg.Len < p.minDurationMS {
		return metrics.OutcomeTooShort
	}
	return metrics.OutcomeExported
}

// ClipName returns the clip file name for the 1-based segment position.
func ClipName(group string, position int) string {
	return fmt.Sprintf("%s_%06d.mp3", group, position)
}
