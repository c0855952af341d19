package extract

import (
	"time"

	"liepavoice/internal/corpus"
)

// GroupResult summarizes one processed task.
type GroupResult struct {
	Group         string
	MediaPath     string
	Segments      int
	Exported      int
	ExcludedToken int
	TooShort      int
	OutOfRange    int
	Clips         []string
	Duration      time.Duration
	Err           error
}

// Skipped counts segments the task did not export.
func (r GroupResult) Skipped() int {
	return r.ExcludedToken + r.TooShort + r.OutOfRange
}

// Failed reports whether the task ended in error.
func (r GroupResult) Failed() bool {
	return r.Err != nil
}

func newGroupResult(task corpus.Task) GroupResult {
	return GroupResult{
		Group:     task.Group,
		MediaPath: task.MediaPath,
		Segments:  len(task.Segments),
	}
}

// Report collects every task outcome in task order.
type Report struct {
	Results []GroupResult
}

// Failed returns the results that ended in error.
func (r Report) Failed() []GroupResult {
	var failed []GroupResult
	for _, res := range r.Results {
		if res.Failed() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Exported totals exported clips across groups.
func (r Report) Exported() int {
	total := 0
	for _, res := range r.Results {
		total += res.Exported
	}
	return total
}

// Skipped totals skipped segments across groups.
func (r Report) Skipped() int {
	total := 0
	for _, res := range r.Results {
		total += res.Skipped()
	}
	return total
}
