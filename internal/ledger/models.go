package ledger

import "time"

// Kind names the command that produced a run.
type Kind string

const (
	KindExtract  Kind = "extract"
	KindAssemble Kind = "assemble"
	KindPublish  Kind = "publish"
)

// Status represents the lifecycle of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusSucceeded   Status = "succeeded"
	StatusPartial     Status = "partial"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// InterruptedDetail is recorded for runs that never finished.
const InterruptedDetail = "process exited before the run finished"

// Run is one invocation of a pipeline command.
type Run struct {
	ID         string
	Kind       Kind
	Status     Status
	StartedAt  time.Time
	FinishedAt *time.Time
	InputDir   string
	OutputDir  string
	Records    int
	Seed       uint64
	Detail     string
}

// Duration reports how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Finish carries the final state of a run.
type Finish struct {
	Status  Status
	Records int
	Seed    uint64
	Detail  string
}

// GroupResult is the per-group outcome recorded for a run.
type GroupResult struct {
	Group       string
	Segments    int
	Exported    int
	Skipped     int
	Duration    time.Duration
	FailureKind string
	Error       string
}

// Failed reports whether the group recorded an error.
func (g GroupResult) Failed() bool {
	return g.Error != ""
}
