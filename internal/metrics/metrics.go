// Package metrics collects per-run pipeline counters in a private Prometheus
// registry and exports them through the node_exporter textfile format.
//
// A nil *Run is valid and records nothing.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Segment outcomes.
const (
	OutcomeExported      = "exported"
	OutcomeExcludedToken = "excluded_token"
	OutcomeTooShort      = "too_short"
	OutcomeOutOfRange    = "out_of_range"
)

// Group statuses.
const (
	GroupSucceeded = "succeeded"
	GroupFailed    = "failed"
	GroupLoaded    = "loaded"
	GroupSkipped   = "skipped"
)

// Run holds the collectors for one command invocation.
type Run struct {
	registry     *prometheus.Registry
	segments     *prometheus.CounterVec
	groups       *prometheus.CounterVec
	taskDuration prometheus.Histogram
	records      *prometheus.GaugeVec
	lastRun      *prometheus.GaugeVec
}

// New builds a registry for the named command.
func New(command string) *Run {
	labels := prometheus.Labels{"command": command}
	r := &Run{
		registry: prometheus.NewRegistry(),
		segments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "liepavoice_segments_total",
				Help:        "Segments considered for export, by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		groups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "liepavoice_groups_total",
				Help:        "Groups processed, by status",
				ConstLabels: labels,
			},
			[]string{"status"},
		),
		// Buckets: 1s to ~17min; one task decodes a whole recording.
		taskDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "liepavoice_task_duration_seconds",
				Help:        "Extraction task duration in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.ExponentialBuckets(1, 2, 11),
			},
		),
		records: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "liepavoice_dataset_records",
				Help:        "Records in the assembled dataset, by split",
				ConstLabels: labels,
			},
			[]string{"split"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "liepavoice_last_run_timestamp_seconds",
				Help:        "Completion time of the last run, by status",
				ConstLabels: labels,
			},
			[]string{"status"},
		),
	}
	r.registry.MustRegister(r.segments, r.groups, r.taskDuration, r.records, r.lastRun)
	return r
}

// AddSegments counts n segments with the given outcome.
func (r *Run) AddSegments(outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.segments.WithLabelValues(outcome).Add(float64(n))
}

// Group counts one group with the given status.
func (r *Run) Group(status string) {
	if r == nil {
		return
	}
	r.groups.WithLabelValues(status).Inc()
}

// ObserveTask records an extraction task duration.
func (r *Run) ObserveTask(d time.Duration) {
	if r == nil {
		return
	}
	r.taskDuration.Observe(d.Seconds())
}

// SetRecords sets the record count of a dataset split.
func (r *Run) SetRecords(split string, n int) {
	if r == nil {
		return
	}
	r.records.WithLabelValues(split).Set(float64(n))
}

// Finish stamps the completion time.
func (r *Run) Finish(status string, at time.Time) {
	if r == nil {
		return
	}
	r.lastRun.WithLabelValues(status).Set(float64(at.Unix()))
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile writes the registry to path in the text exposition format.
// An empty path is a no-op.
func (r *Run) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
