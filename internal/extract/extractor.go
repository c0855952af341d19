package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"liepavoice/internal/clipindex"
	"liepavoice/internal/corpus"
	"liepavoice/internal/logging"
	"liepavoice/internal/media/audio"
	"liepavoice/internal/metrics"
	"liepavoice/internal/services"
	"liepavoice/internal/textutil"
)

const stageName = "extract"

// AudioTool decodes recordings and exports clips.
type AudioTool interface {
	Decode(ctx context.Context, path string) (*audio.Buffer, error)
	Export(ctx context.Context, buf *audio.Buffer, dst string, opts audio.EncodeOptions) error
}

// Options configures an Extractor.
type Options struct {
	OutputDir string
	Language  string
	Workers   int
	Policy    Policy
	Encode    audio.EncodeOptions
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithMetrics records segment and group counters into run.
func WithMetrics(run *metrics.Run) Option {
	return func(e *Extractor) {
		e.metrics = run
	}
}

// WithObserver registers fn to receive every task result. fn is called from
// worker goroutines and must be safe for concurrent use.
func WithObserver(fn func(context.Context, GroupResult)) Option {
	return func(e *Extractor) {
		e.observe = fn
	}
}

// Extractor exports clips for corpus tasks.
type Extractor struct {
	tool    AudioTool
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Run
	observe func(context.Context, GroupResult)
}

// New constructs an Extractor.
func New(tool AudioTool, opts Options, logger *slog.Logger, options ...Option) *Extractor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	e := &Extractor{
		tool:   tool,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "extractor"),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Run processes every task on a pool of Options.Workers goroutines and waits
// for all of them. Failed tasks are logged and reported; the returned error
// names every failed group. Cancelling ctx stops dispatch of queued tasks.
func (e *Extractor) Run(ctx context.Context, tasks []corpus.Task) (Report, error) {
	results := make([]GroupResult, len(tasks))
	dispatched := make([]bool, len(tasks))

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		dispatched[i] = true
		g.Go(func() error {
			res, err := e.ProcessTask(ctx, task)
			if err != nil {
				res.Err = err
			}
			results[i] = res
			e.finish(ctx, res)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Results: make([]GroupResult, 0, len(tasks))}
	for i := range tasks {
		if dispatched[i] {
			report.Results = append(report.Results, results[i])
		}
	}

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("extraction interrupted after %d of %d tasks: %w", len(report.Results), len(tasks), err)
	}
	failed := report.Failed()
	if len(failed) == 0 {
		return report, nil
	}
	errs := make([]error, 0, len(failed))
	for _, res := range failed {
		errs = append(errs, res.Err)
	}
	return report, fmt.Errorf("%d of %d groups failed: %w", len(failed), len(tasks), errors.Join(errs...))
}

func (e *Extractor) finish(ctx context.Context, res GroupResult) {
	logger := logging.WithContext(services.WithGroup(ctx, res.Group), e.logger)
	if res.Failed() {
		e.metrics.Group(metrics.GroupFailed)
		logging.ErrorWithContext(logger, "group extraction failed", "extract_group_failed",
			logging.String("media", res.MediaPath),
			logging.Error(res.Err),
			logging.String(logging.FieldImpact, "group is missing from output; other groups continue"),
		)
	} else {
		e.metrics.Group(metrics.GroupSucceeded)
		logger.Info("group extracted",
			logging.Args(
				logging.Int("segments", res.Segments),
				logging.Int("exported", res.Exported),
				logging.Int("skipped", res.Skipped()),
				logging.Duration("elapsed", res.Duration),
			)...,
		)
	}
	e.metrics.ObserveTask(res.Duration)
	if e.observe != nil {
		e.observe(ctx, res)
	}
}

// ProcessTask exports the admitted segments of one task and rewrites its index.
// The media is decoded at most once, and only when a segment is admitted.
func (e *Extractor) ProcessTask(ctx context.Context, task corpus.Task) (GroupResult, error) {
	started := time.Now()
	res := newGroupResult(task)

	ctx = services.WithGroup(ctx, task.Group)
	logger := logging.WithContext(ctx, e.logger)

	dir := filepath.Join(e.opts.OutputDir, task.Group)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return finished(&res, started), services.Wrap(services.ErrConfiguration, stageName, "group "+task.Group, "create output directory", err)
	}

	var (
		buf  *audio.Buffer
		rows = make([]clipindex.Row, 0, len(task.Segments))
	)
	for i, seg := range task.Segments {
		if err := ctx.Err(); err != nil {
			return finished(&res, started), err
		}
		name := ClipName(task.Group, i+1)
		outcome := e.opts.Policy.Classify(seg)
		if outcome != metrics.OutcomeExported {
			e.countSkip(&res, outcome)
			logger.Debug("segment skipped",
				logging.Args(logging.String("clip", name), logging.String("reason", outcome))...,
			)
			continue
		}

		if buf == nil {
			decoded, err := e.tool.Decode(ctx, task.MediaPath)
			if err != nil {
				return finished(&res, started), services.Wrap(services.ErrExternalTool, stageName, "group "+task.Group, "decode "+task.MediaPath, err)
			}
			buf = decoded
			logger.Debug("media decoded",
				logging.Args(
					logging.String("media", task.MediaPath),
					logging.String("format", buf.Format.String()),
					logging.Int64("duration_ms", buf.DurationMS()),
				)...,
			)
		}

		clip := buf.Slice(seg.Beg, seg.End)
		if clip.Empty() {
			e.countSkip(&res, metrics.OutcomeOutOfRange)
			logging.WarnWithContext(logger, "segment outside recording", "segment_out_of_range",
				logging.String("clip", name),
				logging.Span(seg.Beg, seg.End),
				logging.Int64("media_ms", buf.DurationMS()),
				logging.String(logging.FieldImpact, "segment skipped"),
			)
			continue
		}
		if err := e.tool.Export(ctx, clip, filepath.Join(dir, name), e.opts.Encode); err != nil {
			return finished(&res, started), services.Wrap(services.ErrExternalTool, stageName, "group "+task.Group, "export "+name, err)
		}
		rows = append(rows, clipindex.Row{
			FileName: name,
			Sentence: textutil.NormalizeTranscript(seg.Val),
			Language: e.opts.Language,
		})
		res.Exported++
		res.Clips = append(res.Clips, name)
		e.metrics.AddSegments(metrics.OutcomeExported, 1)
		logger.Info("exported clip", logging.Args(logging.String("clip", name))...)
	}

	if err := clipindex.Write(filepath.Join(dir, clipindex.FileName), rows); err != nil {
		return finished(&res, started), services.Wrap(services.ErrExternalTool, stageName, "group "+task.Group, "write index", err)
	}
	return finished(&res, started), nil
}

func (e *Extractor) countSkip(res *GroupResult, outcome string) {
	switch outcome {
	case metrics.OutcomeExcludedToken:
		res.ExcludedToken++
	case metrics.OutcomeTooShort:
		res.TooShort++
	case metrics.OutcomeOutOfRange:
		res.OutOfRange++
	}
	e.metrics.AddSegments(outcome, 1)
}

func finished(res *GroupResult, started time.Time) GroupResult {
	res.Duration = time.Since(started)
	return *res
}
