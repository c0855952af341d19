package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"liepavoice/internal/config"
	"liepavoice/internal/ledger"
	"liepavoice/internal/logging"
	"liepavoice/internal/metrics"
	"liepavoice/internal/notifications"
	"liepavoice/internal/services"
)

// ledgerKeepRuns bounds the ledger; older runs and their groups are pruned
// when a run finishes.
const ledgerKeepRuns = 500

// runSession ties one pipeline command to its ledger row and metrics.
type runSession struct {
	id       string
	kind     ledger.Kind
	started  time.Time
	ctx      context.Context
	cfg      *config.Config
	logger   *slog.Logger
	store    *ledger.Store
	metrics  *metrics.Run
	notifier notifications.Notifier
}

// startRun opens the ledger and records a running row for kind. The caller
// must already hold the directory lock that excludes other runs of kind.
func (c *commandContext) startRun(parent context.Context, kind ledger.Kind, inputDir, outputDir string) (*runSession, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	base, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	if n, err := store.MarkInterrupted(parent, kind); err != nil {
		store.Close()
		return nil, fmt.Errorf("close out stale runs: %w", err)
	} else if n > 0 {
		logging.WarnWithContext(base, "stale runs marked interrupted", "ledger_interrupted",
			logging.Int64("runs", n),
			logging.String("kind", string(kind)),
			logging.String(logging.FieldImpact, "previous runs did not finish"),
		)
	}

	id := uuid.NewString()
	ctx := services.WithRunID(parent, id)
	ctx = services.WithStage(ctx, string(kind))
	if _, err := store.StartRun(ctx, id, kind, inputDir, outputDir); err != nil {
		store.Close()
		return nil, err
	}

	return &runSession{
		id:       id,
		kind:     kind,
		started:  time.Now(),
		ctx:      ctx,
		cfg:      cfg,
		logger:   logging.WithContext(ctx, base),
		store:    store,
		metrics:  metrics.New(string(kind)),
		notifier: notifications.NewNotifier(cfg),
	}, nil
}

// finish closes out the run. Bookkeeping failures are logged and never mask
// the command's own outcome.
func (s *runSession) finish(fin ledger.Finish) {
	ctx := context.WithoutCancel(s.ctx)
	if err := s.store.FinishRun(ctx, s.id, fin); err != nil {
		s.logger.Error("record run outcome failed", logging.Args(logging.Error(err))...)
	}
	if n, err := s.store.Prune(ctx, ledgerKeepRuns); err != nil {
		s.logger.Debug("prune run ledger", logging.Args(logging.Error(err))...)
	} else if n > 0 {
		s.logger.Debug("pruned old runs", logging.Args(logging.Int64("runs", n))...)
	}
	now := time.Now()
	s.metrics.Finish(string(fin.Status), now)
	if path := s.cfg.Metrics.Textfile; path != "" {
		if err := s.metrics.WriteTextfile(path); err != nil {
			logging.WarnWithContext(s.logger, "metrics export failed", "metrics_export_failed",
				logging.Error(err),
				logging.String("path", path),
				logging.String(logging.FieldImpact, "textfile collector shows the previous run"),
			)
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Debug("close run ledger", logging.Args(logging.Error(err))...)
	}
	summary := notifications.Summary{
		RunID:    s.id,
		Kind:     string(s.kind),
		Status:   string(fin.Status),
		Records:  fin.Records,
		Duration: now.Sub(s.started),
		Detail:   fin.Detail,
	}
	if err := s.notifier.RunFinished(ctx, summary); err != nil {
		logging.WarnWithContext(s.logger, "run notification failed", "notify_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no completion notice was delivered"),
		)
	}
	s.logger.Info("run finished",
		logging.Args(
			logging.String("status", string(fin.Status)),
			logging.Int("records", fin.Records),
		)...,
	)
}

// recordGroups stores per-group outcomes; failures are logged only.
func (s *runSession) recordGroups(ctx context.Context, results []ledger.GroupResult) {
	if len(results) == 0 {
		return
	}
	if err := s.store.RecordGroups(context.WithoutCancel(ctx), s.id, results); err != nil {
		logging.WarnWithContext(s.logger, "record group outcomes failed", "ledger_write_failed",
			logging.Error(err),
			logging.Int("groups", len(results)),
			logging.String(logging.FieldImpact, "status output will miss these groups"),
		)
	}
}

// runStatus maps a command outcome to the ledger status. partial reports that
// some work completed despite err.
func runStatus(err error, partial bool) ledger.Status {
	switch {
	case err == nil:
		return ledger.StatusSucceeded
	case interrupted(err):
		return ledger.StatusInterrupted
	case partial:
		return ledger.StatusPartial
	default:
		return ledger.StatusFailed
	}
}

func errorDetail(err error) string {
	if err == nil {
		return ""
	}
	// Joined errors render one per line; keep the first.
	lines := strings.Split(err.Error(), "\n")
	if len(lines) > 1 {
		return fmt.Sprintf("%s (and %d more)", lines[0], len(lines)-1)
	}
	return lines[0]
}
