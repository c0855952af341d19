package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"liepavoice/internal/config"
	"liepavoice/internal/corpus"
	"liepavoice/internal/extract"
	"liepavoice/internal/ledger"
	"liepavoice/internal/lock"
	"liepavoice/internal/logging"
	"liepavoice/internal/media/audio"
	"liepavoice/internal/preflight"
	"liepavoice/internal/services"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var inputDir string
	var outputDir string
	var workers int

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Export transcribed corpus segments as mp3 clips",
		Long: "Export every kept segment of the corpus manifest as an mp3 clip under\n" +
			"<output>/<group>/ together with a metadata.csv index per group.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			input, err := config.ExpandPath(inputDir)
			if err != nil {
				return fmt.Errorf("resolve input directory: %w", err)
			}
			if err := applyPathFlag(&cfg.Paths.OutputDir, outputDir); err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Extract.Workers = workers
			}
			if err := cfg.Validate(); err != nil {
				return services.Wrap(services.ErrConfiguration, "extract", "flags", "invalid options", err)
			}
			return runExtract(cmd, ctx, cfg, input)
		},
	}

	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Corpus root directory")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Clip output directory (overrides paths.output_dir)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent extraction tasks (overrides extract.workers)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runExtract(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, inputDir string) error {
	parent := commandCtx(cmd)
	if err := requirePreflight(parent, cfg, "extract", preflight.Scope{InputDir: inputDir, Extract: true}); err != nil {
		return err
	}

	manifest, err := corpus.Load(cfg.ManifestPath(inputDir))
	if err != nil {
		return err
	}
	tasks := manifest.Tasks(inputDir)
	if dups := corpus.DuplicateGroups(tasks); len(dups) > 0 {
		return services.Wrap(services.ErrConfiguration, "extract", "plan",
			fmt.Sprintf("recordings share group names %s", strings.Join(dups, ", ")), nil)
	}

	held, err := lock.Acquire(cfg.Paths.OutputDir, lock.Exclusive)
	if err != nil {
		return err
	}
	defer held.Release()

	session, err := ctx.startRun(parent, ledger.KindExtract, inputDir, cfg.Paths.OutputDir)
	if err != nil {
		return err
	}
	session.logger.Info("extraction started",
		logging.Args(
			logging.String("input_dir", inputDir),
			logging.String("output_dir", cfg.Paths.OutputDir),
			logging.Int("tasks", len(tasks)),
			logging.Int("segments", corpus.SegmentCount(tasks)),
			logging.Int("workers", cfg.Extract.Workers),
		)...,
	)

	extractor := extract.New(newMediaTool(cfg), extract.Options{
		OutputDir: cfg.Paths.OutputDir,
		Language:  cfg.Extract.Language,
		Workers:   cfg.Extract.Workers,
		Policy:    extract.NewPolicy(cfg.Extract.ExcludeTokens, int64(cfg.Extract.MinDurationMS)),
		Encode:    audio.EncodeOptions{Codec: cfg.Extract.Codec, Bitrate: cfg.Extract.Bitrate},
	}, session.logger,
		extract.WithMetrics(session.metrics),
		extract.WithObserver(func(ctx context.Context, res extract.GroupResult) {
			session.recordGroups(ctx, []ledger.GroupResult{extractLedgerResult(res)})
		}),
	)

	report, runErr := extractor.Run(session.ctx, tasks)
	failed := len(report.Failed())
	session.finish(ledger.Finish{
		Status:  runStatus(runErr, failed < len(report.Results)),
		Records: report.Exported(),
		Detail:  errorDetail(runErr),
	})

	out := cmd.OutOrStdout()
	if len(report.Results) > 0 {
		fmt.Fprintln(out, renderExtractReport(report))
	}
	fmt.Fprintf(out, "Exported %d clips from %d groups (%d segments skipped, %d groups failed)\n",
		report.Exported(), len(report.Results)-failed, report.Skipped(), failed)
	fmt.Fprintf(out, "Run %s\n", session.id)
	return runErr
}

func extractLedgerResult(res extract.GroupResult) ledger.GroupResult {
	out := ledger.GroupResult{
		Group:    res.Group,
		Segments: res.Segments,
		Exported: res.Exported,
		Skipped:  res.Skipped(),
		Duration: res.Duration,
	}
	if res.Err != nil {
		out.FailureKind = services.FailureKind(res.Err)
		out.Error = res.Err.Error()
	}
	return out
}

func renderExtractReport(report extract.Report) string {
	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		status := "ok"
		if res.Failed() {
			status = "failed (" + services.FailureKind(res.Err) + ")"
		}
		rows = append(rows, []string{
			res.Group,
			strconv.Itoa(res.Segments),
			strconv.Itoa(res.Exported),
			strconv.Itoa(res.ExcludedToken),
			strconv.Itoa(res.TooShort),
			strconv.Itoa(res.OutOfRange),
			status,
		})
	}
	return renderTotalsTable(
		[]string{"Group", "Segments", "Exported", "Token", "Short", "Range", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

// applyPathFlag replaces *dst with the expanded flag value when one is set.
func applyPathFlag(dst *string, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	expanded, err := config.ExpandPath(value)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", value, err)
	}
	*dst = expanded
	return nil
}

// requirePreflight runs the checks for scope and fails with a configuration
// error naming every failed check.
func requirePreflight(ctx context.Context, cfg *config.Config, stage string, scope preflight.Scope) error {
	failed := preflight.Failed(preflight.RunAll(ctx, cfg, scope))
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, stage, "preflight", preflight.Summary(failed), nil)
}
