package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"liepavoice/internal/config"
	"liepavoice/internal/dataset"
	"liepavoice/internal/ledger"
	"liepavoice/internal/lock"
	"liepavoice/internal/logging"
	"liepavoice/internal/media/audio"
	"liepavoice/internal/metrics"
	"liepavoice/internal/preflight"
	"liepavoice/internal/services"
)

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var datasetDir string
	var seed uint64
	var testSize float64
	var publish bool

	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Build the train/test dataset from extracted clips",
		Long: "Concatenate every extracted group, resample clips to the target format,\n" +
			"shuffle them into train and test splits, and save the dataset locally.\n" +
			"With --publish the saved dataset is also pushed to the configured registry.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyPathFlag(&cfg.Paths.OutputDir, outputDir); err != nil {
				return err
			}
			if err := applyPathFlag(&cfg.Paths.DatasetDir, datasetDir); err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Assemble.Seed = seed
			}
			if cmd.Flags().Changed("test-size") {
				cfg.Assemble.TestSize = testSize
			}
			if err := cfg.Validate(); err != nil {
				return services.Wrap(services.ErrConfiguration, "assemble", "flags", "invalid options", err)
			}
			return runAssemble(cmd, ctx, cfg, publish)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Extracted clip directory (overrides paths.output_dir)")
	cmd.Flags().StringVarP(&datasetDir, "dataset", "d", "", "Dataset directory (overrides paths.dataset_dir)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Shuffle seed; 0 draws a fresh one (overrides assemble.seed)")
	cmd.Flags().Float64Var(&testSize, "test-size", 0, "Fraction of records in the test split (overrides assemble.test_size)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish the dataset after saving it")
	return cmd
}

func runAssemble(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, publish bool) error {
	parent := commandCtx(cmd)
	if err := requirePreflight(parent, cfg, "assemble", preflight.Scope{Assemble: true}); err != nil {
		return err
	}

	clips, err := lock.Acquire(cfg.Paths.OutputDir, lock.Shared)
	if err != nil {
		return err
	}
	defer clips.Release()
	target, err := lock.AcquireBeside(cfg.Paths.DatasetDir, lock.Exclusive)
	if err != nil {
		return err
	}
	defer target.Release()

	session, err := ctx.startRun(parent, ledger.KindAssemble, cfg.Paths.OutputDir, cfg.Paths.DatasetDir)
	if err != nil {
		return err
	}
	saved, loaded, runErr := assembleDataset(session, cfg)
	status := runStatus(runErr, false)
	if runErr == nil && len(loaded.Failures) > 0 {
		status = ledger.StatusPartial
	}
	session.finish(ledger.Finish{
		Status:  status,
		Records: saved.Records(),
		Seed:    saved.Seed,
		Detail:  assembleDetail(loaded, runErr),
	})
	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderSplitTable(saved))
	fmt.Fprintf(out, "Dataset written to %s (%d groups, %d skipped, seed %d)\n",
		saved.Dir, len(loaded.Groups), len(loaded.Failures), saved.Seed)
	for _, failure := range loaded.Failures {
		fmt.Fprintf(out, "  skipped %s: %v\n", failure.Group, failure.Err)
	}
	fmt.Fprintf(out, "Run %s\n", session.id)

	if !publish {
		return nil
	}
	return publishLocked(cmd, ctx, cfg)
}

func assembleDataset(s *runSession, cfg *config.Config) (dataset.SaveResult, dataset.LoadResult, error) {
	loaded, err := dataset.LoadAll(s.ctx, cfg.Paths.OutputDir, s.logger)
	s.recordGroups(s.ctx, loadLedgerResults(loaded))
	for range loaded.Groups {
		s.metrics.Group(metrics.GroupLoaded)
	}
	for range loaded.Failures {
		s.metrics.Group(metrics.GroupSkipped)
	}
	if err != nil {
		return dataset.SaveResult{}, loaded, err
	}

	format := audio.Format{SampleRate: cfg.Assemble.SampleRate, Channels: cfg.Assemble.Channels}
	split, err := loaded.Dataset.Cast(format).TrainTestSplit(cfg.Assemble.TestSize, cfg.Assemble.Seed)
	if err != nil {
		return dataset.SaveResult{}, loaded, err
	}
	s.logger.Info("dataset split",
		logging.Args(
			logging.Int("train", split.Train.Len()),
			logging.Int("test", split.Test.Len()),
			logging.String("seed", strconv.FormatUint(split.Seed, 10)),
			logging.String("format", format.String()),
		)...,
	)

	saved, err := split.Save(s.ctx, cfg.Paths.DatasetDir, newMediaTool(cfg), dataset.SaveOptions{
		PrettyName: datasetName(cfg),
		TestSize:   cfg.Assemble.TestSize,
		Groups:     loaded.Groups,
	}, s.logger)
	if err != nil {
		return dataset.SaveResult{}, loaded, err
	}
	for _, summary := range saved.Splits {
		s.metrics.SetRecords(summary.Name, summary.Records)
	}
	return saved, loaded, nil
}

func loadLedgerResults(loaded dataset.LoadResult) []ledger.GroupResult {
	counts := map[string]int{}
	if loaded.Dataset != nil {
		for _, rec := range loaded.Dataset.Records {
			counts[rec.Group]++
		}
	}
	results := make([]ledger.GroupResult, 0, len(loaded.Groups)+len(loaded.Failures))
	for _, group := range loaded.Groups {
		results = append(results, ledger.GroupResult{Group: group, Segments: counts[group], Exported: counts[group]})
	}
	for _, failure := range loaded.Failures {
		results = append(results, ledger.GroupResult{
			Group:       failure.Group,
			FailureKind: services.FailureKind(failure.Err),
			Error:       failure.Err.Error(),
		})
	}
	return results
}

func assembleDetail(loaded dataset.LoadResult, err error) string {
	if err != nil {
		return errorDetail(err)
	}
	if n := len(loaded.Failures); n > 0 {
		return fmt.Sprintf("%d groups skipped", n)
	}
	return ""
}

// datasetName is the card title: the registry repository name when one is
// configured, otherwise the dataset directory name.
func datasetName(cfg *config.Config) string {
	if repo := strings.TrimSpace(cfg.Publish.RepoID); repo != "" {
		if i := strings.LastIndex(repo, "/"); i >= 0 {
			return repo[i+1:]
		}
		return repo
	}
	return filepath.Base(cfg.Paths.DatasetDir)
}

func renderSplitTable(saved dataset.SaveResult) string {
	rows := make([][]string, 0, len(saved.Splits))
	for _, summary := range saved.Splits {
		rows = append(rows, []string{
			summary.Name,
			strconv.Itoa(summary.Records),
			strconv.FormatFloat(summary.DurationSeconds/3600, 'f', 2, 64),
		})
	}
	return renderTotalsTable(
		[]string{"Split", "Records", "Hours"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	)
}
