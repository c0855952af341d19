package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"liepavoice/internal/config"
	"liepavoice/internal/dataset"
	"liepavoice/internal/ledger"
	"liepavoice/internal/lock"
	"liepavoice/internal/logging"
	"liepavoice/internal/registry"
	"liepavoice/internal/services"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var datasetDir string
	var repoID string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Push the saved dataset to the configured registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyPathFlag(&cfg.Paths.DatasetDir, datasetDir); err != nil {
				return err
			}
			if repoID != "" {
				cfg.Publish.RepoID = repoID
			}

			held, err := lock.AcquireBeside(cfg.Paths.DatasetDir, lock.Exclusive)
			if err != nil {
				return err
			}
			defer held.Release()
			return publishLocked(cmd, ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&datasetDir, "dataset", "d", "", "Dataset directory (overrides paths.dataset_dir)")
	cmd.Flags().StringVar(&repoID, "repo", "", "Registry repository id (overrides publish.repo_id)")
	return cmd
}

// publishLocked uploads the dataset directory. The caller holds the dataset
// lock so the tree cannot be replaced mid-upload.
func publishLocked(cmd *cobra.Command, ctx *commandContext, cfg *config.Config) error {
	dir := cfg.Paths.DatasetDir
	if _, err := dataset.LoadDict(dir); err != nil {
		return services.Wrap(services.ErrNotFound, "publish", "load",
			fmt.Sprintf("no saved dataset at %s; run 'liepavoice assemble' first", dir), err)
	}
	if err := cfg.ValidatePublish(); err != nil {
		return services.Wrap(services.ErrConfiguration, "publish", "validate", "publish settings incomplete", err)
	}

	session, err := ctx.startRun(commandCtx(cmd), ledger.KindPublish, dir, cfg.Publish.RepoID)
	if err != nil {
		return err
	}
	publisher, err := registry.New(session.ctx, cfg.Publish, session.logger)
	var result registry.Result
	if err == nil {
		result, err = publisher.Publish(session.ctx, dir, registry.TargetFromConfig(cfg.Publish))
	}

	detail := result.URL
	if err != nil {
		detail = errorDetail(err)
	}
	session.finish(ledger.Finish{
		Status:  runStatus(err, false),
		Records: result.Files,
		Detail:  detail,
	})
	if err != nil {
		return err
	}

	session.logger.Info("dataset published",
		logging.Args(
			logging.String("backend", cfg.Publish.Backend),
			logging.String("repo_id", cfg.Publish.RepoID),
			logging.Int("files", result.Files),
			logging.Int("uploaded", result.Uploaded),
			logging.Int64("bytes", result.Bytes),
		)...,
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Published %d files (%d uploaded, %s) to %s\n",
		result.Files, result.Uploaded, humanBytes(result.Bytes), result.URL)
	return nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
