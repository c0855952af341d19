package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"liepavoice/internal/config"
	"liepavoice/internal/preflight"
	"liepavoice/internal/services"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var inputDir string
	var publish bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, directories, and registry access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			scope := preflight.Scope{
				Extract: true,
				Publish: publish || cfg.Publish.RepoID != "",
			}
			if inputDir != "" {
				if scope.InputDir, err = config.ExpandPath(inputDir); err != nil {
					return fmt.Errorf("resolve input directory: %w", err)
				}
			}
			// Clips only exist once extract has run.
			if info, err := os.Stat(cfg.Paths.OutputDir); err == nil && info.IsDir() {
				scope.Assemble = true
			}

			results := preflight.RunAll(commandCtx(cmd), cfg, scope)
			out := cmd.OutOrStdout()
			for _, line := range checkLines(results, shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return services.Wrap(services.ErrConfiguration, "doctor", "check",
					fmt.Sprintf("%d of %d checks failed", len(failed), len(results)), nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Corpus root directory to check")
	cmd.Flags().BoolVar(&publish, "publish", false, "Check registry credentials even without a configured repo id")
	return cmd
}

func checkLines(results []preflight.Result, colorize bool) []string {
	lines := renderSectionHeader("Environment", colorize)
	failed := preflight.Failed(results)
	if len(failed) == 0 {
		lines = append(lines, renderStatusLine("Summary", statusOK, fmt.Sprintf("%d checks passed", len(results)), colorize))
	} else {
		lines = append(lines, renderStatusLine("Summary", statusError, fmt.Sprintf("%d of %d checks failed", len(failed), len(results)), colorize))
	}
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}
