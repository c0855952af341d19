package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"liepavoice/internal/logs"
	"liepavoice/internal/services"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the rotated log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogFilePath()
			opts := logs.Options{Lines: lines, Follow: follow}
			if id := strings.TrimSpace(runID); id != "" {
				opts.Match = logs.RunFilter(id)
			}

			out := cmd.OutOrStdout()
			err = logs.Tail(commandCtx(cmd), path, opts, func(line string) error {
				_, err := fmt.Fprintln(out, line)
				return err
			})
			if errors.Is(err, os.ErrNotExist) {
				hint := ""
				if !cfg.Logging.File {
					hint = "; set logging.file = true to write one"
				}
				return services.Wrap(services.ErrNotFound, "logs", "tail", fmt.Sprintf("no log file at %s%s", path, hint), nil)
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")
	cmd.Flags().StringVar(&runID, "run", "", "Only print lines logged by this run id")
	return cmd
}
