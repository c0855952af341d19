package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"liepavoice/internal/ledger"
	"liepavoice/internal/services"
)

type runView struct {
	ID         string      `json:"id"`
	Kind       string      `json:"kind"`
	Status     string      `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	InputDir   string      `json:"input_dir,omitempty"`
	OutputDir  string      `json:"output_dir,omitempty"`
	Records    int         `json:"records"`
	Seed       uint64      `json:"seed,omitempty"`
	Detail     string      `json:"detail,omitempty"`
	Groups     []groupView `json:"groups,omitempty"`
}

type groupView struct {
	Group       string `json:"group"`
	Segments    int    `json:"segments"`
	Exported    int    `json:"exported"`
	Skipped     int    `json:"skipped"`
	DurationMS  int64  `json:"duration_ms"`
	FailureKind string `json:"failure_kind,omitempty"`
	Error       string `json:"error,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show recent pipeline runs or the groups of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd, store, strings.TrimSpace(args[0]), asJSON)
			}
			runs, err := store.ListRuns(commandCtx(cmd), limit)
			if err != nil {
				return err
			}
			if asJSON {
				views := make([]runView, 0, len(runs))
				for _, run := range runs {
					views = append(views, newRunView(run, nil))
				}
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderRunTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list (0 lists all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func showRun(cmd *cobra.Command, store *ledger.Store, id string, asJSON bool) error {
	ctx := commandCtx(cmd)
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return services.Wrap(services.ErrNotFound, "status", "show", fmt.Sprintf("run %s", id), nil)
	}
	groups, err := store.GroupResults(ctx, id)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd, newRunView(*run, groups))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Kind:     %s\n", run.Kind)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt != nil {
		fmt.Fprintf(out, "Duration: %s\n", formatDuration(run.Duration()))
	}
	if run.InputDir != "" {
		fmt.Fprintf(out, "Input:    %s\n", run.InputDir)
	}
	if run.OutputDir != "" {
		fmt.Fprintf(out, "Output:   %s\n", run.OutputDir)
	}
	fmt.Fprintf(out, "Records:  %d\n", run.Records)
	if run.Seed != 0 {
		fmt.Fprintf(out, "Seed:     %d\n", run.Seed)
	}
	if run.Detail != "" {
		fmt.Fprintf(out, "Detail:   %s\n", run.Detail)
	}
	if len(groups) > 0 {
		fmt.Fprintln(out, renderGroupTable(groups))
	}
	return nil
}

func newRunView(run ledger.Run, groups []ledger.GroupResult) runView {
	view := runView{
		ID:         run.ID,
		Kind:       string(run.Kind),
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		InputDir:   run.InputDir,
		OutputDir:  run.OutputDir,
		Records:    run.Records,
		Seed:       run.Seed,
		Detail:     run.Detail,
	}
	for _, g := range groups {
		view.Groups = append(view.Groups, groupView{
			Group:       g.Group,
			Segments:    g.Segments,
			Exported:    g.Exported,
			Skipped:     g.Skipped,
			DurationMS:  g.Duration.Milliseconds(),
			FailureKind: g.FailureKind,
			Error:       g.Error,
		})
	}
	return view
}

func renderRunTable(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = formatDuration(run.Duration())
		}
		rows = append(rows, []string{
			run.ID,
			string(run.Kind),
			string(run.Status),
			run.StartedAt.Local().Format(time.DateTime),
			duration,
			strconv.Itoa(run.Records),
			truncate(run.Detail, 60),
		})
	}
	return renderTable(
		[]string{"Run", "Kind", "Status", "Started", "Duration", "Records", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func renderGroupTable(groups []ledger.GroupResult) string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		outcome := "ok"
		if g.Failed() {
			outcome = g.FailureKind + ": " + truncate(g.Error, 60)
		}
		rows = append(rows, []string{
			g.Group,
			strconv.Itoa(g.Segments),
			strconv.Itoa(g.Exported),
			strconv.Itoa(g.Skipped),
			formatDuration(g.Duration),
			outcome,
		})
	}
	return renderTable(
		[]string{"Group", "Segments", "Exported", "Skipped", "Duration", "Outcome"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
