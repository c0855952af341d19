package preflight

import (
	"context"
	"fmt"
	"strings"

	"liepavoice/internal/config"
	"liepavoice/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Scope selects which checks apply to a command.
type Scope struct {
	// InputDir is the corpus root; empty skips the corpus checks.
	InputDir string
	// Extract checks the clip output directory for writing.
	Extract bool
	// Assemble checks the clip output directory for reading and the dataset
	// directory for writing.
	Assemble bool
	// Publish checks registry credentials.
	Publish bool
}

// RunAll executes the checks applicable to scope.
func RunAll(ctx context.Context, cfg *config.Config, scope Scope) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, Result{Name: status.Name, Passed: status.Available(), Detail: status.Detail()})
	}

	if scope.InputDir != "" {
		results = append(results,
			CheckReadableDir("Corpus directory", scope.InputDir),
			CheckFile("Corpus manifest", cfg.ManifestPath(scope.InputDir)),
		)
	}
	if scope.Extract {
		results = append(results,
			CheckWritableTarget("Output directory", cfg.Paths.OutputDir),
			CheckFreeSpace("Output free space", cfg.Paths.OutputDir, MinFreeBytes),
		)
	}
	if scope.Assemble {
		results = append(results,
			CheckReadableDir("Output directory", cfg.Paths.OutputDir),
			CheckWritableTarget("Dataset directory", cfg.Paths.DatasetDir),
			CheckFreeSpace("Dataset free space", cfg.Paths.DatasetDir, MinFreeBytes),
		)
	}
	if scope.Publish {
		results = append(results, CheckPublish(ctx, cfg))
	}
	return results
}

// CheckPublish validates publish settings and, for the Hub backend, the token.
func CheckPublish(ctx context.Context, cfg *config.Config) Result {
	const name = "Registry"
	if err := cfg.ValidatePublish(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if cfg.Publish.Backend == config.BackendHuggingFace {
		return CheckHub(ctx, cfg.Publish.BaseURL, cfg.Publish.Token)
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s credentials at %s", cfg.Publish.Backend, cfg.Publish.GDriveCredentials)}
}

// CheckSystemDeps evaluates the external tools for the given config.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.Check(ctx, deps.MediaTools(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summary joins failed checks into one line for error messages.
func Summary(failed []Result) string {
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return strings.Join(parts, "; ")
}
