package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"liepavoice/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.DatasetDir = filepath.Join(base, "dataset")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Extract.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithPublishTarget points publishing at the given registry endpoint.
func WithPublishTarget(baseURL, repoID, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publish.BaseURL = baseURL
		b.cfg.Publish.RepoID = repoID
		b.cfg.Publish.Token = token
	}
}

// WithNtfyTopic sends run notifications to topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notify.NtfyTopic = topic
		b.cfg.Notify.RequestTimeoutSeconds = 5
	}
}

// WithStubbedBinaries puts no-op executables for names at the front of PATH.
// Without names, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteText(b.t, filepath.Join(binDir, name), "#!/bin/sh\nexit 0\n")
			if err := os.Chmod(filepath.Join(binDir, name), 0o755); err != nil {
				b.t.Fatalf("chmod stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
