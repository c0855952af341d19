package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"liepavoice/internal/config"
)

func clearPublishEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HF_TOKEN", "HUGGING_FACE_HUB_TOKEN", "LIEPAVOICE_REPO_ID", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearPublishEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	workDir := t.TempDir()
	t.Chdir(workDir)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.OutputDir != filepath.Join(workDir, "output") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.DatasetDir != filepath.Join(workDir, "dataset") {
		t.Fatalf("unexpected dataset dir: %q", cfg.Paths.DatasetDir)
	}
	wantLogs := filepath.Join(tempHome, ".local", "share", "liepavoice", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.Extract.Workers != 12 {
		t.Fatalf("expected 12 workers, got %d", cfg.Extract.Workers)
	}
	if cfg.Extract.MinDurationMS != 1000 {
		t.Fatalf("expected 1000ms minimum, got %d", cfg.Extract.MinDurationMS)
	}
	if cfg.Extract.Language != "lt" {
		t.Fatalf("expected lt language, got %q", cfg.Extract.Language)
	}
	if cfg.Extract.Bitrate != "320k" || cfg.Extract.Codec != "libmp3lame" {
		t.Fatalf("unexpected codec settings: %q %q", cfg.Extract.Codec, cfg.Extract.Bitrate)
	}
	if len(cfg.Extract.ExcludeTokens) != 9 {
		t.Fatalf("expected 9 exclude tokens, got %v", cfg.Extract.ExcludeTokens)
	}
	if cfg.Assemble.SampleRate != 16000 || cfg.Assemble.Channels != 1 {
		t.Fatalf("unexpected target format: %d Hz, %d ch", cfg.Assemble.SampleRate, cfg.Assemble.Channels)
	}
	if cfg.Assemble.TestSize != 0.05 {
		t.Fatalf("unexpected test size: %v", cfg.Assemble.TestSize)
	}
	if !cfg.Publish.Private {
		t.Fatal("expected private publishing by default")
	}
	if got := cfg.ManifestPath("/corpus"); got != filepath.Join("/corpus", "etc", "corpus-data.json") {
		t.Fatalf("unexpected manifest path: %q", got)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearPublishEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "liepavoice.toml")

	type payload struct {
		Extract struct {
			Workers       int      `toml:"workers"`
			MinDurationMS int      `toml:"min_duration_ms"`
			ExcludeTokens []string `toml:"exclude_tokens"`
		} `toml:"extract"`
		Assemble struct {
			TestSize float64 `toml:"test_size"`
			Seed     uint64  `toml:"seed"`
		} `toml:"assemble"`
		Publish struct {
			RepoID string `toml:"repo_id"`
		} `toml:"publish"`
	}
	custom := payload{}
	custom.Extract.Workers = 3
	custom.Extract.MinDurationMS = 250
	custom.Extract.ExcludeTokens = []string{" +NOISE+ ", "+NOISE+", ""}
	custom.Assemble.TestSize = 0.2
	custom.Assemble.Seed = 42
	custom.Publish.RepoID = "team/corpus"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Extract.Workers != 3 {
		t.Fatalf("expected workers override, got %d", cfg.Extract.Workers)
	}
	if cfg.Extract.MinDurationMS != 250 {
		t.Fatalf("expected min duration override, got %d", cfg.Extract.MinDurationMS)
	}
	if len(cfg.Extract.ExcludeTokens) != 1 || cfg.Extract.ExcludeTokens[0] != "+NOISE+" {
		t.Fatalf("expected deduplicated tokens, got %v", cfg.Extract.ExcludeTokens)
	}
	if cfg.Assemble.TestSize != 0.2 || cfg.Assemble.Seed != 42 {
		t.Fatalf("unexpected assemble overrides: %+v", cfg.Assemble)
	}
	if cfg.Publish.RepoID != "team/corpus" {
		t.Fatalf("unexpected repo id: %q", cfg.Publish.RepoID)
	}
}

func TestLanguageNamesNormalizeToCodes(t *testing.T) {
	clearPublishEnv(t)
	configPath := filepath.Join(t.TempDir(), "liepavoice.toml")
	if err := os.WriteFile(configPath, []byte("[extract]\nlanguage = \"Lithuanian\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Extract.Language != "lt" {
		t.Fatalf("expected lt, got %q", cfg.Extract.Language)
	}
}

func TestEnvVarOverridesConfigFileForCredentials(t *testing.T) {
	clearPublishEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "liepavoice.toml")

	body := "[publish]\nrepo_id = \"file/repo\"\ntoken = \"file-token\"\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("HF_TOKEN", "env-token")
	t.Setenv("LIEPAVOICE_REPO_ID", "env/repo")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Publish.Token != "env-token" {
		t.Errorf("expected token from env, got %q", cfg.Publish.Token)
	}
	if cfg.Publish.RepoID != "env/repo" {
		t.Errorf("expected repo id from env, got %q", cfg.Publish.RepoID)
	}
}

func TestHubTokenFallback(t *testing.T) {
	clearPublishEnv(t)
	t.Setenv("HUGGING_FACE_HUB_TOKEN", "hub-token")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Publish.Token != "hub-token" {
		t.Fatalf("expected HUGGING_FACE_HUB_TOKEN fallback, got %q", cfg.Publish.Token)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your-namespace/liepa_voice") {
		t.Fatalf("sample config missing placeholder repo id: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Extract.Workers != 12 {
		t.Fatalf("expected sample workers to be 12, got %d", cfg.Extract.Workers)
	}
	if len(cfg.Extract.ExcludeTokens) != len(config.DefaultExcludeTokens) {
		t.Fatalf("sample exclude tokens drifted from defaults: %v", cfg.Extract.ExcludeTokens)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero workers", func(c *config.Config) { c.Extract.Workers = 0 }},
		{"negative min duration", func(c *config.Config) { c.Extract.MinDurationMS = -1 }},
		{"non-mp3 codec", func(c *config.Config) { c.Extract.Codec = "aac" }},
		{"bitrate without unit", func(c *config.Config) { c.Extract.Bitrate = "320" }},
		{"language list", func(c *config.Config) { c.Extract.Language = "lt,en" }},
		{"unknown language", func(c *config.Config) { c.Extract.Language = "klingon" }},
		{"unlisted language code", func(c *config.Config) { c.Extract.Language = "xx" }},
		{"zero sample rate", func(c *config.Config) { c.Assemble.SampleRate = 0 }},
		{"test size one", func(c *config.Config) { c.Assemble.TestSize = 1 }},
		{"negative test size", func(c *config.Config) { c.Assemble.TestSize = -0.1 }},
		{"unknown backend", func(c *config.Config) { c.Publish.Backend = "s3" }},
		{"unknown level", func(c *config.Config) { c.Logging.Level = "verbose" }},
		{"bare ntfy topic", func(c *config.Config) { c.Notify.NtfyTopic = "my-topic" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Extract.Codec = "libshine"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("libshine should validate: %v", err)
	}
}

func TestValidatePublish(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidatePublish(); err == nil {
		t.Fatal("expected error without repo id")
	}

	cfg.Publish.RepoID = "no-namespace"
	cfg.Publish.Token = "tok"
	if err := cfg.ValidatePublish(); err == nil {
		t.Fatal("expected error for repo id without namespace")
	}

	cfg.Publish.RepoID = "team/corpus"
	cfg.Publish.Token = ""
	if err := cfg.ValidatePublish(); err == nil {
		t.Fatal("expected error without token")
	}

	cfg.Publish.Token = "tok"
	if err := cfg.ValidatePublish(); err != nil {
		t.Fatalf("expected valid publish config, got %v", err)
	}

	cfg.Publish.Backend = config.BackendGDrive
	cfg.Publish.GDriveCredentials = filepath.Join(t.TempDir(), "missing.json")
	if err := cfg.ValidatePublish(); err == nil {
		t.Fatal("expected error for missing credentials file")
	}
}
