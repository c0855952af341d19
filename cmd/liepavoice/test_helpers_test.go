package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"liepavoice/internal/config"
	"liepavoice/internal/media/audio"
	"liepavoice/internal/testsupport"
)

// fakeMediaTool decodes every recording to ten seconds of silence and writes
// placeholder clip files.
type fakeMediaTool struct {
	mu         sync.Mutex
	failDecode string
	exported   []string
	resampled  int
}

func (f *fakeMediaTool) Decode(_ context.Context, path string) (*audio.Buffer, error) {
	if f.failDecode != "" && strings.Contains(path, f.failDecode) {
		return nil, errors.New("invalid data found when processing input")
	}
	format := audio.Format{SampleRate: 1000, Channels: 1}
	return &audio.Buffer{Format: format, Data: make([]byte, 2*10*format.SampleRate)}, nil
}

func (f *fakeMediaTool) Export(_ context.Context, _ *audio.Buffer, dst string, _ audio.EncodeOptions) error {
	f.mu.Lock()
	f.exported = append(f.exported, filepath.Base(dst))
	f.mu.Unlock()
	return os.WriteFile(dst, []byte("ID3"), 0o644)
}

func (f *fakeMediaTool) Resample(_ context.Context, _, dst string, target audio.Format) (audio.WAVInfo, error) {
	f.mu.Lock()
	f.resampled++
	f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return audio.WAVInfo{}, err
	}
	if err := os.WriteFile(dst, []byte("RIFF"), 0o644); err != nil {
		return audio.WAVInfo{}, err
	}
	return audio.WAVInfo{Format: target, BitDepth: 16, Frames: int64(target.SampleRate)}, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	inputDir   string
	tool       *fakeMediaTool
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	for _, key := range []string{"HF_TOKEN", "HUGGING_FACE_HUB_TOKEN", "LIEPAVOICE_REPO_ID", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(key, "")
	}
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)...)
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "liepavoice", "config.toml")
	writeTestConfig(t, configPath, cfg)

	tool := &fakeMediaTool{}
	previous := newMediaTool
	newMediaTool = func(*config.Config) mediaTool { return tool }
	t.Cleanup(func() { newMediaTool = previous })

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		inputDir:   filepath.Join(base, "corpus"),
		tool:       tool,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeCorpus lays out a manifest with three recordings. S001 has one
// excluded segment, and S003 is the one to fail decoding in tests.
func writeCorpus(t *testing.T, inputDir string) {
	t.Helper()
	manifest := `{
		"rec1": {
			"media": {"path": "audio/S001.wav"},
			"speech": [
				{"beg": 0, "end": 2000, "len": 2000, "val": "Labas rytas"},
				{"beg": 2000, "end": 2600, "len": 600, "val": "+NOISE+"},
				{"beg": 3000, "end": 5000, "len": 2000, "val": "Kaip sekasi"}
			]
		},
		"rec2": {
			"media": {"path": "audio/S002.wav"},
			"speech": [
				{"beg": 0, "end": 1500, "len": 1500, "val": "Viskas gerai"},
				{"beg": 1500, "end": 4000, "len": 2500, "val": "Ačiū"}
			]
		},
		"rec3": {
			"media": {"path": "audio/S003.wav"},
			"speech": [
				{"beg": 0, "end": 3000, "len": 3000, "val": "Sugedęs įrašas"}
			]
		}
	}`
	testsupport.WriteText(t, filepath.Join(inputDir, "etc", "corpus-data.json"), manifest)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
