package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"liepavoice/internal/config"
	"liepavoice/internal/logging"
	"liepavoice/internal/services"
)

// writeDataset lays out a small saved dataset and returns its root.
func writeDataset(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "dataset")
	files := map[string]string{
		"dataset_dict.json":          `{"splits":["train","test"]}`,
		"README.md":                  "---\npretty_name: liepa_voice\n---\n",
		"train/metadata.csv":         "file_name,sentence,language\nS001/S001_000001.wav,labas,lt\n",
		"train/S001/S001_000001.wav": "RIFF-train-audio",
		"test/metadata.csv":          "file_name,sentence,language\nS001/S001_000002.wav,ačiū,lt\n",
		"test/S001/S001_000002.wav":  "RIFF-test-audio",
		".liepavoice.lock":           "",
		".cache/huggingface/ignored": "x",
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCollectFilesSkipsHiddenAndSorts(t *testing.T) {
	dir := writeDataset(t)
	files, err := CollectFiles(dir)
	if err != nil {
		t.Fatalf("CollectFiles returned error: %v", err)
	}
	var got []string
	for _, f := range files {
		got = append(got, f.Path)
	}
	want := []string{
		"README.md",
		"dataset_dict.json",
		"test/S001/S001_000002.wav",
		"test/metadata.csv",
		"train/S001/S001_000001.wav",
		"train/metadata.csv",
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected files: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("file %d: got %q want %q (all: %v)", i, got[i], want[i], got)
		}
	}
	if files[0].Size == 0 || files[0].AbsPath != filepath.Join(dir, "README.md") {
		t.Fatalf("unexpected file entry: %+v", files[0])
	}
}

func TestCollectFilesErrors(t *testing.T) {
	if _, err := CollectFiles(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := CollectFiles(t.TempDir()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty dir, got %v", err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Default().Publish
	cfg.Token = "tok"
	pub, err := New(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := pub.(*Hub); !ok {
		t.Fatalf("expected hub publisher, got %T", pub)
	}

	cfg.Backend = "s3"
	if _, err := New(context.Background(), cfg, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	cfg.Backend = config.BackendGDrive
	cfg.GDriveCredentials = filepath.Join(t.TempDir(), "missing.json")
	if _, err := New(context.Background(), cfg, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing key file, got %v", err)
	}

	badKey := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(badKey, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.GDriveCredentials = badKey
	if _, err := New(context.Background(), cfg, logging.NewNop()); !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error for malformed key, got %v", err)
	}
}

func TestTargetFromConfig(t *testing.T) {
	cfg := config.Default().Publish
	cfg.RepoID = "team/liepa_voice"
	target := TargetFromConfig(cfg)
	if target.RepoID != "team/liepa_voice" || !target.Private || target.CommitMessage == "" {
		t.Fatalf("unexpected target: %+v", target)
	}
}
