package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"liepavoice/internal/dataset"
	"liepavoice/internal/services"
	"liepavoice/internal/testsupport"
)

func TestExtractAssembleAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	writeCorpus(t, env.inputDir)
	env.tool.failDecode = "S003"

	out, _, err := runCLI(t, []string{"extract", "-i", env.inputDir}, env.configPath)
	if err == nil {
		t.Fatal("expected extract to report the failed group")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	requireContains(t, out, "Exported 4 clips from 2 groups (1 segments skipped, 1 groups failed)")
	requireContains(t, out, "S003")
	for _, clip := range []string{"S001/S001_000001.mp3", "S001/S001_000003.mp3", "S002/S002_000002.mp3", "S001/metadata.csv"} {
		if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, filepath.FromSlash(clip))); err != nil {
			t.Fatalf("expected %s: %v", clip, err)
		}
	}

	out, _, err = runCLI(t, []string{"assemble", "--seed", "7", "--test-size", "0.25"}, env.configPath)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	requireContains(t, out, "seed 7")
	requireContains(t, out, "2 groups, 1 skipped")
	requireContains(t, out, "skipped S003")
	if env.tool.resampled != 4 {
		t.Fatalf("expected 4 resampled clips, got %d", env.tool.resampled)
	}
	splits, err := dataset.LoadDict(env.cfg.Paths.DatasetDir)
	if err != nil {
		t.Fatalf("LoadDict: %v", err)
	}
	if strings.Join(splits, ",") != "train,test" {
		t.Fatalf("unexpected splits: %v", splits)
	}

	out, _, err = runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var runs []runView
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode status json: %v\n%s", err, out)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	assembled, extracted := runs[0], runs[1]
	if assembled.Kind != "assemble" || assembled.Status != "partial" || assembled.Records != 4 || assembled.Seed != 7 {
		t.Fatalf("unexpected assemble run: %+v", assembled)
	}
	if extracted.Kind != "extract" || extracted.Status != "partial" || extracted.Records != 4 {
		t.Fatalf("unexpected extract run: %+v", extracted)
	}

	out, _, err = runCLI(t, []string{"status", extracted.ID, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status run: %v", err)
	}
	var detail runView
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode run json: %v", err)
	}
	if len(detail.Groups) != 3 {
		t.Fatalf("expected 3 group outcomes, got %+v", detail.Groups)
	}
	byGroup := map[string]groupView{}
	for _, g := range detail.Groups {
		byGroup[g.Group] = g
	}
	if g := byGroup["S001"]; g.Exported != 2 || g.Skipped != 1 || g.Error != "" {
		t.Fatalf("unexpected S001 outcome: %+v", g)
	}
	if g := byGroup["S003"]; g.FailureKind != "external_tool" || g.Error == "" {
		t.Fatalf("unexpected S003 outcome: %+v", g)
	}

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status table: %v", err)
	}
	requireContains(t, out, extracted.ID)
	requireContains(t, out, "1 groups skipped")
}

func TestExtractRequiresInput(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"extract"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), `required flag(s) "input"`) {
		t.Fatalf("expected missing input error, got %v", err)
	}
}

func TestExtractRejectsMissingCorpus(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"extract", "-i", env.inputDir}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	requireContains(t, err.Error(), "Corpus directory")
}

func TestAssembleWithoutClips(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, []string{"assemble"}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty output, got %v", err)
	}
	if _, statErr := os.Stat(env.cfg.Paths.DatasetDir); !os.IsNotExist(statErr) {
		t.Fatalf("no dataset should be written, stat returned %v", statErr)
	}
}

func TestFailedExtractSendsNotification(t *testing.T) {
	var mu sync.Mutex
	var titles, priorities []string
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		titles = append(titles, r.Header.Get("Title"))
		priorities = append(priorities, r.Header.Get("Priority"))
		w.WriteHeader(http.StatusOK)
	}))
	defer ntfy.Close()

	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(ntfy.URL))
	writeCorpus(t, env.inputDir)
	env.tool.failDecode = "S003"

	if _, _, err := runCLI(t, []string{"extract", "-i", env.inputDir}, env.configPath); err == nil {
		t.Fatal("expected extract to report the failed group")
	}

	mu.Lock()
	gotTitles, gotPriorities := append([]string(nil), titles...), append([]string(nil), priorities...)
	mu.Unlock()
	if len(gotTitles) != 1 || gotTitles[0] != "liepavoice - Extract partial" {
		t.Fatalf("expected one partial extract notice, got %v", gotTitles)
	}
	if gotPriorities[0] != "" {
		t.Fatalf("partial runs use default priority, got %q", gotPriorities[0])
	}

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
}

func TestPublishWithoutDataset(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"publish"}, env.configPath)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	requireContains(t, err.Error(), "liepavoice assemble")
}

func TestAssembleKeepsDatasetWhenPublishSettingsMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	writeCorpus(t, env.inputDir)
	if _, _, err := runCLI(t, []string{"extract", "-i", env.inputDir}, env.configPath); err != nil {
		t.Fatalf("extract: %v", err)
	}

	_, _, err := runCLI(t, []string{"assemble", "--publish"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error from publish step, got %v", err)
	}
	requireContains(t, err.Error(), "publish.repo_id")
	if _, err := dataset.LoadDict(env.cfg.Paths.DatasetDir); err != nil {
		t.Fatalf("local dataset should remain after publish failure: %v", err)
	}
}

// fakeHubServer accepts uploads where every file is committed inline.
type fakeHubServer struct {
	mu        sync.Mutex
	committed int
}

func (h *fakeHubServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer hf_cli" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch {
	case r.URL.Path == "/api/whoami-v2":
		_, _ = io.WriteString(w, `{"name":"team"}`)
	case r.URL.Path == "/api/repos/create":
		_, _ = io.WriteString(w, `{}`)
	case strings.HasSuffix(r.URL.Path, "/preupload/main"):
		var req struct {
			Files []struct {
				Path string `json:"path"`
			} `json:"files"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		files := make([]map[string]string, 0, len(req.Files))
		for _, f := range req.Files {
			files = append(files, map[string]string{"path": f.Path, "uploadMode": "regular"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"files": files})
	case strings.HasSuffix(r.URL.Path, "/commit/main"):
		body, _ := io.ReadAll(r.Body)
		h.committed = strings.Count(strings.TrimSpace(string(body)), "\n")
		_, _ = io.WriteString(w, `{"commitUrl":"https://hub.test/datasets/team/liepa_voice/commit/1"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestAssembleAndPublishToHub(t *testing.T) {
	hub := &fakeHubServer{}
	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)

	env := setupCLITestEnv(t, testsupport.WithPublishTarget(server.URL, "team/liepa_voice", "hf_cli"))
	writeCorpus(t, env.inputDir)
	if _, _, err := runCLI(t, []string{"extract", "-i", env.inputDir}, env.configPath); err != nil {
		t.Fatalf("extract: %v", err)
	}

	out, _, err := runCLI(t, []string{"assemble", "--publish", "--seed", "3"}, env.configPath)
	if err != nil {
		t.Fatalf("assemble --publish: %v", err)
	}
	requireContains(t, out, "to https://hub.test/datasets/team/liepa_voice/commit/1")
	if hub.committed == 0 {
		t.Fatal("expected a commit with files")
	}

	out, _, err = runCLI(t, []string{"status", "--json", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var runs []runView
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(runs) != 1 || runs[0].Kind != "publish" || runs[0].Status != "succeeded" {
		t.Fatalf("expected succeeded publish run, got %+v", runs)
	}
}

func TestStatusEmptyLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "No runs recorded yet")

	_, _, err = runCLI(t, []string{"status", "missing-run"}, env.configPath)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown run, got %v", err)
	}
}

func TestDoctorListsChecks(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, _ := runCLI(t, []string{"doctor", "-i", env.inputDir}, env.configPath)
	requireContains(t, out, "== Environment ==")
	requireContains(t, out, "FFmpeg:")
	requireContains(t, out, "Corpus manifest:")
	requireContains(t, out, "[FAIL]")
}
