package registry

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"liepavoice/internal/fileutil"
	"liepavoice/internal/logging"
	"liepavoice/internal/services"
)

const (
	defaultRevision = "main"
	// preuploadBatch is the number of files the Hub classifies per request.
	preuploadBatch = 256
	// lfsBatchSize is the number of objects negotiated per LFS batch request.
	lfsBatchSize = 256
	lfsMediaType = "application/vnd.git-lfs+json"
)

// HTTPDoer describes the HTTP client used to talk to the Hub.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Hub publishes datasets to a Hugging Face Hub compatible endpoint.
type Hub struct {
	baseURL string
	token   string
	client  HTTPDoer
	logger  *slog.Logger
}

// NewHub constructs a Hub publisher. A nil client uses http.DefaultClient.
func NewHub(baseURL, token string, client HTTPDoer, logger *slog.Logger) *Hub {
	if client == nil {
		client = http.DefaultClient
	}
	return &Hub{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  client,
		logger:  logging.NewComponentLogger(logger, "hub"),
	}
}

// hubFile pairs a local file with its content digest.
type hubFile struct {
	File
	digest fileutil.Digest
	lfs    bool
}

// Publish uploads every file under dir to the dataset repository and records
// them in a single commit. The repository is created when missing.
func (h *Hub) Publish(ctx context.Context, dir string, target Target) (Result, error) {
	if !strings.Contains(target.RepoID, "/") {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "hub", fmt.Sprintf("repo id %q must be <namespace>/<name>", target.RepoID), nil)
	}
	files, err := CollectFiles(dir)
	if err != nil {
		return Result{}, err
	}

	user, err := h.WhoAmI(ctx)
	if err != nil {
		return Result{}, err
	}
	h.logger.Info("authenticated", logging.Args(logging.String("user", user))...)

	if err := h.CreateRepo(ctx, target.RepoID, user, target.Private); err != nil {
		return Result{}, err
	}

	entries := make([]hubFile, 0, len(files))
	var total int64
	for _, f := range files {
		digest, err := fileutil.HashFile(f.AbsPath)
		if err != nil {
			return Result{}, services.Wrap(services.ErrNotFound, stageName, "hub", "hash "+f.Path, err)
		}
		entries = append(entries, hubFile{File: f, digest: digest})
		total += f.Size
	}
	if err := h.classify(ctx, target.RepoID, entries); err != nil {
		return Result{}, err
	}
	uploaded, err := h.uploadLFS(ctx, target.RepoID, entries)
	if err != nil {
		return Result{}, err
	}
	commitURL, err := h.commit(ctx, target, entries)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		URL:      commitURL,
		Files:    len(entries),
		Bytes:    total,
		Uploaded: uploaded,
	}
	if result.URL == "" {
		result.URL = h.baseURL + "/datasets/" + target.RepoID
	}
	return result, nil
}

// WhoAmI validates the token and returns the account name it belongs to.
func (h *Hub) WhoAmI(ctx context.Context) (string, error) {
	if h.token == "" {
		return "", services.Wrap(services.ErrAuth, stageName, "whoami", "no token configured", nil)
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := h.doJSON(ctx, http.MethodGet, h.baseURL+"/api/whoami-v2", nil, &body, "whoami"); err != nil {
		return "", err
	}
	if body.Name == "" {
		return "", services.Wrap(services.ErrAuth, stageName, "whoami", "token did not resolve to an account", nil)
	}
	return body.Name, nil
}

// CreateRepo creates the dataset repository. An existing repository is not an
// error and keeps its visibility.
func (h *Hub) CreateRepo(ctx context.Context, repoID, user string, private bool) error {
	namespace, name, _ := strings.Cut(repoID, "/")
	payload := map[string]any{
		"type":    "dataset",
		"name":    name,
		"private": private,
	}
	if namespace != user {
		payload["organization"] = namespace
	}
	err := h.doJSON(ctx, http.MethodPost, h.baseURL+"/api/repos/create", payload, nil, "create repo")
	var status *statusError
	if errors.As(err, &status) && status.code == http.StatusConflict {
		h.logger.Debug("repository exists", logging.Args(logging.String("repo", repoID))...)
		return nil
	}
	return err
}

// classify asks the Hub which files must go through LFS.
func (h *Hub) classify(ctx context.Context, repoID string, entries []hubFile) error {
	endpoint := fmt.Sprintf("%s/api/datasets/%s/preupload/%s", h.baseURL, repoID, defaultRevision)
	for start := 0; start < len(entries); start += preuploadBatch {
		batch := entries[start:min(start+preuploadBatch, len(entries))]
		type preFile struct {
			Path   string `json:"path"`
			Size   int64  `json:"size"`
			Sample string `json:"sample"`
		}
		req := struct {
			Files []preFile `json:"files"`
		}{Files: make([]preFile, 0, len(batch))}
		for _, e := range batch {
			req.Files = append(req.Files, preFile{
				Path:   e.Path,
				Size:   e.digest.Size,
				Sample: base64.StdEncoding.EncodeToString(e.digest.Sample),
			})
		}
		var resp struct {
			Files []struct {
				Path       string `json:"path"`
				UploadMode string `json:"uploadMode"`
			} `json:"files"`
		}
		if err := h.doJSON(ctx, http.MethodPost, endpoint, req, &resp, "preupload"); err != nil {
			return err
		}
		modes := make(map[string]string, len(resp.Files))
		for _, f := range resp.Files {
			modes[f.Path] = f.UploadMode
		}
		for i := range batch {
			batch[i].lfs = modes[batch[i].Path] == "lfs"
		}
	}
	return nil
}

type lfsAction struct {
	Href   string            `json:"href"`
	Header map[string]string `json:"header"`
}

type lfsObject struct {
	OID     string `json:"oid"`
	Size    int64  `json:"size"`
	Actions struct {
		Upload *lfsAction `json:"upload"`
		Verify *lfsAction `json:"verify"`
	} `json:"actions"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type lfsRef struct {
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

// uploadLFS negotiates the LFS batch and transfers objects the server lacks.
// Objects are negotiated in chunks so large datasets stay under the server's
// payload limit.
func (h *Hub) uploadLFS(ctx context.Context, repoID string, entries []hubFile) (int, error) {
	byOID := map[string]hubFile{}
	var refs []lfsRef
	for _, e := range entries {
		if !e.lfs {
			continue
		}
		if _, dup := byOID[e.digest.SHA256]; dup {
			continue
		}
		byOID[e.digest.SHA256] = e
		refs = append(refs, lfsRef{OID: e.digest.SHA256, Size: e.digest.Size})
	}

	var objects []lfsObject
	for start := 0; start < len(refs); start += lfsBatchSize {
		batch, err := h.lfsBatch(ctx, repoID, refs[start:min(start+lfsBatchSize, len(refs))])
		if err != nil {
			return 0, err
		}
		objects = append(objects, batch...)
	}

	uploaded := 0
	for _, obj := range objects {
		if obj.Error != nil {
			return uploaded, services.Wrap(services.ErrExternalTool, stageName, "lfs batch",
				fmt.Sprintf("object %s rejected (%d): %s", obj.OID, obj.Error.Code, obj.Error.Message), nil)
		}
		if obj.Actions.Upload == nil {
			continue
		}
		entry, ok := byOID[obj.OID]
		if !ok {
			return uploaded, services.Wrap(services.ErrExternalTool, stageName, "lfs batch", "server returned unknown object "+obj.OID, nil)
		}
		if err := h.putObject(ctx, entry, obj.Actions.Upload); err != nil {
			return uploaded, err
		}
		if obj.Actions.Verify != nil {
			if err := h.verifyObject(ctx, obj, obj.Actions.Verify); err != nil {
				return uploaded, err
			}
		}
		uploaded++
		h.logger.Debug("lfs object uploaded", logging.Args(logging.String("path", entry.Path), logging.Int64("bytes", entry.Size))...)
	}
	return uploaded, nil
}

// lfsBatch asks the LFS endpoint for upload actions for one chunk of objects.
func (h *Hub) lfsBatch(ctx context.Context, repoID string, refs []lfsRef) ([]lfsObject, error) {
	payload := map[string]any{
		"operation": "upload",
		"transfers": []string{"basic"},
		"objects":   refs,
		"hash_algo": "sha256",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode lfs batch: %w", err)
	}
	endpoint := fmt.Sprintf("%s/datasets/%s.git/info/lfs/objects/batch", h.baseURL, repoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build lfs batch request: %w", err)
	}
	req.Header.Set("Accept", lfsMediaType)
	req.Header.Set("Content-Type", lfsMediaType)
	var batch struct {
		Objects []lfsObject `json:"objects"`
	}
	if err := h.send(req, &batch, "lfs batch"); err != nil {
		return nil, err
	}
	return batch.Objects, nil
}

func (h *Hub) putObject(ctx context.Context, entry hubFile, action *lfsAction) error {
	f, err := os.Open(entry.AbsPath)
	if err != nil {
		return services.Wrap(services.ErrNotFound, stageName, "lfs upload", entry.Path, err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, action.Href, f)
	if err != nil {
		return fmt.Errorf("build lfs upload request: %w", err)
	}
	req.ContentLength = entry.Size
	for key, value := range action.Header {
		req.Header.Set(key, value)
	}
	// Upload hrefs are presigned; the Hub token is not sent to them.
	resp, err := h.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "lfs upload", entry.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return statusFailure("lfs upload "+entry.Path, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (h *Hub) verifyObject(ctx context.Context, obj lfsObject, action *lfsAction) error {
	body, err := json.Marshal(map[string]any{"oid": obj.OID, "size": obj.Size})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action.Href, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build lfs verify request: %w", err)
	}
	req.Header.Set("Content-Type", lfsMediaType)
	for key, value := range action.Header {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Authorization") == "" {
		h.authorize(req)
	}
	return h.sendRaw(req, nil, "lfs verify")
}

// commit records every file in one NDJSON commit: small files inline as base64
// and LFS files by pointer.
func (h *Hub) commit(ctx context.Context, target Target, entries []hubFile) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	message := strings.TrimSpace(target.CommitMessage)
	if message == "" {
		message = "Upload dataset"
	}
	lines := []any{map[string]any{
		"key":   "header",
		"value": map[string]string{"summary": message, "description": ""},
	}}
	for _, e := range entries {
		if e.lfs {
			lines = append(lines, map[string]any{
				"key": "lfsFile",
				"value": map[string]any{
					"path": e.Path,
					"algo": "sha256",
					"oid":  e.digest.SHA256,
					"size": e.digest.Size,
				},
			})
			continue
		}
		content, err := os.ReadFile(e.AbsPath)
		if err != nil {
			return "", services.Wrap(services.ErrNotFound, stageName, "commit", e.Path, err)
		}
		lines = append(lines, map[string]any{
			"key": "file",
			"value": map[string]string{
				"path":     e.Path,
				"content":  base64.StdEncoding.EncodeToString(content),
				"encoding": "base64",
			},
		})
	}
	for _, line := range lines {
		if err := enc.Encode(line); err != nil {
			return "", fmt.Errorf("encode commit: %w", err)
		}
	}

	endpoint := fmt.Sprintf("%s/api/datasets/%s/commit/%s", h.baseURL, target.RepoID, defaultRevision)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("build commit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	var resp struct {
		CommitURL string `json:"commitUrl"`
	}
	if err := h.send(req, &resp, "commit"); err != nil {
		return "", err
	}
	return resp.CommitURL, nil
}

func (h *Hub) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+h.token)
}

func (h *Hub) doJSON(ctx context.Context, method, endpoint string, payload, out any, op string) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.send(req, out, op)
}

func (h *Hub) send(req *http.Request, out any, op string) error {
	h.authorize(req)
	return h.sendRaw(req, out, op)
}

func (h *Hub) sendRaw(req *http.Request, out any, op string) error {
	resp, err := h.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, op, "request "+redact(req.URL), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return statusFailure(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, op, "decode response", err)
	}
	return nil
}

// statusError carries a non-2xx Hub response.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("status %d", e.code)
	}
	return fmt.Sprintf("status %d: %s", e.code, e.message)
}

func statusFailure(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(raw))
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		message = parsed.Error
	}
	err := &statusError{code: resp.StatusCode, message: message}
	marker := services.ErrExternalTool
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		marker = services.ErrAuth
	case http.StatusNotFound:
		marker = services.ErrNotFound
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		marker = services.ErrTransient
	}
	return services.Wrap(marker, stageName, op, "", err)
}

func redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	clean.RawQuery = ""
	return clean.String()
}
