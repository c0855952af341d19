package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"liepavoice/internal/logging"
	"liepavoice/internal/services"
)

type fakeDriveFiles struct {
	nextID    int
	folders   map[string]string // parentID/name -> id
	files     map[string]string // parentID/name -> content
	uploadErr error
	creates   int
}

func newFakeDriveFiles() *fakeDriveFiles {
	return &fakeDriveFiles{folders: map[string]string{}, files: map[string]string{}}
}

func (f *fakeDriveFiles) FindFolder(_ context.Context, name, parentID string) (string, error) {
	return f.folders[parentID+"/"+name], nil
}

func (f *fakeDriveFiles) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	f.nextID++
	f.creates++
	id := fmt.Sprintf("folder-%d", f.nextID)
	f.folders[parentID+"/"+name] = id
	return id, nil
}

func (f *fakeDriveFiles) Upload(_ context.Context, name, parentID string, content io.Reader) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	f.files[parentID+"/"+name] = string(data)
	return "file-" + name, nil
}

func TestDrivePublishMirrorsTree(t *testing.T) {
	files := newFakeDriveFiles()
	pub := NewDrive(files, "", logging.NewNop())

	result, err := pub.Publish(context.Background(), writeDataset(t), Target{RepoID: "team/liepa_voice"})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	root := files.folders["root/liepa_voice"]
	if root == "" {
		t.Fatalf("expected dataset folder under root, got %v", files.folders)
	}
	if result.URL != "https://drive.google.com/drive/folders/"+root {
		t.Fatalf("unexpected url: %q", result.URL)
	}
	if result.Files != 6 || result.Uploaded != 6 {
		t.Fatalf("unexpected result: %+v", result)
	}

	train := files.folders[root+"/train"]
	trainGroup := files.folders[train+"/S001"]
	if train == "" || trainGroup == "" {
		t.Fatalf("expected nested split folders, got %v", files.folders)
	}
	if files.files[trainGroup+"/S001_000001.wav"] != "RIFF-train-audio" {
		t.Fatalf("clip not uploaded into its group folder: %v", files.files)
	}
	if _, ok := files.files[root+"/README.md"]; !ok {
		t.Fatalf("card not uploaded at the dataset root: %v", files.files)
	}

	// A second publish reuses every folder.
	before := files.creates
	if _, err := pub.Publish(context.Background(), writeDataset(t), Target{RepoID: "team/liepa_voice"}); err != nil {
		t.Fatal(err)
	}
	if files.creates != before {
		t.Fatalf("expected folders to be reused, created %d more", files.creates-before)
	}
}

func TestDrivePublishUsesParentFolder(t *testing.T) {
	files := newFakeDriveFiles()
	pub := NewDrive(files, "shared-123", logging.NewNop())
	if _, err := pub.Publish(context.Background(), writeDataset(t), Target{RepoID: "liepa_voice"}); err != nil {
		t.Fatal(err)
	}
	if files.folders["shared-123/liepa_voice"] == "" {
		t.Fatalf("expected folder under configured parent: %v", files.folders)
	}
}

func TestDriveFailuresAreClassified(t *testing.T) {
	files := newFakeDriveFiles()
	files.uploadErr = &googleapi.Error{Code: http.StatusForbidden, Message: "insufficient permissions"}
	pub := NewDrive(files, "", logging.NewNop())

	_, err := pub.Publish(context.Background(), writeDataset(t), Target{RepoID: "team/liepa_voice"})
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}

	files.uploadErr = errors.New("connection reset")
	_, err = pub.Publish(context.Background(), writeDataset(t), Target{RepoID: "team/liepa_voice"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestEscapeQuery(t *testing.T) {
	if got := escapeQuery(`it's a \ test`); got != `it\'s a \\ test` {
		t.Fatalf("unexpected escape: %q", got)
	}
}
