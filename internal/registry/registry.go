package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"liepavoice/internal/config"
	"liepavoice/internal/services"
)

const stageName = "publish"

// Target identifies where a dataset is published.
type Target struct {
	RepoID        string
	Private       bool
	CommitMessage string
}

// Result summarizes a completed upload.
type Result struct {
	URL   string
	Files int
	Bytes int64
	// Uploaded counts files whose content was transferred; the rest were
	// already present remotely.
	Uploaded int
}

// Publisher pushes a local dataset directory to a registry.
type Publisher interface {
	Publish(ctx context.Context, dir string, target Target) (Result, error)
}

// File is one file in the dataset tree.
type File struct {
	// Path is slash-separated and relative to the dataset root.
	Path    string
	AbsPath string
	Size    int64
}

// CollectFiles lists every regular file under dir in path order. Hidden files
// and directories are skipped.
func CollectFiles(dir string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, File{Path: filepath.ToSlash(rel), AbsPath: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, "collect", "walk "+dir, err)
	}
	if len(files) == 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "collect", fmt.Sprintf("%s contains no files", dir), nil)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// TargetFromConfig builds the publish target from configuration.
func TargetFromConfig(cfg config.Publish) Target {
	return Target{
		RepoID:        cfg.RepoID,
		Private:       cfg.Private,
		CommitMessage: cfg.CommitMessage,
	}
}

// New returns the publisher for the configured backend. Credentials are
// checked by config.ValidatePublish before this is called.
func New(ctx context.Context, cfg config.Publish, logger *slog.Logger) (Publisher, error) {
	switch cfg.Backend {
	case config.BackendHuggingFace, "":
		return NewHub(cfg.BaseURL, cfg.Token, nil, logger), nil
	case config.BackendGDrive:
		files, err := NewDriveFiles(ctx, cfg.GDriveCredentials)
		if err != nil {
			return nil, err
		}
		return NewDrive(files, cfg.GDriveParentID, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, stageName, "backend", fmt.Sprintf("unsupported backend %q", cfg.Backend), nil)
	}
}
