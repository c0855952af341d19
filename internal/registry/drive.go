package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"liepavoice/internal/logging"
	"liepavoice/internal/services"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveFiles is the subset of the Drive API the publisher needs.
type DriveFiles interface {
	FindFolder(ctx context.Context, name, parentID string) (string, error)
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	// Upload creates or replaces the file name inside parentID.
	Upload(ctx context.Context, name, parentID string, content io.Reader) (string, error)
}

// Drive mirrors a dataset directory into a Google Drive folder.
type Drive struct {
	files    DriveFiles
	parentID string
	logger   *slog.Logger
}

// NewDrive constructs a Drive publisher rooted under parentID ("root" when empty).
func NewDrive(files DriveFiles, parentID string, logger *slog.Logger) *Drive {
	if strings.TrimSpace(parentID) == "" {
		parentID = "root"
	}
	return &Drive{files: files, parentID: parentID, logger: logging.NewComponentLogger(logger, "gdrive")}
}

// Publish uploads dir into a folder named after the repository name. Files
// already present are overwritten in place; Drive items stay private to the
// service account unless shared.
func (d *Drive) Publish(ctx context.Context, dir string, target Target) (Result, error) {
	files, err := CollectFiles(dir)
	if err != nil {
		return Result{}, err
	}
	name := target.RepoID
	if _, after, ok := strings.Cut(name, "/"); ok {
		name = after
	}
	if name == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, stageName, "gdrive", "repo id is required", nil)
	}

	rootID, err := d.ensureFolder(ctx, name, d.parentID)
	if err != nil {
		return Result{}, err
	}
	folders := map[string]string{".": rootID}

	result := Result{URL: "https://drive.google.com/drive/folders/" + rootID}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		parentID, err := d.folderFor(ctx, folders, path.Dir(f.Path))
		if err != nil {
			return result, err
		}
		if err := d.upload(ctx, f, parentID); err != nil {
			return result, err
		}
		result.Files++
		result.Uploaded++
		result.Bytes += f.Size
		d.logger.Debug("file uploaded", logging.Args(logging.String("path", f.Path), logging.Int64("bytes", f.Size))...)
	}
	return result, nil
}

// folderFor resolves a slash path to a folder id, creating missing levels.
func (d *Drive) folderFor(ctx context.Context, folders map[string]string, dir string) (string, error) {
	if id, ok := folders[dir]; ok {
		return id, nil
	}
	parentID, err := d.folderFor(ctx, folders, path.Dir(dir))
	if err != nil {
		return "", err
	}
	id, err := d.ensureFolder(ctx, path.Base(dir), parentID)
	if err != nil {
		return "", err
	}
	folders[dir] = id
	return id, nil
}

func (d *Drive) ensureFolder(ctx context.Context, name, parentID string) (string, error) {
	id, err := d.files.FindFolder(ctx, name, parentID)
	if err != nil {
		return "", driveFailure("find folder "+name, err)
	}
	if id != "" {
		return id, nil
	}
	id, err = d.files.CreateFolder(ctx, name, parentID)
	if err != nil {
		return "", driveFailure("create folder "+name, err)
	}
	return id, nil
}

func (d *Drive) upload(ctx context.Context, f File, parentID string) error {
	content, err := os.Open(f.AbsPath)
	if err != nil {
		return services.Wrap(services.ErrNotFound, stageName, "gdrive", f.Path, err)
	}
	defer content.Close()
	if _, err := d.files.Upload(ctx, path.Base(f.Path), parentID, content); err != nil {
		return driveFailure("upload "+f.Path, err)
	}
	return nil
}

func driveFailure(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrAuth, stageName, "gdrive", op, err)
		case http.StatusNotFound:
			return services.Wrap(services.ErrNotFound, stageName, "gdrive", op, err)
		}
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return services.Wrap(services.ErrAuth, stageName, "gdrive", op, err)
	}
	return services.Wrap(services.ErrExternalTool, stageName, "gdrive", op, err)
}

// driveService adapts drive/v3 to DriveFiles.
type driveService struct {
	svc *drive.Service
}

// NewDriveFiles authenticates with a service account key file.
func NewDriveFiles(ctx context.Context, credentialsFile string) (DriveFiles, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "gdrive", "read credentials", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveFileScope)
	if err != nil {
		return nil, services.Wrap(services.ErrAuth, stageName, "gdrive", "parse credentials", err)
	}
	client := oauth2.NewClient(ctx, creds.TokenSource)
	svc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "gdrive", "create drive service", err)
	}
	return &driveService{svc: svc}, nil
}

func escapeQuery(value string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
}

func (s *driveService) find(ctx context.Context, name, parentID, mimeClause string) (string, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false%s", escapeQuery(name), escapeQuery(parentID), mimeClause)
	list, err := s.svc.Files.List().Q(query).Spaces("drive").Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func (s *driveService) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	return s.find(ctx, name, parentID, fmt.Sprintf(" and mimeType='%s'", folderMimeType))
}

func (s *driveService) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	folder := &drive.File{Name: name, MimeType: folderMimeType, Parents: []string{parentID}}
	created, err := s.svc.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (s *driveService) Upload(ctx context.Context, name, parentID string, content io.Reader) (string, error) {
	existing, err := s.find(ctx, name, parentID, fmt.Sprintf(" and mimeType!='%s'", folderMimeType))
	if err != nil {
		return "", err
	}
	if existing != "" {
		updated, err := s.svc.Files.Update(existing, &drive.File{}).Media(content).Fields("id").Context(ctx).Do()
		if err != nil {
			return "", err
		}
		return updated.Id, nil
	}
	created, err := s.svc.Files.Create(&drive.File{Name: name, Parents: []string{parentID}}).Media(content).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}
