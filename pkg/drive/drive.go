package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	folderMimeType   = "application/vnd.google-apps.folder"
	documentMimeType = "application/vnd.google-apps.document"
	folderPageSize   = 100
)

// Config contains the service account credentials and the folder student folders live under.
type Config struct {
	CredentialsFile string
	RootFolderID    string
}

// Store keeps grading reports in a folder-per-student hierarchy on Google Drive.
type Store struct {
	files  *drive.FilesService
	root   string
	logger zerolog.Logger
}

// New constructs a Drive-backed report store.
func New(ctx context.Context, cfg Config, logger zerolog.Logger, opts ...option.ClientOption) (*Store, error) {
	if cfg.RootFolderID == "" {
		return nil, fmt.Errorf("drive root folder id must be provided")
	}
	if cfg.CredentialsFile != "" {
		opts = append([]option.ClientOption{
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(drive.DriveScope),
		}, opts...)
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize drive: %w", err)
	}

	return &Store{
		files:  svc.Files,
		root:   cfg.RootFolderID,
		logger: logger.With().Str("component", "drive").Logger(),
	}, nil
}

// FindFolder looks up a student folder by exact name under the root folder.
func (s *Store) FindFolder(ctx context.Context, name string) (string, bool, error) {
	pageToken := ""
	for {
		call := s.files.List().
			Q(FolderQuery(s.root, name)).
			Fields("nextPageToken, files(id, name)").
			PageSize(folderPageSize).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Context(ctx).Do()
		if err != nil {
			return "", false, fmt.Errorf("failed to search folder: %w", err)
		}

		for _, file := range list.Files {
			if file.Name == name {
				return file.Id, true, nil
			}
		}

		if list.NextPageToken == "" || list.NextPageToken == pageToken {
			return "", false, nil
		}
		pageToken = list.NextPageToken
	}
}

// CreateFolder creates a student folder under the root folder.
func (s *Store) CreateFolder(ctx context.Context, name string) (string, error) {
	folder, err := s.files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{s.root},
	}).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	s.logger.Info().Str("folder_id", folder.Id).Msg("student folder created")
	return folder.Id, nil
}

// UploadReport uploads an HTML report into the folder, converting it to a Google Doc.
func (s *Store) UploadReport(ctx context.Context, folderID, name string, content io.Reader) (string, error) {
	file, err := s.files.Create(&drive.File{
		Name:     name,
		MimeType: documentMimeType,
		Parents:  []string{folderID},
	}).
		Media(content, googleapi.ContentType("text/html")).
		Fields("id, webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	s.logger.Info().Str("file_id", file.Id).Msg("report uploaded to drive")

	if file.WebViewLink != "" {
		return file.WebViewLink, nil
	}
	return fmt.Sprintf("https://docs.google.com/document/d/%s/view", file.Id), nil
}

// FolderQuery builds the Drive search expression matching a folder by exact name.
func FolderQuery(parentID, name string) string {
	return fmt.Sprintf("name = '%s' and mimeType = '%s' and '%s' in parents and trashed = false",
		escapeQueryValue(name), folderMimeType, escapeQueryValue(parentID))
}

func escapeQueryValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}
