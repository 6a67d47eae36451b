package cloudinary

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	// APIURL overrides the API host, e.g. a regional endpoint. Empty keeps the SDK default.
	APIURL string
}

// folderPageSize is the largest page the folders endpoints accept.
const folderPageSize = 500

// Service stores grading reports as raw assets in per-student Cloudinary folders.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	conf, err := config.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	if cfg.APIURL != "" {
		conf.API.UploadPrefix = strings.TrimRight(cfg.APIURL, "/")
	}

	cld, err := cloudinary.NewFromConfiguration(*conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// FindFolder looks up the student folder among the sub folders of the base folder.
func (s *Service) FindFolder(ctx context.Context, name string) (string, bool, error) {
	folderName := SanitizeFolderName(name)

	cursor := ""
	for {
		result, err := s.listFolders(ctx, cursor)
		if err != nil {
			return "", false, err
		}
		if result.Error.Message != "" {
			// Cloudinary reports a missing base folder as an API error; nothing exists below it yet.
			s.logger.Debug().Str("folder", s.folder).Str("reason", result.Error.Message).Msg("base folder not listed")
			return "", false, nil
		}

		for _, folder := range result.Folders {
			if folder.Name == folderName {
				return folder.Path, true, nil
			}
		}

		if result.NextCursor == "" || result.NextCursor == cursor {
			return "", false, nil
		}
		cursor = result.NextCursor
	}
}

func (s *Service) listFolders(ctx context.Context, cursor string) (*admin.FoldersResult, error) {
	if s.folder == "" {
		result, err := s.client.Admin.RootFolders(ctx, admin.RootFoldersParams{MaxResults: folderPageSize, NextCursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("failed to list root folders: %w", err)
		}
		return result, nil
	}

	result, err := s.client.Admin.SubFolders(ctx, admin.SubFoldersParams{Folder: s.folder, MaxResults: folderPageSize, NextCursor: cursor})
	if err != nil {
		return nil, fmt.Errorf("failed to list sub folders: %w", err)
	}
	return result, nil
}

// CreateFolder creates the student folder below the base folder.
func (s *Service) CreateFolder(ctx context.Context, name string) (string, error) {
	path := s.folderPath(name)

	result, err := s.client.Admin.CreateFolder(ctx, admin.CreateFolderParams{Folder: path})
	if err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to create folder: %s", result.Error.Message)
	}

	s.logger.Info().Str("folder", path).Msg("student folder created")
	return path, nil
}

// UploadReport sends the report to Cloudinary and returns a secure URL.
func (s *Service) UploadReport(ctx context.Context, folderID, name string, content io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       folderID,
		PublicID:     buildPublicID(name),
		ResourceType: "raw",
	}

	result, err := s.client.Upload.Upload(ctx, content, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload report: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("report uploaded to cloudinary")

	return result.SecureURL, nil
}

func (s *Service) folderPath(name string) string {
	folderName := SanitizeFolderName(name)
	if s.folder == "" {
		return folderName
	}
	return s.folder + "/" + folderName
}

// SanitizeFolderName encodes a student identifier into the characters Cloudinary accepts in folder names.
// Letters, digits and '-' pass through; every other byte becomes '_' followed by two hex digits, so
// distinct identifiers never share a folder. The empty identifier encodes to a lone "_".
func SanitizeFolderName(name string) string {
	if name == "" {
		return "_"
	}

	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "_%02X", c)
	}
	return b.String()
}

func buildPublicID(name string) string {
	base := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '-'
	}, name)

	base = strings.Trim(base, "-")
	if base == "" {
		base = "report"
	}
	if !strings.HasSuffix(base, ".html") {
		base += ".html"
	}

	return base
}
