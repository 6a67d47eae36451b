package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-exam-grader/internal/lock"
	"github.com/noah-isme/gema-exam-grader/internal/models"
)

// FolderStore abstracts the folder-per-student archive backends.
type FolderStore interface {
	FindFolder(ctx context.Context, name string) (string, bool, error)
	CreateFolder(ctx context.Context, name string) (string, error)
	UploadReport(ctx context.Context, folderID, name string, content io.Reader) (string, error)
}

// ReportFileName names an archived report after its generation instant.
func ReportFileName(generatedAt time.Time) string {
	return "report_" + generatedAt.UTC().Format("2006-01-02T15-04-05.000Z")
}

// PersistenceService archives rendered reports into the student's folder.
type PersistenceService struct {
	store   FolderStore
	locker  lock.Locker
	timeout time.Duration
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewPersistenceService constructs the persistence stage. A nil locker falls back to an in-process lock.
func NewPersistenceService(store FolderStore, locker lock.Locker, timeout time.Duration, logger zerolog.Logger) *PersistenceService {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &PersistenceService{
		store:   store,
		locker:  locker,
		timeout: timeout,
		logger:  logger.With().Str("component", "persistence_service").Logger(),
		tracer:  otel.Tracer("github.com/noah-isme/gema-exam-grader/internal/service/persistence"),
	}
}

// Persist finds or creates the student folder and uploads the report into it.
func (s *PersistenceService) Persist(ctx context.Context, studentID string, report models.Report) (models.PersistedArtifact, error) {
	ctx, span := s.tracer.Start(ctx, "grading.persist")
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.store == nil {
		return models.PersistedArtifact{}, s.fail(span, "not configured", fmt.Errorf("storage backend not configured"))
	}

	release, err := s.locker.Acquire(ctx, "student-folder:"+studentID)
	if err != nil {
		return models.PersistedArtifact{}, s.fail(span, "lock failed", fmt.Errorf("lock student folder: %w", err))
	}
	defer release()

	folderID, found, err := s.store.FindFolder(ctx, studentID)
	if err != nil {
		return models.PersistedArtifact{}, s.fail(span, "lookup failed", err)
	}
	if !found {
		folderID, err = s.store.CreateFolder(ctx, studentID)
		if err != nil {
			return models.PersistedArtifact{}, s.fail(span, "create failed", err)
		}
	}
	span.SetAttributes(attribute.Bool("persist.folder_reused", found))

	fileName := ReportFileName(report.GeneratedAt)
	reference, err := s.store.UploadReport(ctx, folderID, fileName, strings.NewReader(report.Document()))
	if err != nil {
		return models.PersistedArtifact{}, s.fail(span, "upload failed", err)
	}

	s.logger.Info().
		Str("stage", string(StagePersisting)).
		Str("folder_id", folderID).
		Str("file_name", fileName).
		Bool("folder_reused", found).
		Msg("report archived")

	span.SetStatus(codes.Ok, "archived")
	return models.PersistedArtifact{
		FolderID:  folderID,
		FileName:  fileName,
		Reference: reference,
	}, nil
}

func (s *PersistenceService) fail(span trace.Span, status string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	return &StageError{Stage: StagePersisting, Err: fmt.Errorf("%w: %v", ErrPersistence, err)}
}
