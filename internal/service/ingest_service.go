package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-exam-grader/internal/models"
	"github.com/noah-isme/gema-exam-grader/internal/observability"
)

// IngestInput is the raw grading request as received from the HTTP boundary.
type IngestInput struct {
	File      *multipart.FileHeader
	StudentID string
	Rubric    string
	Criteria  string
}

// Ingestor validates and normalizes incoming grading requests.
type Ingestor interface {
	Ingest(ctx context.Context, input IngestInput) (models.GradingRequest, error)
}

type ingestor struct {
	validator *validator.Validate
	logger    zerolog.Logger
	maxSize   int64
	tracer    trace.Tracer
}

// NewIngestor constructs the artifact ingestor.
func NewIngestor(validate *validator.Validate, maxSizeMB int, logger zerolog.Logger) Ingestor {
	if maxSizeMB <= 0 {
		maxSizeMB = 15
	}
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &ingestor{
		validator: validate,
		logger:    logger.With().Str("component", "ingestor").Logger(),
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		tracer:    otel.Tracer("github.com/noah-isme/gema-exam-grader/internal/service/ingest"),
	}
}

func (s *ingestor) Ingest(ctx context.Context, input IngestInput) (models.GradingRequest, error) {
	_, span := s.tracer.Start(ctx, "grading.ingest")
	defer span.End()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize))

	if input.File == nil {
		return s.reject(span, "missing_file", missingInput("No file provided"))
	}

	studentID := strings.TrimSpace(input.StudentID)
	if studentID == "" {
		return s.reject(span, "missing_student", missingInput("No studentId provided"))
	}

	span.SetAttributes(attribute.Int64("upload.request_size", input.File.Size))
	if input.File.Size > s.maxSize {
		return s.reject(span, "size", ErrArtifactTooLarge)
	}

	handle, err := input.File.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return models.GradingRequest{}, fmt.Errorf("open artifact: %w", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return models.GradingRequest{}, fmt.Errorf("read artifact: %w", err)
	}
	if int64(buf.Len()) > s.maxSize {
		return s.reject(span, "size", ErrArtifactTooLarge)
	}
	if buf.Len() == 0 {
		return s.reject(span, "empty_file", missingInput("No file provided"))
	}

	detected := mimetype.Detect(buf.Bytes())
	mimeType := normalizeMime(detected.String())
	span.SetAttributes(attribute.String("upload.detected_mime", mimeType))
	if !isAllowedType(mimeType) {
		return s.reject(span, "type", ErrUnsupportedArtifact)
	}

	request := models.GradingRequest{
		StudentID: studentID,
		FileName:  sanitizeFileName(input.File.Filename),
		MIMEType:  mimeType,
		Artifact:  buf.Bytes(),
		Rubric:    strings.TrimSpace(input.Rubric),
		Criteria:  strings.TrimSpace(input.Criteria),
	}

	if err := s.validator.Struct(request); err != nil {
		return s.reject(span, "validation", fmt.Errorf("%w: %v", ErrMissingInput, err))
	}

	span.SetAttributes(attribute.Int64("upload.size_bytes", int64(buf.Len())))
	span.SetStatus(codes.Ok, "ingested")
	return request, nil
}

func (s *ingestor) reject(span trace.Span, reason string, err error) (models.GradingRequest, error) {
	observability.IngestRejected().WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	return models.GradingRequest{}, &StageError{Stage: StageIngesting, Err: err}
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "exam"
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

// normalizeMime drops parameters such as charset from a detected MIME type.
func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	return lower
}

func isAllowedType(m string) bool {
	if strings.HasPrefix(m, "image/") {
		return true
	}
	return m == "application/pdf"
}
