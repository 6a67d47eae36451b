package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-exam-grader/internal/middleware"
	"github.com/noah-isme/gema-exam-grader/internal/models"
	"github.com/noah-isme/gema-exam-grader/internal/observability"
	"github.com/noah-isme/gema-exam-grader/internal/report"
	"github.com/noah-isme/gema-exam-grader/internal/repository"
)

// Persister archives a rendered report.
type Persister interface {
	Persist(ctx context.Context, studentID string, report models.Report) (models.PersistedArtifact, error)
}

// GradingOutcome carries everything a successful pipeline run produced.
type GradingOutcome struct {
	Request  models.GradingRequest
	Judge    models.JudgeVerdict
	Audit    models.AuditVerdict
	Report   models.Report
	Artifact models.PersistedArtifact
}

// GradingService runs the grading pipeline for one request.
type GradingService interface {
	Grade(ctx context.Context, input IngestInput) (GradingOutcome, error)
}

// GradingDependencies wires the pipeline stages. Reports, Events and Now are optional.
type GradingDependencies struct {
	Ingestor     Ingestor
	Judge        *JudgeStage
	Audit        *AuditStage
	Persister    Persister
	Reports      repository.GradingReportRepository
	Events       EventPublisher
	EventSubject string
	Now          func() time.Time
}

type gradingService struct {
	deps   GradingDependencies
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewGradingService constructs the pipeline orchestrator.
func NewGradingService(deps GradingDependencies, logger zerolog.Logger) GradingService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &gradingService{
		deps:   deps,
		logger: logger.With().Str("component", "grading_service").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/gema-exam-grader/internal/service/grading"),
	}
}

func (s *gradingService) Grade(ctx context.Context, input IngestInput) (GradingOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "grading.run")
	defer span.End()

	var outcome GradingOutcome

	request, err := timed(StageIngesting, func() (models.GradingRequest, error) {
		return s.deps.Ingestor.Ingest(ctx, input)
	})
	if err != nil {
		return GradingOutcome{}, s.abort(ctx, span, "rejected", err)
	}
	outcome.Request = request
	span.SetAttributes(
		attribute.String("grading.student_id", request.StudentID),
		attribute.String("grading.mime_type", request.MIMEType),
	)

	judge, err := timed(StageJudging, func() (models.JudgeVerdict, error) {
		return s.deps.Judge.Run(ctx, request)
	})
	if err != nil {
		return GradingOutcome{}, s.abort(ctx, span, "judge_failed", err)
	}
	outcome.Judge = judge

	audit, _ := timed(StageAuditing, func() (models.AuditVerdict, error) {
		return s.deps.Audit.Run(ctx, judge, request.Rubric)
	})
	outcome.Audit = audit
	span.SetAttributes(attribute.Bool("grading.audit_skipped", audit.Skipped))

	rendered, _ := timed(StageSynthesizing, func() (models.Report, error) {
		return report.Synthesize(request.StudentID, judge, audit, s.deps.Now()), nil
	})
	outcome.Report = rendered

	persisted, err := timed(StagePersisting, func() (models.PersistedArtifact, error) {
		return s.deps.Persister.Persist(ctx, request.StudentID, rendered)
	})
	if err != nil {
		return GradingOutcome{}, s.abort(ctx, span, "persist_failed", err)
	}
	outcome.Artifact = persisted

	s.recordReport(ctx, outcome)
	s.publishCompleted(outcome)

	observability.GradingRequests().WithLabelValues("success").Inc()
	s.logger.Info().
		Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
		Str("student_id", request.StudentID).
		Float64("judge_grade", judge.Grade).
		Float64("final_grade", audit.FinalGrade).
		Bool("audit_skipped", audit.Skipped).
		Msg("grading completed")
	span.SetStatus(codes.Ok, "graded")

	return outcome, nil
}

func (s *gradingService) abort(ctx context.Context, span trace.Span, outcome string, err error) error {
	observability.GradingRequests().WithLabelValues(outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)

	event := s.logger.Warn()
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		event = event.Str("stage", string(stageErr.Stage))
		if stageErr.Stage != StageIngesting {
			event = s.logger.Error().Str("stage", string(stageErr.Stage))
		}
	}
	event.Err(err).
		Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
		Str("outcome", outcome).
		Msg("grading aborted")

	return err
}

func (s *gradingService) recordReport(ctx context.Context, outcome GradingOutcome) {
	if s.deps.Reports == nil {
		return
	}

	details, err := json.Marshal(outcome.Judge.Details)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode report details")
		details = []byte("[]")
	}

	record := models.GradingReport{
		StudentID:    outcome.Request.StudentID,
		JudgeGrade:   outcome.Judge.Grade,
		FinalGrade:   outcome.Audit.FinalGrade,
		IsFair:       outcome.Audit.IsFair,
		AuditSkipped: outcome.Audit.Skipped,
		FolderID:     outcome.Artifact.FolderID,
		FileName:     outcome.Artifact.FileName,
		Reference:    outcome.Artifact.Reference,
		Details:      details,
		CreatedAt:    outcome.Report.GeneratedAt,
	}
	if err := s.deps.Reports.Create(ctx, &record); err != nil {
		s.logger.Warn().Err(err).Str("student_id", record.StudentID).Msg("failed to index grading report")
	}
}

func (s *gradingService) publishCompleted(outcome GradingOutcome) {
	if s.deps.Events == nil || s.deps.EventSubject == "" {
		return
	}

	payload, err := encodeEvent(GradingCompletedEvent{
		StudentID:    outcome.Request.StudentID,
		JudgeGrade:   outcome.Judge.Grade,
		FinalGrade:   outcome.Audit.FinalGrade,
		Passed:       outcome.Report.Passed,
		IsFair:       outcome.Audit.IsFair,
		AuditSkipped: outcome.Audit.Skipped,
		Reference:    outcome.Artifact.Reference,
		GeneratedAt:  outcome.Report.GeneratedAt.UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode grading event")
		return
	}
	if err := s.deps.Events.Publish(s.deps.EventSubject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", s.deps.EventSubject).Msg("failed to publish grading event")
	}
}

func timed[T any](stage Stage, fn func() (T, error)) (T, error) {
	start := time.Now()
	defer func() {
		observability.GradingStageLatency().WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	}()
	return fn()
}
