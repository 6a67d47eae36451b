package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-grader/internal/middleware"
	"github.com/noah-isme/gema-exam-grader/internal/models"
	"github.com/noah-isme/gema-exam-grader/internal/observability"
	"github.com/noah-isme/gema-exam-grader/pkg/ai"
)

// AuditSkippedComment is the audit comment of the fallback verdict.
const AuditSkippedComment = "Audit skipped (API Error)"

// AuditStage obtains the fairness review. It never fails: an unavailable or
// misbehaving Auditor yields the fallback verdict keeping the Judge's grade.
type AuditStage struct {
	auditor ai.Auditor
	timeout time.Duration
	logger  zerolog.Logger
}

// NewAuditStage wraps an Auditor with the per-call timeout.
func NewAuditStage(auditor ai.Auditor, timeout time.Duration, logger zerolog.Logger) *AuditStage {
	return &AuditStage{
		auditor: auditor,
		timeout: timeout,
		logger:  logger.With().Str("component", "audit_stage").Logger(),
	}
}

// Run reviews the verdict; the returned error is informational and has already been recovered.
func (s *AuditStage) Run(ctx context.Context, judge models.JudgeVerdict, rubric string) (models.AuditVerdict, error) {
	if s.auditor == nil {
		err := fmt.Errorf("%w: auditor not configured", ErrAuditInvocation)
		return s.fallback(ctx, judge, "unconfigured", err), err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	input := ai.AuditInput{
		Verdict: ai.JudgeResult{
			Grade:   judge.Grade,
			Summary: judge.Summary,
			Details: make([]ai.QuestionResult, 0, len(judge.Details)),
		},
		Rubric: rubric,
	}
	for _, detail := range judge.Details {
		input.Verdict.Details = append(input.Verdict.Details, ai.QuestionResult{
			Question: detail.Question,
			Score:    detail.Score,
			Feedback: detail.Feedback,
		})
	}

	result, err := s.auditor.Audit(ctx, input)
	if err != nil {
		if errors.Is(err, ai.ErrMalformedOutput) {
			wrapped := fmt.Errorf("%w: %v", ErrAuditOutputValidation, err)
			return s.fallback(ctx, judge, "validation", wrapped), wrapped
		}
		wrapped := fmt.Errorf("%w: %v", ErrAuditInvocation, err)
		return s.fallback(ctx, judge, "invocation", wrapped), wrapped
	}

	return models.AuditVerdict{
		IsFair:       result.IsFair,
		AuditComment: result.AuditComment,
		FinalGrade:   result.FinalGrade,
	}, nil
}

// FallbackAuditVerdict is the verdict used whenever the audit cannot be obtained.
func FallbackAuditVerdict(judge models.JudgeVerdict) models.AuditVerdict {
	return models.AuditVerdict{
		IsFair:       true,
		AuditComment: AuditSkippedComment,
		FinalGrade:   judge.Grade,
		Skipped:      true,
	}
}

func (s *AuditStage) fallback(ctx context.Context, judge models.JudgeVerdict, reason string, err error) models.AuditVerdict {
	observability.AuditFallbacks().WithLabelValues(reason).Inc()
	s.logger.Warn().
		Err(err).
		Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
		Str("stage", string(StageAuditing)).
		Str("reason", reason).
		Msg("audit unavailable, keeping judge grade")
	return FallbackAuditVerdict(judge)
}
