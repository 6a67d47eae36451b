package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-grader/internal/models"
	"github.com/noah-isme/gema-exam-grader/pkg/ai"
)

// JudgeStage obtains the first-pass verdict. Its failures are always fatal.
type JudgeStage struct {
	judge   ai.Judge
	timeout time.Duration
	logger  zerolog.Logger
}

// NewJudgeStage wraps a Judge with the per-call timeout.
func NewJudgeStage(judge ai.Judge, timeout time.Duration, logger zerolog.Logger) *JudgeStage {
	return &JudgeStage{
		judge:   judge,
		timeout: timeout,
		logger:  logger.With().Str("component", "judge_stage").Logger(),
	}
}

// Run grades the request and returns the Judge's verdict.
func (s *JudgeStage) Run(ctx context.Context, request models.GradingRequest) (models.JudgeVerdict, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.judge.Judge(ctx, ai.JudgeInput{
		Rubric:   request.Rubric,
		Criteria: request.Criteria,
		Artifact: request.Artifact,
		MIMEType: request.MIMEType,
	})
	if err != nil {
		return models.JudgeVerdict{}, &StageError{Stage: StageJudging, Err: classifyJudgeError(err)}
	}

	verdict := models.JudgeVerdict{
		Grade:   result.Grade,
		Summary: result.Summary,
		Details: make([]models.QuestionFeedback, 0, len(result.Details)),
	}
	for _, detail := range result.Details {
		verdict.Details = append(verdict.Details, models.QuestionFeedback{
			Question: detail.Question,
			Score:    detail.Score,
			Feedback: detail.Feedback,
		})
	}

	return verdict, nil
}

func classifyJudgeError(err error) error {
	if errors.Is(err, ai.ErrMalformedOutput) {
		return fmt.Errorf("%w: %v", ErrJudgeOutputValidation, err)
	}
	return fmt.Errorf("%w: %v", ErrJudgeInvocation, err)
}
