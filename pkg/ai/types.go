package ai

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse indicates the evaluator answered without any textual content.
	ErrEmptyResponse = errors.New("evaluator returned no content")
	// ErrMalformedOutput indicates the evaluator content does not match the required shape.
	ErrMalformedOutput = errors.New("evaluator output malformed")
)

// JudgeInput contains the artefacts the Judge grades.
type JudgeInput struct {
	Rubric   string
	Criteria string
	Artifact []byte
	MIMEType string
}

// QuestionResult is a per-question entry of a judge result.
type QuestionResult struct {
	Question string  `json:"question"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// JudgeResult is the structured verdict returned by the Judge.
type JudgeResult struct {
	Grade   float64          `json:"grade"`
	Summary string           `json:"summary"`
	Details []QuestionResult `json:"details"`
}

// AuditInput carries the verdict under review and the rubric it was graded against.
type AuditInput struct {
	Verdict JudgeResult
	Rubric  string
}

// AuditResult is the structured counter-verdict returned by the Auditor.
type AuditResult struct {
	IsFair       bool    `json:"is_fair"`
	AuditComment string  `json:"audit_comment"`
	FinalGrade   float64 `json:"final_grade"`
}

// Judge grades an exam artifact with a vision-capable model.
type Judge interface {
	Judge(ctx context.Context, input JudgeInput) (JudgeResult, error)
}

// Auditor reviews a judge verdict with a text-only model.
type Auditor interface {
	Audit(ctx context.Context, input AuditInput) (AuditResult, error)
}
