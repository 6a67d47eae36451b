package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/gema-exam-grader/internal/models"
)

// GradeRequest describes the multipart text fields of a grading request.
type GradeRequest struct {
	StudentID string `form:"studentId"`
	Rubric    string `form:"rubric"`
	Criteria  string `form:"criteria"`
}

// GradeResponse is returned after a successful grading run.
type GradeResponse struct {
	Success   bool    `json:"success"`
	Grade     float64 `json:"grade"`
	Feedback  string  `json:"feedback"`
	DriveLink *string `json:"driveLink"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GradingReportResponse lists one archived report of a student.
type GradingReportResponse struct {
	ID           uint            `json:"id"`
	StudentID    string          `json:"student_id"`
	JudgeGrade   float64         `json:"judge_grade"`
	FinalGrade   float64         `json:"final_grade"`
	Passed       bool            `json:"passed"`
	IsFair       bool            `json:"is_fair"`
	AuditSkipped bool            `json:"audit_skipped"`
	FileName     string          `json:"file_name"`
	Reference    string          `json:"reference"`
	Details      json.RawMessage `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewGradingReportResponse maps a stored report row to its API representation.
func NewGradingReportResponse(record models.GradingReport) GradingReportResponse {
	resp := GradingReportResponse{
		ID:           record.ID,
		StudentID:    record.StudentID,
		JudgeGrade:   record.JudgeGrade,
		FinalGrade:   record.FinalGrade,
		Passed:       record.FinalGrade >= models.PassThreshold,
		IsFair:       record.IsFair,
		AuditSkipped: record.AuditSkipped,
		FileName:     record.FileName,
		Reference:    record.Reference,
		CreatedAt:    record.CreatedAt,
	}
	if len(record.Details) > 0 {
		resp.Details = json.RawMessage(record.Details)
	}
	return resp
}
