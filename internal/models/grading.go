package models

import (
	"fmt"
	"time"
)

// PassThreshold is the minimum final grade rendered with the pass treatment.
const PassThreshold = 5.0

// GradingRequest is a validated exam artifact ready for evaluation.
type GradingRequest struct {
	StudentID string `validate:"required,max=128"`
	FileName  string
	MIMEType  string `validate:"required"`
	Artifact  []byte `validate:"required,min=1"`
	Rubric    string
	Criteria  string
}

// QuestionFeedback is the Judge's assessment of a single question.
type QuestionFeedback struct {
	Question string  `json:"question"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// JudgeVerdict is the first-pass grade produced from the raw artifact.
type JudgeVerdict struct {
	Grade   float64            `json:"grade"`
	Summary string             `json:"summary"`
	Details []QuestionFeedback `json:"details"`
}

// AuditVerdict is the Auditor's fairness review of a JudgeVerdict.
type AuditVerdict struct {
	IsFair       bool    `json:"is_fair"`
	AuditComment string  `json:"audit_comment"`
	FinalGrade   float64 `json:"final_grade"`
	Skipped      bool    `json:"-"`
}

// Report is the rendered, immutable grading document.
type Report struct {
	StudentID   string
	FinalGrade  float64
	Passed      bool
	Body        string
	GeneratedAt time.Time
}

// Document returns the full HTML document including the generation timestamp.
func (r Report) Document() string {
	return fmt.Sprintf("%s\n<p class=\"generated-at\">Generated at %s</p>\n</body>\n</html>\n",
		r.Body, r.GeneratedAt.UTC().Format(time.RFC3339))
}

// PersistedArtifact references the archived copy of a Report.
type PersistedArtifact struct {
	FolderID  string
	FileName  string
	Reference string
}
