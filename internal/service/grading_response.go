package service

import (
	"errors"
	"net/http"

	"github.com/noah-isme/gema-exam-grader/internal/dto"
)

// AuditFeedbackSeparator joins the Judge summary and the audit comment in feedback.
const AuditFeedbackSeparator = "\n\nAUDIT: "

// AssembleResponse builds the success body from a completed run.
func AssembleResponse(outcome GradingOutcome) dto.GradeResponse {
	resp := dto.GradeResponse{
		Success:  true,
		Grade:    outcome.Audit.FinalGrade,
		Feedback: outcome.Judge.Summary + AuditFeedbackSeparator + outcome.Audit.AuditComment,
	}
	if outcome.Artifact.Reference != "" {
		link := outcome.Artifact.Reference
		resp.DriveLink = &link
	}
	return resp
}

// StatusFor maps a pipeline error onto the HTTP status returned to the caller.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrArtifactTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrMissingInput), errors.Is(err, ErrUnsupportedArtifact):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
