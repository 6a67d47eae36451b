// Package report renders the grading report archived for each exam.
package report

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/gema-exam-grader/internal/models"
)

const (
	passColor = "#2e7d32"
	failColor = "#c62828"
)

// Synthesize combines both verdicts into a Report. It performs no I/O and the
// body depends only on its inputs; generatedAt is kept out of the body.
func Synthesize(studentID string, judge models.JudgeVerdict, audit models.AuditVerdict, generatedAt time.Time) models.Report {
	finalGrade := audit.FinalGrade
	passed := finalGrade >= models.PassThreshold

	status, color := "fail", failColor
	if passed {
		status, color = "pass", passColor
	}

	b := strings.Builder{}
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>Grading report %s</title>\n", text(studentID))
	b.WriteString("</head>\n<body style=\"font-family: Arial, sans-serif;\">\n")

	b.WriteString("<header class=\"report-header\">\n")
	fmt.Fprintf(&b, "<h1>Grading report: %s</h1>\n", text(studentID))
	fmt.Fprintf(&b, "<h2 class=\"grade %s\" style=\"color: %s;\">Final grade: %s / 10</h2>\n", status, color, formatGrade(finalGrade))
	b.WriteString("</header>\n")

	b.WriteString("<section class=\"summary\">\n<h3>Summary</h3>\n")
	fmt.Fprintf(&b, "<p>%s</p>\n", text(judge.Summary))
	b.WriteString("</section>\n")

	b.WriteString("<section class=\"questions\">\n<h3>Feedback per question</h3>\n")
	b.WriteString("<table border=\"1\" cellpadding=\"6\" style=\"border-collapse: collapse;\">\n")
	b.WriteString("<tr><th>Question</th><th>Score</th><th>Feedback</th></tr>\n")
	for _, detail := range judge.Details {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			text(detail.Question), formatGrade(detail.Score), text(detail.Feedback))
	}
	b.WriteString("</table>\n</section>\n")

	b.WriteString("<hr>\n<section class=\"audit\">\n<h3>Fairness audit</h3>\n")
	fmt.Fprintf(&b, "<p><strong>Fair:</strong> %s</p>\n", yesNo(audit.IsFair))
	fmt.Fprintf(&b, "<p><strong>Judge grade:</strong> %s / 10</p>\n", formatGrade(judge.Grade))
	fmt.Fprintf(&b, "<p><strong>Audit comment:</strong> %s</p>\n", text(audit.AuditComment))
	b.WriteString("</section>")

	return models.Report{
		StudentID:   studentID,
		FinalGrade:  finalGrade,
		Passed:      passed,
		Body:        b.String(),
		GeneratedAt: generatedAt,
	}
}

// text renders evaluator output as literal text; markup in it is shown, never interpreted.
func text(value string) string {
	return html.EscapeString(strings.TrimSpace(value))
}

func formatGrade(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
