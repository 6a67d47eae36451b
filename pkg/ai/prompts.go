package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	noRubricPlaceholder = "No rubric provided. Apply general academic standards."
	noCriteriaValue     = "None"
)

const judgeSystemInstruction = `You are an expert, impartial exam grader.
You receive a scanned or photographed exam together with a grading rubric.
Read every answer in the exam, grade each question against the rubric and give constructive feedback.
The overall grade is on a scale from 0 to 10.
Return ONLY a JSON object, with no extra text, using exactly this shape:
{"grade": number, "summary": string, "details": [{"question": string, "score": number, "feedback": string}]}`

const auditSystemInstruction = `You are a senior academic auditor reviewing the work of another grader.
Your job is to protect the student from unfair grading.`

func judgeUserPrompt(input JudgeInput) string {
	rubric := strings.TrimSpace(input.Rubric)
	if rubric == "" {
		rubric = noRubricPlaceholder
	}
	criteria := strings.TrimSpace(input.Criteria)
	if criteria == "" {
		criteria = noCriteriaValue
	}

	builder := strings.Builder{}
	builder.WriteString("RUBRIC:\n")
	builder.WriteString(rubric)
	builder.WriteString("\n\nADDITIONAL CRITERIA:\n")
	builder.WriteString(criteria)
	builder.WriteString("\n\nGrade the attached exam. Return JSON.")
	return builder.String()
}

func auditUserPrompt(input AuditInput) (string, error) {
	verdict, err := json.Marshal(input.Verdict)
	if err != nil {
		return "", fmt.Errorf("serialize judge verdict: %w", err)
	}

	rubric := strings.TrimSpace(input.Rubric)
	if rubric == "" {
		rubric = noRubricPlaceholder
	}

	builder := strings.Builder{}
	builder.WriteString("JUDGE VERDICT:\n")
	builder.Write(verdict)
	builder.WriteString("\n\nRUBRIC:\n")
	builder.WriteString(rubric)
	builder.WriteString("\n\nTasks:\n")
	builder.WriteString("1. Check the verdict for inconsistencies, such as penalties that are too harsh or too lenient for the rubric.\n")
	builder.WriteString("2. Confirm the grading is fair or adjust it.\n")
	builder.WriteString("3. Emit the final verdict as ONLY a JSON object with exactly this shape:\n")
	builder.WriteString(`{"is_fair": boolean, "audit_comment": string, "final_grade": number}`)
	return builder.String(), nil
}
