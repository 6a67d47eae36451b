package ai

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	//go:embed schemas/judge.schema.json
	judgeSchemaSource string
	//go:embed schemas/audit.schema.json
	auditSchemaSource string

	judgeSchema = jsonschema.MustCompileString("https://grader.gema.local/schemas/judge.schema.json", judgeSchemaSource)
	auditSchema = jsonschema.MustCompileString("https://grader.gema.local/schemas/audit.schema.json", auditSchemaSource)
)

// StripCodeFences removes Markdown code fence markers models like to wrap JSON in.
func StripCodeFences(content string) string {
	cleaned := strings.ReplaceAll(content, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// ParseJudgeResult validates raw judge output against the judge schema and decodes it.
func ParseJudgeResult(content string) (JudgeResult, error) {
	var result JudgeResult
	if err := decodeStrict(content, judgeSchema, &result); err != nil {
		return JudgeResult{}, fmt.Errorf("parse judge verdict: %w", err)
	}
	if result.Details == nil {
		result.Details = []QuestionResult{}
	}
	return result, nil
}

// ParseAuditResult validates raw auditor output against the audit schema and decodes it.
func ParseAuditResult(content string) (AuditResult, error) {
	var result AuditResult
	if err := decodeStrict(content, auditSchema, &result); err != nil {
		return AuditResult{}, fmt.Errorf("parse audit verdict: %w", err)
	}
	return result, nil
}

func decodeStrict(content string, schema *jsonschema.Schema, target interface{}) error {
	cleaned := StripCodeFences(content)
	if cleaned == "" {
		return ErrEmptyResponse
	}

	var document interface{}
	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if decoder.More() {
		return fmt.Errorf("%w: trailing data after json object", ErrMalformedOutput)
	}

	if err := schema.Validate(document); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	normalized, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := json.NewDecoder(bytes.NewReader(normalized)).Decode(target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	return nil
}
