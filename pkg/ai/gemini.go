package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// GeminiConfig defines configuration options for the Gemini judge.
type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     float32
	MaxOutputTokens int32
	Logger          zerolog.Logger
}

// GeminiJudge implements Judge against the Gemini multimodal API.
type GeminiJudge struct {
	client *genai.Client
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiJudge builds a judge using the provided configuration.
func NewGeminiJudge(ctx context.Context, cfg GeminiConfig) (*GeminiJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 8192
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiJudge{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-exam-grader/pkg/ai/gemini"),
		logger: cfg.Logger.With().Str("component", "gemini_judge").Logger(),
	}, nil
}

// Judge sends the artifact and rubric to Gemini and parses the verdict.
func (j *GeminiJudge) Judge(parent context.Context, input JudgeInput) (JudgeResult, error) {
	ctx, span := j.tracer.Start(parent, "gemini.judge", trace.WithAttributes(
		attribute.String("model", j.cfg.Model),
		attribute.String("artifact.mime_type", input.MIMEType),
		attribute.Int("artifact.size_bytes", len(input.Artifact)),
	))
	defer span.End()

	config := &genai.GenerateContentConfig{
		Temperature:      ptr(j.cfg.Temperature),
		MaxOutputTokens:  j.cfg.MaxOutputTokens,
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: judgeSystemInstruction}},
		},
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: judgeUserPrompt(input)},
			{InlineData: &genai.Blob{Data: input.Artifact, MIMEType: input.MIMEType}},
		},
	}}

	start := time.Now()
	resp, err := j.client.Models.GenerateContent(ctx, j.cfg.Model, contents, config)
	aiDuration.WithLabelValues(roleJudge, j.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return JudgeResult{}, j.fail(span, fmt.Errorf("gemini generate content: %w", err))
	}

	content := responseText(resp)
	if content == "" {
		return JudgeResult{}, j.fail(span, ErrEmptyResponse)
	}

	result, err := ParseJudgeResult(content)
	if err != nil {
		return JudgeResult{}, j.fail(span, err)
	}

	span.SetAttributes(
		attribute.Float64("judge.grade", result.Grade),
		attribute.Int("judge.questions", len(result.Details)),
	)
	return result, nil
}

func (j *GeminiJudge) fail(span trace.Span, err error) error {
	aiFailures.WithLabelValues(roleJudge, j.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	j.logger.Warn().Err(err).Str("model", j.cfg.Model).Msg("judge call failed")
	return err
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	builder := strings.Builder{}
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		builder.WriteString(part.Text)
	}
	return strings.TrimSpace(builder.String())
}

func ptr[T any](v T) *T {
	return &v
}
