package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig defines configuration options for the OpenAI-compatible auditor.
// BaseURL allows pointing at any OpenAI-compatible endpoint (Groq, vLLM, ...).
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIAuditor implements Auditor against the OpenAI chat completion API.
type OpenAIAuditor struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIAuditor builds a new auditor using the provided configuration.
func NewOpenAIAuditor(cfg OpenAIConfig) (*OpenAIAuditor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	tracer := otel.Tracer("github.com/noah-isme/gema-exam-grader/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "openai_auditor").Logger()

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	client := openai.NewClientWithConfig(config)

	return &OpenAIAuditor{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Audit sends the judge verdict to the chat completion API and parses the counter-verdict.
func (a *OpenAIAuditor) Audit(parent context.Context, input AuditInput) (AuditResult, error) {
	ctx, span := a.tracer.Start(parent, "openai.audit", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	prompt, err := auditUserPrompt(input)
	if err != nil {
		return AuditResult{}, a.fail(span, err)
	}

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: auditSystemInstruction,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := a.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(roleAuditor, a.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return AuditResult{}, a.fail(span, fmt.Errorf("openai audit: %w", err))
	}

	if len(resp.Choices) == 0 {
		return AuditResult{}, a.fail(span, ErrEmptyResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return AuditResult{}, a.fail(span, ErrEmptyResponse)
	}

	result, err := ParseAuditResult(content)
	if err != nil {
		return AuditResult{}, a.fail(span, err)
	}

	span.SetAttributes(
		attribute.Bool("audit.is_fair", result.IsFair),
		attribute.Float64("audit.final_grade", result.FinalGrade),
	)
	return result, nil
}

func (a *OpenAIAuditor) fail(span trace.Span, err error) error {
	aiFailures.WithLabelValues(roleAuditor, a.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	a.logger.Warn().Err(err).Str("model", a.cfg.Model).Msg("audit call failed")
	return err
}
