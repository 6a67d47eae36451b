package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AnthropicConfig defines configuration options for the Claude auditor.
type AnthropicConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	Logger      zerolog.Logger
}

// AnthropicAuditor implements Auditor against the Anthropic Messages API.
type AnthropicAuditor struct {
	client anthropic.Client
	cfg    AnthropicConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewAnthropicAuditor constructs a Claude-backed auditor.
func NewAnthropicAuditor(cfg AnthropicConfig) (*AnthropicAuditor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	// Evaluator calls are never retried; a failed audit falls back instead.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicAuditor{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-exam-grader/pkg/ai/anthropic"),
		logger: cfg.Logger.With().Str("component", "anthropic_auditor").Logger(),
	}, nil
}

// Audit asks Claude to review the judge verdict and parses its counter-verdict.
func (a *AnthropicAuditor) Audit(parent context.Context, input AuditInput) (AuditResult, error) {
	ctx, span := a.tracer.Start(parent, "anthropic.audit", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	prompt, err := auditUserPrompt(input)
	if err != nil {
		return AuditResult{}, a.fail(span, err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.cfg.Model),
		MaxTokens: a.cfg.MaxTokens,
		System:    []anthropic.TextBlockParam{{Text: auditSystemInstruction}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(a.cfg.Temperature),
	}

	start := time.Now()
	message, err := a.client.Messages.New(ctx, params)
	aiDuration.WithLabelValues(roleAuditor, a.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return AuditResult{}, a.fail(span, fmt.Errorf("anthropic audit: %w", err))
	}

	builder := strings.Builder{}
	for _, block := range message.Content {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}

	content := strings.TrimSpace(builder.String())
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

func (a *AnthropicAuditor) fail(span trace.Span, err error) error {
	aiFailures.WithLabelValues(roleAuditor, a.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	a.logger.Warn().Err(err).Str("model", a.cfg.Model).Msg("audit call failed")
	return err
}
