package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codesnap",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of assistant completion requests",
	}, []string{"model", "operation"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codesnap",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of failed assistant completion requests",
	}, []string{"model", "operation"})
)

// ErrEmptyCompletion is returned when the model replies without content.
var ErrEmptyCompletion = errors.New("empty completion")

// OpenAIConfig defines configuration options for the OpenAI assistant.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIAssistant implements Assistant against the OpenAI chat completion API.
type OpenAIAssistant struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIAssistant builds a new assistant using the provided configuration.
func NewOpenAIAssistant(cfg OpenAIConfig) (*OpenAIAssistant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIAssistant{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/codesnap-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_assistant").Logger(),
	}, nil
}

// Hint asks the model for one next step plus short review bullets.
func (a *OpenAIAssistant) Hint(ctx context.Context, input HintInput) (string, error) {
	return a.complete(ctx, "hint", hintPrompt(input))
}

// Rival asks the model for a plausible, deliberately imperfect solution.
func (a *OpenAIAssistant) Rival(ctx context.Context, input RivalInput) (string, error) {
	return a.complete(ctx, "rival", rivalPrompt(input))
}

func (a *OpenAIAssistant) complete(parent context.Context, operation, prompt string) (string, error) {
	ctx, span := a.tracer.Start(parent, "openai."+operation, trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	aiDuration.WithLabelValues(a.cfg.Model, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", a.fail(span, operation, fmt.Errorf("openai %s: %w", operation, err))
	}

	if len(resp.Choices) == 0 {
		return "", a.fail(span, operation, fmt.Errorf("openai %s: %w", operation, ErrEmptyCompletion))
	}

	text := StripCodeFences(resp.Choices[0].Message.Content)
	if strings.TrimSpace(text) == "" {
		return "", a.fail(span, operation, fmt.Errorf("openai %s: %w", operation, ErrEmptyCompletion))
	}

	a.logger.Debug().
		Str("operation", operation).
		Int("total_tokens", resp.Usage.TotalTokens).
		Dur("duration", time.Since(start)).
		Msg("assistant completion received")

	return text, nil
}

func (a *OpenAIAssistant) fail(span trace.Span, operation string, err error) error {
	aiFailures.WithLabelValues(a.cfg.Model, operation).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
