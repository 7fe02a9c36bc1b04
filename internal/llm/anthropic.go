package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/timvw/honesty-bench/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AnthropicQuerier queries the Anthropic Messages API.
// Works with both direct Anthropic API and Azure AI Foundry.
type AnthropicQuerier struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropic creates a new Anthropic querier.
func NewAnthropic(cfg Config) *AnthropicQuerier {
	var opts []option.RequestOption

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	for k, v := range cfg.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &AnthropicQuerier{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   cfg.maxTokens(),
		temperature: cfg.Temperature,
	}
}

// Provider returns "anthropic".
func (q *AnthropicQuerier) Provider() string {
	return "anthropic"
}

// Model returns the model name.
func (q *AnthropicQuerier) Model() string {
	return q.model
}

// Query sends one question to the Anthropic API.
func (q *AnthropicQuerier) Query(ctx context.Context, systemPrompt, question string) (*model.Completion, error) {
	ctx, span := startSpan(ctx, q.Provider(), q.model, q.maxTokens, q.temperature, systemPrompt, question)
	defer span.End()

	resp, err := q.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(q.model),
		MaxTokens:   q.maxTokens,
		Temperature: anthropic.Float(q.temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		},
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	if len(resp.Content) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		span.SetStatus(codes.Error, "empty response")
		return nil, fmt.Errorf("anthropic API returned empty response")
	}

	c := &model.Completion{
		Text: resp.Content[0].Text,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	endSpan(span, string(resp.Model), string(resp.StopReason), c)
	return c, nil
}
