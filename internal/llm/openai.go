package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/timvw/honesty-bench/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OpenAIQuerier queries an OpenAI-compatible Chat Completions API.
// Works with OpenAI, Azure OpenAI, and any OpenAI-compatible endpoint.
type OpenAIQuerier struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewOpenAI creates a new OpenAI-compatible querier.
func NewOpenAI(cfg Config) *OpenAIQuerier {
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

	return &OpenAIQuerier{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   cfg.maxTokens(),
		temperature: cfg.Temperature,
	}
}

// Provider returns "openai".
func (q *OpenAIQuerier) Provider() string {
	return "openai"
}

// Model returns the model name.
func (q *OpenAIQuerier) Model() string {
	return q.model
}

// Query sends one question to an OpenAI-compatible API.
func (q *OpenAIQuerier) Query(ctx context.Context, systemPrompt, question string) (*model.Completion, error) {
	ctx, span := startSpan(ctx, q.Provider(), q.model, q.maxTokens, q.temperature, systemPrompt, question)
	defer span.End()

	resp, err := q.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: q.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(question),
		},
		MaxCompletionTokens: openai.Int(q.maxTokens),
		Temperature:         openai.Float(q.temperature),
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("openai API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		span.SetStatus(codes.Error, "empty response")
		return nil, fmt.Errorf("openai API returned empty response")
	}

	span.SetAttributes(attribute.String("gen_ai.response.id", resp.ID))
	c := &model.Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	endSpan(span, resp.Model, string(resp.Choices[0].FinishReason), c)
	return c, nil
}
