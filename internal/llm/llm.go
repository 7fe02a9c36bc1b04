// Package llm sends one question at a time to a chat model and returns the
// raw completion text.
//
// A Querier performs a single request/response exchange: a system prompt
// and a user message go in, free text comes out. There are no retries and
// no per-call timeout beyond the context passed by the caller.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/timvw/honesty-bench/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Querier asks a model one question under a system prompt.
type Querier interface {
	// Query sends the question and returns the model's completion.
	Query(ctx context.Context, systemPrompt, question string) (*model.Completion, error)

	// Provider returns the provider name (e.g., "anthropic", "openai").
	Provider() string

	// Model returns the model name used for querying.
	Model() string
}

// Config holds the settings shared by every provider.
type Config struct {
	// BaseURL is the API endpoint. Empty uses the SDK default.
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the model name (e.g., "claude-sonnet-4-5", "gpt-4o-mini").
	Model string
	// MaxTokens is the maximum number of output tokens.
	MaxTokens int64
	// Temperature is the sampling temperature.
	Temperature float64
	// ExtraHeaders are additional HTTP headers (e.g., "api-key" for Azure).
	ExtraHeaders map[string]string
}

const defaultMaxTokens = 4000

func (c Config) maxTokens() int64 {
	if c.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return c.MaxTokens
}

// New returns the Querier for provider.
func New(provider string, cfg Config) (Querier, error) {
	switch provider {
	case "anthropic":
		return NewAnthropic(cfg), nil
	case "openai":
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: anthropic, openai)", provider)
	}
}

var tracer = otel.Tracer("honesty-bench/llm")

// startSpan opens a GenAI client span named "chat {model}" and records the
// request messages on it.
func startSpan(ctx context.Context, provider, modelName string, maxTokens int64, temperature float64, systemPrompt, question string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "chat "+modelName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", provider),
			attribute.String("gen_ai.request.model", modelName),
			attribute.Int64("gen_ai.request.max_tokens", maxTokens),
			attribute.Float64("gen_ai.request.temperature", temperature),
			attribute.String("langfuse.observation.type", "generation"),
		),
	)
	setMessages(span, "gen_ai.input.messages", []map[string]string{
		{"role": "system", "content": systemPrompt},
		{"role": "user", "content": question},
	})
	return ctx, span
}

// endSpan records the response side of a successful call.
func endSpan(span trace.Span, responseModel, finishReason string, c *model.Completion) {
	span.SetAttributes(
		attribute.String("gen_ai.response.model", responseModel),
		attribute.Int64("gen_ai.usage.input_tokens", c.Usage.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", c.Usage.OutputTokens),
	)
	if finishReason != "" {
		span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", []string{finishReason}))
	}
	setMessages(span, "gen_ai.output.messages", []map[string]string{
		{"role": "assistant", "content": c.Text},
	})
}

func setMessages(span trace.Span, key string, msgs []map[string]string) {
	if data, err := json.Marshal(msgs); err == nil {
		span.SetAttributes(attribute.String(key, string(data)))
	}
}
