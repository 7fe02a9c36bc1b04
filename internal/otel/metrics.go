package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "honesty-bench"

// Query outcomes.
const (
	QueryOK    = "ok"
	QueryError = "error"
)

// Record outcomes after extraction.
const (
	RecordValid     = "valid"
	RecordMissing   = "missing"
	RecordMalformed = "malformed"
)

// Metrics holds the metric instruments for honesty-bench.
// All counters are cumulative and safe for concurrent use. A nil *Metrics
// records nothing.
type Metrics struct {
	// LLM token counters (partitioned by provider + model via attributes)
	InputTokens  metric.Int64Counter
	OutputTokens metric.Int64Counter

	// Model queries partitioned by arm and status (ok, error)
	Queries metric.Int64Counter

	// Extracted records partitioned by arm and outcome (valid, missing, malformed)
	Records metric.Int64Counter
}

// NewMetrics creates all metric instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.InputTokens, err = meter.Int64Counter("llm.tokens.input",
		metric.WithDescription("Total LLM input tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.OutputTokens, err = meter.Int64Counter("llm.tokens.output",
		metric.WithDescription("Total LLM output tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.Queries, err = meter.Int64Counter("experiment.queries",
		metric.WithDescription("Model queries partitioned by arm and status"))
	if err != nil {
		return nil, err
	}

	m.Records, err = meter.Int64Counter("experiment.records",
		metric.WithDescription("Extracted responses partitioned by arm and outcome"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTokens records LLM token usage.
func (m *Metrics) RecordTokens(ctx context.Context, provider, model string, input, output int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
	m.InputTokens.Add(ctx, input, attrs)
	m.OutputTokens.Add(ctx, output, attrs)
}

// RecordQuery records one model query for arm with the given status.
func (m *Metrics) RecordQuery(ctx context.Context, arm, status string) {
	if m == nil {
		return
	}
	m.Queries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("experiment.arm", arm),
		attribute.String("query.status", status),
	))
}

// RecordRecords adds n records for arm with the given outcome. Zero is skipped.
func (m *Metrics) RecordRecords(ctx context.Context, arm, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Records.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("experiment.arm", arm),
		attribute.String("record.outcome", outcome),
	))
}
