package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		raw  string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"Authorization=Basic abc123", map[string]string{"Authorization": "Basic abc123"}},
		{" a = 1 , b=2=3 ", map[string]string{"a": "1", "b": "2=3"}},
		{"novalue,=x,c=", map[string]string{"c": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseHeaders(tt.raw))
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	ep, err := parseEndpoint("http://localhost:3000/api/public/otel/")
	require.NoError(t, err)
	assert.Equal(t, endpoint{host: "localhost:3000", basePath: "/api/public/otel", insecure: true}, ep)

	ep, err = parseEndpoint("https://otel.example.com")
	require.NoError(t, err)
	assert.Equal(t, endpoint{host: "otel.example.com"}, ep)

	_, err = parseEndpoint("localhost")
	assert.ErrorContains(t, err, "no host")
}

func TestInit_NoEndpoint(t *testing.T) {
	tel, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, tel.Tracer)
	require.NotNil(t, tel.Metrics)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordTokens(ctx, "anthropic", "m", 1, 2)
	m.RecordQuery(ctx, "baseline", QueryOK)
	m.RecordRecords(ctx, "baseline", RecordValid, 3)
}

func TestMetrics_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter(meterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordTokens(ctx, "anthropic", "claude-sonnet-4-5", 100, 40)
	m.RecordTokens(ctx, "anthropic", "claude-sonnet-4-5", 50, 10)
	m.RecordQuery(ctx, "baseline", QueryOK)
	m.RecordQuery(ctx, "baseline", QueryOK)
	m.RecordQuery(ctx, "experiment", QueryError)
	m.RecordRecords(ctx, "experiment", RecordMissing, 4)
	m.RecordRecords(ctx, "experiment", RecordMalformed, 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string][]metricdata.DataPoint[int64]{}
	for _, sm := range rm.ScopeMetrics {
		for _, mt := range sm.Metrics {
			sum, ok := mt.Data.(metricdata.Sum[int64])
			require.True(t, ok, mt.Name)
			sums[mt.Name] = sum.DataPoints
		}
	}

	require.Len(t, sums["llm.tokens.input"], 1)
	assert.Equal(t, int64(150), sums["llm.tokens.input"][0].Value)
	assert.Equal(t, int64(50), sums["llm.tokens.output"][0].Value)

	byArm := map[string]int64{}
	for _, dp := range sums["experiment.queries"] {
		arm, _ := dp.Attributes.Value(attribute.Key("experiment.arm"))
		byArm[arm.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"baseline": 2, "experiment": 1}, byArm)

	require.Len(t, sums["experiment.records"], 1)
	assert.Equal(t, int64(4), sums["experiment.records"][0].Value)
}
