package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_Disabled(t *testing.T) {
	provider, err := Init(context.Background(), Config{Enabled: false, ServiceName: "test"})
	require.NoError(t, err)
	require.NotNil(t, provider)

	assert.NotNil(t, provider.Tracer())
	assert.NoError(t, provider.Shutdown(context.Background()))
	assert.NoError(t, provider.ForceFlush(context.Background()))
}

func TestGet_Uninitialized(t *testing.T) {
	globalMu.Lock()
	globalProvider = nil
	globalMu.Unlock()

	provider := Get()
	require.NotNil(t, provider)
	assert.NotNil(t, provider.tracer)
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")
}

func TestInitWithExporter_RecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider, err := InitWithExporter(Config{
		ServiceName: "verifier-test",
		Version:     "test",
		Environment: "test",
		SampleRate:  1,
	}, exporter)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		globalMu.Lock()
		globalProvider = nil
		globalMu.Unlock()
	})

	ctx, span := StartSpan(context.Background(), "verifier.Run",
		WithAttributes(ExperimentAttributes("sampling", 42, 1000, 4)...))
	SetAttributes(ctx, EstimateAttributes(3.5, 0.01)...)
	AddEvent(ctx, "claim", ClaimAttributes("closed-form", 3.5028, 0.002, true)...)
	RecordError(ctx, errors.New("enumeration skipped"))
	SetError(ctx, errors.New("boom"))
	span.End()

	require.NoError(t, provider.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "verifier.Run", got.Name)
	assert.Equal(t, otelcodes.Error, got.Status.Code)
	assert.Contains(t, got.Attributes, attribute.String(AttrExperiment, "sampling"))
	assert.Contains(t, got.Attributes, attribute.Float64(AttrMean, 3.5))
	assert.Len(t, got.Events, 3) // claim + два exception события
}

func TestAttributes(t *testing.T) {
	attrs := ExactAttributes(46656, 3.5028, true)
	assert.Len(t, attrs, 3)
	assert.Equal(t, attribute.Int64(AttrExactSpace, 46656), attrs[0])
	assert.Equal(t, attribute.Bool(AttrCacheHit, true), attrs[2])
}
