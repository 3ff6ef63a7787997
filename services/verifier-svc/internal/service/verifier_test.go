package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"stochastic/pkg/apperror"
	"stochastic/pkg/cache"
	"stochastic/pkg/config"
	"stochastic/pkg/logger"
	"stochastic/pkg/metrics"
	"stochastic/pkg/telemetry"
	"stochastic/services/verifier-svc/internal/engine"
	"stochastic/services/verifier-svc/internal/experiment"
)

func init() {
	logger.Init("error")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "verifier-test"},
		Engine: config.EngineConfig{
			Trials:          2000,
			Seed:            42,
			Workers:         2,
			ChunkSize:       256,
			ConfidenceLevel: 0.95,
			EnumerationCap:  1_000_000,
		},
		Experiments: config.ExperimentsConfig{
			Pairing: config.PairingConfig{
				Population: 8,
				Stages:     2,
				Trials:     4000,
				Tolerance:  0.5,
			},
			Sampling: config.SamplingConfig{
				Categories: 6,
				Draws:      6,
				Trials:     20000,
				Tolerance:  0.02,
			},
			Waiting: config.WaitingConfig{
				Probability: 0.95,
				Window:      30,
				Queries:     []float64{10, 27},
				BucketWidth: 5,
				Trials:      20000,
				Tolerance:   0.02,
			},
		},
	}
}

func newTestService(t *testing.T, opts ...Option) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.New("test", "verifier")
	svc, err := New(testConfig(), append([]Option{WithMetrics(m)}, opts...)...)
	require.NoError(t, err)
	return svc, m
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.True(t, apperror.Is(err, apperror.CodeNilInput))
}

func TestNew_InvalidExperiment(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		code   apperror.ErrorCode
	}{
		{
			name:   "odd population",
			mutate: func(c *config.Config) { c.Experiments.Pairing.Population = 7 },
			code:   apperror.CodeInvalidConfiguration,
		},
		{
			name:   "no categories",
			mutate: func(c *config.Config) { c.Experiments.Sampling.Categories = 0 },
			code:   apperror.CodeInvalidConfiguration,
		},
		{
			name:   "certain event",
			mutate: func(c *config.Config) { c.Experiments.Waiting.Probability = 1 },
			code:   apperror.CodeDomainError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			_, err := New(cfg, WithMetrics(metrics.New("test", "verifier")))
			require.Error(t, err)
			assert.True(t, apperror.Is(err, tt.code))
		})
	}
}

func TestService_Names(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Equal(t, []string{experiment.PairingName, experiment.SamplingName, experiment.WaitingName}, svc.Names())
}

func TestService_RunUnknown(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Run(context.Background(), "roulette")
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestService_RunSampling(t *testing.T) {
	svc, m := newTestService(t)

	res, err := svc.Run(context.Background(), experiment.SamplingName)
	require.NoError(t, err)

	assert.Equal(t, experiment.SamplingName, res.Experiment)
	assert.Equal(t, uint64(42), res.Seed)
	assert.Equal(t, 20000, res.Trials)
	assert.True(t, res.Agrees)
	assert.True(t, res.Consistency.OK)
	assert.InDelta(t, 3.9906, res.Primary().Mean, 0.02)

	require.NotNil(t, res.Exact)
	assert.Equal(t, uint64(46656), res.Exact.Space)
	assert.False(t, res.Exact.Cached)
	assert.Empty(t, res.ExactSkip)

	require.Len(t, res.Rows, 6)
	assert.Equal(t, "1", res.Rows[0].Label)
	assert.Equal(t, "6", res.Rows[5].Label)
	assert.True(t, res.Rows[3].HasExact)
	assert.InDelta(t, 23400.0/46656, res.Rows[3].Exact, 1e-12)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(experiment.SamplingName, "success")))
	assert.Equal(t, 20000.0, testutil.ToFloat64(m.TrialsTotal.WithLabelValues(experiment.SamplingName)))
	assert.Equal(t, 46656.0, testutil.ToFloat64(m.EnumerationSize.WithLabelValues(experiment.SamplingName)))
}

func TestService_RunPairing(t *testing.T) {
	svc, m := newTestService(t)

	res, err := svc.Run(context.Background(), experiment.PairingName)
	require.NoError(t, err)

	require.NotNil(t, res.Exact)
	assert.Equal(t, uint64(105*105), res.Exact.Space)

	require.Len(t, res.Claims, 2)
	perRank, symmetry := res.Claims[0], res.Claims[1]
	assert.Equal(t, "per-rank", perRank.Claim.Name)
	assert.True(t, perRank.Agrees)
	assert.Equal(t, "symmetry", symmetry.Claim.Name)
	assert.Equal(t, 2.0, symmetry.Claim.Value)
	assert.False(t, symmetry.Agrees)
	assert.True(t, symmetry.Claim.Informational)
	assert.True(t, res.Agrees)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClaimsAgreement.WithLabelValues(experiment.PairingName, "false")))
	assert.InDelta(t, symmetry.Deviation,
		testutil.ToFloat64(m.ClaimDeviation.WithLabelValues(experiment.PairingName, "symmetry")), 1e-12)
}

func TestService_RunWaiting(t *testing.T) {
	svc, m := newTestService(t)

	res, err := svc.Run(context.Background(), experiment.WaitingName)
	require.NoError(t, err)

	assert.Nil(t, res.Exact)
	assert.Equal(t, engine.SkipContinuous, res.ExactSkip)
	assert.True(t, res.Agrees)
	assert.False(t, res.Consistency.Checked)

	require.Len(t, res.Rows, 7)
	assert.Equal(t, "0-5", res.Rows[0].Label)
	assert.Equal(t, ">30", res.Rows[6].Label)
	assert.False(t, res.Rows[0].HasExact)

	require.Len(t, res.Poisson, 6)
	assert.InDelta(t, 0.05, res.Poisson[0].Probability, 1e-12)
	assert.Equal(t, 30.0, res.Poisson[0].Window)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntractableSkip.WithLabelValues(experiment.WaitingName)))
}

func TestService_ExactCache(t *testing.T) {
	mem := cache.NewMemoryCache(nil)
	t.Cleanup(func() { _ = mem.Close() })

	svc, m := newTestService(t, WithCache(mem, time.Hour))
	ctx := context.Background()

	first, err := svc.Run(ctx, experiment.SamplingName)
	require.NoError(t, err)
	require.NotNil(t, first.Exact)
	assert.False(t, first.Exact.Cached)

	second, err := svc.Run(ctx, experiment.SamplingName)
	require.NoError(t, err)
	require.NotNil(t, second.Exact)
	assert.True(t, second.Exact.Cached)
	assert.Equal(t, first.Exact.Space, second.Exact.Space)
	assert.InDelta(t, first.Exact.Mean, second.Exact.Mean, 1e-12)
	assert.Equal(t, first.Rows, second.Rows)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))

	keys, err := mem.Keys(ctx, "exact:sampling:*")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestService_RunAll(t *testing.T) {
	svc, _ := newTestService(t)

	results, err := svc.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, name := range svc.Names() {
		assert.Equal(t, name, results[i].Experiment)
		assert.Positive(t, results[i].Duration())
	}
}

func TestService_RunAllCancelled(t *testing.T) {
	svc, m := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := svc.RunAll(ctx)
	require.Error(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(experiment.PairingName, "error")))
}

func TestService_Deterministic(t *testing.T) {
	a, _ := newTestService(t)
	b, _ := newTestService(t)

	ra, err := a.Run(context.Background(), experiment.WaitingName)
	require.NoError(t, err)
	rb, err := b.Run(context.Background(), experiment.WaitingName)
	require.NoError(t, err)

	assert.Equal(t, ra.Measures, rb.Measures)
	assert.Equal(t, ra.Rows, rb.Rows)
}

func TestService_Span(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider, err := telemetry.InitWithExporter(telemetry.Config{ServiceName: "verifier-test", SampleRate: 1}, exporter)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	svc, _ := newTestService(t)
	_, err = svc.Run(context.Background(), experiment.SamplingName)
	require.NoError(t, err)
	require.NoError(t, provider.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "verifier.Run", spans[0].Name)
	assert.Len(t, spans[0].Events, 2) // по событию на утверждение
}

func TestMergeKeys(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 5}, mergeKeys([]int{1, 3}, []int{2, 3, 5}))
	assert.Equal(t, []int{4}, mergeKeys(nil, []int{4}))
	assert.Empty(t, mergeKeys(nil, nil))
}
