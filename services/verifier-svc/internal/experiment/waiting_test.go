// services/verifier-svc/internal/experiment/waiting_test.go
package experiment

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stochastic/pkg/apperror"
	"stochastic/services/verifier-svc/internal/engine"
)

func newWaiting(t *testing.T) *Waiting {
	t.Helper()
	w, err := NewWaiting(WaitingConfig{
		Probability: 0.95,
		Window:      30,
		Queries:     []float64{10, 27},
		BucketWidth: 5,
		Tolerance:   0.01,
	})
	require.NoError(t, err)
	return w
}

func TestRate_DomainError(t *testing.T) {
	tests := []struct {
		name  string
		p, t  float64
		field string
	}{
		{"zero probability", 0, 30, "probability"},
		{"certain event", 1, 30, "probability"},
		{"above one", 1.5, 30, "probability"},
		{"negative", -0.1, 30, "probability"},
		{"nan", math.NaN(), 30, "probability"},
		{"zero window", 0.95, 0, "window"},
		{"negative window", 0.95, -1, "window"},
		{"infinite window", 0.95, math.Inf(1), "window"},
		{"nan window", 0.95, math.NaN(), "window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rate(tt.p, tt.t)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.CodeDomainError))

			var appErr *apperror.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)

			_, err = NewWaiting(WaitingConfig{Probability: tt.p, Window: tt.t})
			assert.True(t, apperror.Is(err, apperror.CodeDomainError))
		})
	}
}

func TestNewWaiting_InvalidQueries(t *testing.T) {
	_, err := NewWaiting(WaitingConfig{Probability: 0.5, Window: 1, Queries: []float64{-1}})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidConfiguration))

	_, err = NewWaiting(WaitingConfig{Probability: 0.5, Window: 1, BucketWidth: -1})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidConfiguration))

	// при нескольких нарушениях возвращается первое
	_, err = NewWaiting(WaitingConfig{Probability: 0.5, Window: 1, Queries: []float64{math.Inf(1)}, Tolerance: -1})
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "queries", appErr.Field)
}

func TestWaiting_Calibration(t *testing.T) {
	w := newWaiting(t)

	assert.InDelta(t, 0.0999, w.Rate(), 1e-4)
	assert.InDelta(t, -math.Log(0.05)/30, w.Rate(), 1e-15)
	assert.InDelta(t, 0.6316, w.ProbabilityWithin(10), 1e-4)
	assert.InDelta(t, 0.9325, w.ProbabilityWithin(27), 1e-4)
	assert.InDelta(t, 0.95, w.ProbabilityWithin(30), 1e-12)
	assert.Equal(t, 0.0, w.ProbabilityWithin(0))
	assert.InDelta(t, 30/math.Log(20), w.MeanWait(), 1e-12)
}

func TestWaiting_FormsAgree(t *testing.T) {
	w := newWaiting(t)

	for tt := 0.0; tt <= 120; tt += 0.25 {
		assert.InDelta(t, w.ProbabilityWithin(tt), w.ScaledProbabilityWithin(tt), 1e-12, "t=%v", tt)
	}
}

func TestWaiting_PoissonPMF(t *testing.T) {
	w := newWaiting(t)

	assert.InDelta(t, 0.05, w.PoissonPMF(30, 0), 1e-12)
	assert.Equal(t, 1.0, w.PoissonPMF(0, 0))
	assert.Equal(t, 0.0, w.PoissonPMF(0, 2))
	assert.Equal(t, 0.0, w.PoissonPMF(10, -1))

	var sum float64
	for k := 0; k < 60; k++ {
		sum += w.PoissonPMF(10, k)
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, 1-w.PoissonPMF(10, 0), w.ProbabilityWithin(10), 1e-12)
}

func TestWaiting_Buckets(t *testing.T) {
	w := newWaiting(t)

	tests := []struct {
		wait  float64
		key   int
		label string
	}{
		{0, 0, "0-5"},
		{4.99, 0, "0-5"},
		{5, 1, "5-10"},
		{29.99, 5, "25-30"},
		{30, 6, ">30"},
		{250, 6, ">30"},
	}

	for _, tt := range tests {
		key := w.Classify(tt.wait)
		assert.Equal(t, tt.key, key, "wait=%v", tt.wait)
		assert.Equal(t, tt.label, w.KeyLabel(key))
	}
}

func TestWaiting_DefaultBucketWidth(t *testing.T) {
	w, err := NewWaiting(WaitingConfig{Probability: 0.5, Window: 12})
	require.NoError(t, err)

	assert.Equal(t, ">12", w.KeyLabel(w.Classify(13)))
	assert.Equal(t, "10-12", w.KeyLabel(w.Classify(11)))
}

func TestWaiting_Claims(t *testing.T) {
	claims, err := newWaiting(t).Analytical()
	require.NoError(t, err)
	require.Len(t, claims, 5)

	names := make([]string, len(claims))
	for i, c := range claims {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"mean-wait", "rate-form:10", "scale-form:10", "rate-form:27", "scale-form:27"}, names)
	assert.Equal(t, "within:27", claims[4].Measure)
	assert.InDelta(t, claims[3].Value, claims[4].Value, 1e-12)
}

func TestWaiting_NotEnumerable(t *testing.T) {
	var exp any = newWaiting(t)
	_, ok := exp.(engine.Enumerator[int])
	assert.False(t, ok)
}

func TestWaiting_Verify(t *testing.T) {
	w := newWaiting(t)

	v, err := engine.Verify[float64, int](context.Background(), w, engine.VerifyOptions{
		Estimate: engine.Options{Trials: 50000, Seed: 30},
	})
	require.NoError(t, err)

	assert.Nil(t, v.Exact)
	assert.Equal(t, engine.SkipContinuous, v.ExactSkip)
	for _, c := range v.Checks {
		assert.True(t, c.Agrees, "%s deviates by %v", c.Claim.Name, c.Deviation)
	}

	within10, ok := v.Estimate.Measure("within:10")
	require.True(t, ok)
	assert.InDelta(t, 0.6316, within10.Mean, 0.01)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, v.Estimate.Distribution.Keys())
	assert.InDelta(t, 0.05, v.Estimate.Distribution.Probability(6), 0.01)
	assert.True(t, v.Consistency.Normalized)
	assert.False(t, v.Consistency.Checked)
}
