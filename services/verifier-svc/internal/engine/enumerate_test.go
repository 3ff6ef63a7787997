package engine

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stochastic/pkg/apperror"
)

func TestSpaceSize(t *testing.T) {
	tests := []struct {
		base, digits int
		want         uint64
	}{
		{6, 6, 46656},
		{2, 10, 1024},
		{5, 0, 1},
		{0, 3, 0},
		{10, 19, 10_000_000_000_000_000_000},
		{10, 20, math.MaxUint64},
		{80, 40, math.MaxUint64},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SpaceSize(tt.base, tt.digits), "%d^%d", tt.base, tt.digits)
	}
}

func TestMulSaturating(t *testing.T) {
	assert.Equal(t, uint64(42), MulSaturating(6, 7))
	assert.Equal(t, uint64(math.MaxUint64), MulSaturating(math.MaxUint64, 2))
}

func TestEnumerateProduct_Order(t *testing.T) {
	var seen [][]int
	err := EnumerateProduct(context.Background(), 2, 3, 0, func(seq []int) {
		seen = append(seen, slices.Clone(seq))
	})

	require.NoError(t, err)
	assert.Equal(t, [][]int{
		{0, 0, 0}, {0, 0, 1}, {0, 1, 0}, {0, 1, 1},
		{1, 0, 0}, {1, 0, 1}, {1, 1, 0}, {1, 1, 1},
	}, seen)
}

func TestEnumerateProduct_Count(t *testing.T) {
	var count int
	err := EnumerateProduct(context.Background(), 6, 6, 1_000_000, func([]int) { count++ })

	require.NoError(t, err)
	assert.Equal(t, 46656, count)
}

func TestEnumerateProduct_EmptySequence(t *testing.T) {
	var calls int
	err := EnumerateProduct(context.Background(), 6, 0, 0, func(seq []int) {
		calls++
		assert.Empty(t, seq)
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestEnumerateProduct_Intractable(t *testing.T) {
	called := false
	err := EnumerateProduct(context.Background(), 10, 7, 1_000_000, func([]int) { called = true })

	require.Error(t, err)
	assert.True(t, apperror.IsIntractable(err))
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.SeverityWarning, appErr.Severity)
	assert.False(t, called)
}

func TestEnumerateProduct_InvalidArguments(t *testing.T) {
	noop := func([]int) {}

	err := EnumerateProduct(context.Background(), 0, 2, 0, noop)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidConfiguration))

	err = EnumerateProduct(context.Background(), 3, -1, 0, noop)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidConfiguration))
}

func TestEnumerateProduct_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := EnumerateProduct(ctx, 6, 6, 0, func([]int) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewExact(t *testing.T) {
	dist := Tabulate([]int{0, 1, 1, 2}, func(v int) int { return v })
	exact := NewExact("heads", dist, func(k int) float64 { return float64(k) })

	assert.Equal(t, "heads", exact.Measure)
	assert.Equal(t, uint64(4), exact.Space)
	assert.Equal(t, 1.0, exact.Mean)
}
