package engine

import (
	"cmp"
	"context"
	"math"
	"math/bits"

	"stochastic/pkg/apperror"
)

// DefaultEnumerationCap верхняя граница размера пространства исходов по умолчанию
const DefaultEnumerationCap = 1_000_000

// ctxCheckInterval как часто перебор проверяет отмену контекста
const ctxCheckInterval = 1 << 12

// Exact результат полного перебора пространства исходов
type Exact[K cmp.Ordered] struct {
	Measure      string           `json:"measure"`
	Space        uint64           `json:"space"`
	Mean         float64          `json:"mean"`
	Distribution *Distribution[K] `json:"distribution"`
}

// NewExact собирает результат перебора; среднее считается по распределению
func NewExact[K cmp.Ordered](measure string, dist *Distribution[K], value func(K) float64) *Exact[K] {
	return &Exact[K]{
		Measure:      measure,
		Space:        dist.Total(),
		Mean:         dist.Expectation(value),
		Distribution: dist,
	}
}

// SpaceSize base^digits с насыщением до math.MaxUint64
func SpaceSize(base, digits int) uint64 {
	if digits <= 0 {
		return 1
	}
	if base <= 0 {
		return 0
	}
	size := uint64(1)
	for i := 0; i < digits; i++ {
		hi, lo := bits.Mul64(size, uint64(base))
		if hi != 0 {
			return math.MaxUint64
		}
		size = lo
	}
	return size
}

// MulSaturating произведение с насыщением до math.MaxUint64
func MulSaturating(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// EnumerateProduct обходит все последовательности длины k из значений [0, m)
// в лексикографическом порядке. Срез seq переиспользуется между вызовами visit.
// При k == 0 visit вызывается один раз с пустой последовательностью.
func EnumerateProduct(ctx context.Context, m, k int, ceiling uint64, visit func(seq []int)) error {
	if m <= 0 {
		return apperror.InvalidConfiguration("categories", "number of categories must be positive")
	}
	if k < 0 {
		return apperror.InvalidConfiguration("draws", "number of draws must be non-negative")
	}
	if ceiling == 0 {
		ceiling = DefaultEnumerationCap
	}
	if space := SpaceSize(m, k); space > ceiling {
		return apperror.Intractable(space, ceiling)
	}

	seq := make([]int, k)
	for step := 0; ; step++ {
		if step%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		visit(seq)

		// одометр: увеличиваем младший разряд с переносом
		i := k - 1
		for i >= 0 {
			seq[i]++
			if seq[i] < m {
				break
			}
			seq[i] = 0
			i--
		}
		if i < 0 {
			return nil
		}
	}
}
