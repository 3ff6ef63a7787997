// services/verifier-svc/internal/experiment/sampling.go
package experiment

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"math/rand/v2"
	"strconv"

	"stochastic/pkg/apperror"
	"stochastic/services/verifier-svc/internal/engine"
)

// SamplingName имя эксперимента в каталоге
const SamplingName = "sampling"

// SamplingConfig K выборок с возвращением из M категорий
type SamplingConfig struct {
	Categories int
	Draws      int
	Tolerance  float64
}

// SamplingOutcome число выборок и число различных категорий среди них
type SamplingOutcome struct {
	Draws    int
	Distinct int
}

// Sampling выборка с возвращением
type Sampling struct {
	m, k      int
	tolerance float64
}

// NewSampling проверяет параметры и создаёт эксперимент
func NewSampling(cfg SamplingConfig) (*Sampling, error) {
	switch {
	case cfg.Categories <= 0:
		return nil, apperror.InvalidConfiguration("categories",
			fmt.Sprintf("categories must be positive, got %d", cfg.Categories))
	case cfg.Draws < 0:
		return nil, apperror.InvalidConfiguration("draws",
			fmt.Sprintf("draws must be non-negative, got %d", cfg.Draws))
	case cfg.Tolerance < 0:
		return nil, apperror.InvalidConfiguration("tolerance", "tolerance must be non-negative")
	}
	return &Sampling{m: cfg.Categories, k: cfg.Draws, tolerance: cfg.Tolerance}, nil
}

func (s *Sampling) Name() string { return SamplingName }

// Params параметры, определяющие результат перебора
func (s *Sampling) Params() map[string]float64 {
	return map[string]float64{"categories": float64(s.m), "draws": float64(s.k)}
}

// Trial K равновероятных выборок из [0, M)
func (s *Sampling) Trial(rng *rand.Rand) (SamplingOutcome, error) {
	seen := make([]bool, s.m)
	distinct := 0
	for range s.k {
		c := rng.IntN(s.m)
		if !seen[c] {
			seen[c] = true
			distinct++
		}
	}
	return SamplingOutcome{Draws: s.k, Distinct: distinct}, nil
}

func (s *Sampling) Measures() []engine.Measure[SamplingOutcome] {
	return []engine.Measure[SamplingOutcome]{
		{Name: "distinct", Extract: func(o SamplingOutcome) float64 { return float64(o.Distinct) }},
		{Name: "all-seen", Extract: func(o SamplingOutcome) float64 {
			if o.Distinct == s.m {
				return 1
			}
			return 0
		}},
	}
}

func (s *Sampling) Classify(o SamplingOutcome) int { return o.Distinct }

func (s *Sampling) KeyValue(k int) float64 { return float64(k) }

func (s *Sampling) KeyLabel(k int) string { return strconv.Itoa(k) }

// ExpectedDistinct M·(1 − (1 − 1/M)^K)
func (s *Sampling) ExpectedDistinct() float64 {
	m := float64(s.m)
	return m * (1 - math.Pow(1-1/m, float64(s.k)))
}

// DistinctPMF точное распределение числа различных категорий:
// P(d) = M·(M−1)···(M−d+1)·S(K, d) / M^K, где S - числа Стирлинга второго рода.
// Индекс среза - d, от 0 до min(M, K).
func (s *Sampling) DistinctPMF() []float64 {
	top := min(s.m, s.k)
	stirling := stirlingRow(s.k, top)
	denom := new(big.Int).Exp(big.NewInt(int64(s.m)), big.NewInt(int64(s.k)), nil)

	pmf := make([]float64, top+1)
	falling := big.NewInt(1)
	for d := 0; d <= top; d++ {
		if d > 0 {
			falling.Mul(falling, big.NewInt(int64(s.m-d+1)))
		}
		num := new(big.Int).Mul(falling, stirling[d])
		pmf[d], _ = new(big.Rat).SetFrac(num, denom).Float64()
	}
	return pmf
}

// stirlingRow S(n, 0..top) по рекурренте S(n,k) = k·S(n−1,k) + S(n−1,k−1)
func stirlingRow(n, top int) []*big.Int {
	row := make([]*big.Int, top+1)
	for i := range row {
		row[i] = new(big.Int)
	}
	row[0].SetInt64(1) // S(0,0)

	tmp := new(big.Int)
	for i := 1; i <= n; i++ {
		for k := min(i, top); k >= 1; k-- {
			tmp.Mul(big.NewInt(int64(k)), row[k])
			row[k].Add(tmp, row[k-1])
		}
		row[0].SetInt64(0)
	}
	return row
}

// Analytical ожидание числа различных категорий и вероятность увидеть все
func (s *Sampling) Analytical() ([]engine.Claim, error) {
	claims := []engine.Claim{{
		Name:      "closed-form",
		Measure:   "distinct",
		Value:     s.ExpectedDistinct(),
		Tolerance: s.tolerance,
		Formula:   fmt.Sprintf("%d·(1 − (1 − 1/%d)^%d)", s.m, s.m, s.k),
	}}

	allSeen := 0.0
	if pmf := s.DistinctPMF(); len(pmf) == s.m+1 {
		allSeen = pmf[s.m]
	}
	claims = append(claims, engine.Claim{
		Name:      "all-seen",
		Measure:   "all-seen",
		Value:     allSeen,
		Tolerance: s.tolerance,
		Formula:   fmt.Sprintf("%d!·S(%d, %d)/%d^%d", s.m, s.k, s.m, s.m, s.k),
	})
	return claims, nil
}

// Enumerate перебирает все M^K последовательностей выборок
func (s *Sampling) Enumerate(ctx context.Context, ceiling uint64) (*engine.Exact[int], error) {
	dist := engine.NewDistribution[int]()
	stamp := make([]int, s.m)
	gen := 0

	err := engine.EnumerateProduct(ctx, s.m, s.k, ceiling, func(seq []int) {
		gen++
		distinct := 0
		for _, c := range seq {
			if stamp[c] != gen {
				stamp[c] = gen
				distinct++
			}
		}
		dist.Add(distinct)
	})
	if err != nil {
		return nil, err
	}

	return engine.NewExact("distinct", dist, s.KeyValue), nil
}
