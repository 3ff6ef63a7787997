package engine

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"stochastic/pkg/apperror"
	"stochastic/pkg/logger"
)

func init() {
	logger.Init("error")
}

// ============================================================
// TEST EXPERIMENTS
// ============================================================

// dieExperiment бросок честной шестигранной кости
type dieExperiment struct {
	trials      atomic.Int64
	failAt      int64 // >0 - номер испытания, на котором вернуть ошибку
	analyticErr error
}

func (d *dieExperiment) Name() string { return "die" }

func (d *dieExperiment) Trial(rng *rand.Rand) (int, error) {
	n := d.trials.Add(1)
	if d.failAt > 0 && n == d.failAt {
		return 0, errors.New("die fell off the table")
	}
	return rng.IntN(6) + 1, nil
}

func (d *dieExperiment) Measures() []Measure[int] {
	return []Measure[int]{
		{Name: "value", Extract: func(o int) float64 { return float64(o) }},
		{Name: "six", Extract: func(o int) float64 {
			if o == 6 {
				return 1
			}
			return 0
		}},
	}
}

func (d *dieExperiment) Classify(o int) int { return o }

func (d *dieExperiment) KeyValue(k int) float64 { return float64(k) }

func (d *dieExperiment) Analytical() ([]Claim, error) {
	if d.analyticErr != nil {
		return nil, d.analyticErr
	}
	return []Claim{
		{Name: "mean", Measure: "value", Value: 3.5, Tolerance: 0.05, Formula: "(1+...+6)/6"},
		{Name: "six", Measure: "six", Value: 1.0 / 6, Tolerance: 0.01},
	}, nil
}

func (d *dieExperiment) Enumerate(ctx context.Context, ceiling uint64) (*Exact[int], error) {
	dist := NewDistribution[int]()
	err := EnumerateProduct(ctx, 6, 1, ceiling, func(seq []int) {
		dist.Add(seq[0] + 1)
	})
	if err != nil {
		return nil, err
	}
	return NewExact("value", dist, d.KeyValue), nil
}

// uniformExperiment непрерывная величина без перебора и без KeyValuer
type uniformExperiment struct{}

func (uniformExperiment) Name() string { return "uniform" }

func (uniformExperiment) Trial(rng *rand.Rand) (float64, error) { return rng.Float64(), nil }

func (uniformExperiment) Classify(o float64) string {
	if o < 0.5 {
		return "low"
	}
	return "high"
}

func (uniformExperiment) Measures() []Measure[float64] {
	return []Measure[float64]{{Name: "x", Extract: func(o float64) float64 { return o }}}
}

func (uniformExperiment) Analytical() ([]Claim, error) {
	return []Claim{{Name: "mean", Measure: "x", Value: 0.5, Tolerance: 0.02}}, nil
}

// ============================================================
// FAKE STORE
// ============================================================

type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	loads   int
	stores  int
	loadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Load(_ context.Context, experiment string, dst any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return false, s.loadErr
	}
	raw, ok := s.data[experiment]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (s *memoryStore) Store(_ context.Context, experiment string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[experiment] = raw
	return nil
}

var errDomain = apperror.DomainError("p", "probability must be in (0, 1)")
