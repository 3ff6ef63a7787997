// services/verifier-svc/internal/engine/monte_carlo.go
package engine

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"stochastic/pkg/apperror"
)

// Значения по умолчанию для оценки Monte Carlo
const (
	DefaultTrials          = 10000
	DefaultChunkSize       = 1024
	DefaultConfidenceLevel = 0.95
)

// Options параметры оценки
type Options struct {
	Trials          int
	Seed            uint64 // 0 - от часов
	Workers         int    // 0 - runtime.NumCPU(), 1 - последовательно
	ChunkSize       int
	ConfidenceLevel float64
}

func (o Options) withDefaults() Options {
	if o.Trials <= 0 {
		o.Trials = DefaultTrials
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ConfidenceLevel <= 0 || o.ConfidenceLevel >= 1 {
		o.ConfidenceLevel = DefaultConfidenceLevel
	}
	o.Seed = ResolveSeed(o.Seed)
	return o
}

// Summary выборочная статистика одной величины
type Summary struct {
	Name     string  `json:"name"`
	N        int     `json:"n"`
	Sum      float64 `json:"sum"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	StdError float64 `json:"std_error"`
	CILower  float64 `json:"ci_lower"`
	CIUpper  float64 `json:"ci_upper"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Estimate результат оценки Monte Carlo
type Estimate[K cmp.Ordered] struct {
	Seed            uint64
	Trials          int
	Chunks          int
	ConfidenceLevel float64
	Measures        []Summary
	Distribution    *Distribution[K]
}

// Measure сводка по имени величины
func (e *Estimate[K]) Measure(name string) (Summary, bool) {
	for _, s := range e.Measures {
		if s.Name == name {
			return s, true
		}
	}
	return Summary{}, false
}

// Primary сводка основной величины
func (e *Estimate[K]) Primary() Summary {
	if len(e.Measures) == 0 {
		return Summary{}
	}
	return e.Measures[0]
}

// moments накопленные суммы по одной величине
type moments struct {
	n          int
	sum, sumSq float64
	min, max   float64
}

func (m *moments) add(v float64) {
	if m.n == 0 || v < m.min {
		m.min = v
	}
	if m.n == 0 || v > m.max {
		m.max = v
	}
	m.n++
	m.sum += v
	m.sumSq += v * v
}

func (m *moments) merge(o moments) {
	if o.n == 0 {
		return
	}
	if m.n == 0 || o.min < m.min {
		m.min = o.min
	}
	if m.n == 0 || o.max > m.max {
		m.max = o.max
	}
	m.n += o.n
	m.sum += o.sum
	m.sumSq += o.sumSq
}

type chunkResult[K cmp.Ordered] struct {
	moments []moments
	dist    *Distribution[K]
}

// MonteCarlo оценщик Monte Carlo.
// Испытания режутся на блоки фиксированного размера; блок i всегда использует
// поток NewStream(seed, i), а частичные результаты сливаются в порядке блоков.
// Поэтому результат зависит только от (seed, trials, chunk size).
type MonteCarlo[O any, K cmp.Ordered] struct {
	exp  Experiment[O, K]
	opts Options
}

// NewMonteCarlo создаёт оценщик
func NewMonteCarlo[O any, K cmp.Ordered](exp Experiment[O, K], opts Options) *MonteCarlo[O, K] {
	return &MonteCarlo[O, K]{exp: exp, opts: opts.withDefaults()}
}

// Seed фактически используемый seed
func (mc *MonteCarlo[O, K]) Seed() uint64 {
	return mc.opts.Seed
}

// Run выполняет все испытания
func (mc *MonteCarlo[O, K]) Run(ctx context.Context) (*Estimate[K], error) {
	measures := mc.exp.Measures()
	if len(measures) == 0 {
		return nil, apperror.InvalidConfiguration("measures", mc.exp.Name()+": experiment defines no measures")
	}

	trials, size := mc.opts.Trials, mc.opts.ChunkSize
	numChunks := (trials + size - 1) / size
	results := make([]chunkResult[K], numChunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mc.opts.Workers)

	for c := 0; c < numChunks; c++ {
		start := c * size
		end := min(start+size, trials)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := mc.runChunk(uint64(c), end-start, measures)
			if err != nil {
				return err
			}
			results[c] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if apperror.Is(err, apperror.CodeTrialFailed) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperror.Wrap(ctxErr, apperror.CodeTimeout, mc.exp.Name()+": estimation cancelled")
		}
		return nil, err
	}

	total := make([]moments, len(measures))
	dist := NewDistribution[K]()
	for _, r := range results {
		for i := range total {
			total[i].merge(r.moments[i])
		}
		dist.Merge(r.dist)
	}

	est := &Estimate[K]{
		Seed:            mc.opts.Seed,
		Trials:          trials,
		Chunks:          numChunks,
		ConfidenceLevel: mc.opts.ConfidenceLevel,
		Measures:        make([]Summary, len(measures)),
		Distribution:    dist,
	}
	for i, m := range measures {
		est.Measures[i] = summarize(m.Name, total[i], mc.opts.ConfidenceLevel)
	}
	return est, nil
}

func (mc *MonteCarlo[O, K]) runChunk(index uint64, n int, measures []Measure[O]) (chunkResult[K], error) {
	rng := NewStream(mc.opts.Seed, index)
	res := chunkResult[K]{
		moments: make([]moments, len(measures)),
		dist:    NewDistribution[K](),
	}

	for t := 0; t < n; t++ {
		outcome, err := mc.exp.Trial(rng)
		if err != nil {
			return res, apperror.Wrap(err, apperror.CodeTrialFailed,
				fmt.Sprintf("%s: trial %d failed", mc.exp.Name(), int(index)*mc.opts.ChunkSize+t))
		}
		for i, m := range measures {
			res.moments[i].add(m.Extract(outcome))
		}
		res.dist.Add(mc.exp.Classify(outcome))
	}
	return res, nil
}

// summarize считает среднее, несмещённую дисперсию и доверительный интервал
func summarize(name string, m moments, confidenceLevel float64) Summary {
	s := Summary{Name: name, N: m.n, Sum: m.sum, Min: m.min, Max: m.max}
	if m.n == 0 {
		return s
	}

	n := float64(m.n)
	s.Mean = m.sum / n
	if m.n > 1 {
		s.Variance = math.Max(0, (m.sumSq-n*s.Mean*s.Mean)/(n-1))
	}
	s.StdDev = math.Sqrt(s.Variance)
	s.StdError = s.StdDev / math.Sqrt(n)

	z := normalInverse((1 + confidenceLevel) / 2)
	s.CILower = s.Mean - z*s.StdError
	s.CIUpper = s.Mean + z*s.StdError
	return s
}

// normalInverse квантиль стандартного нормального распределения (алгоритм Acklam)
func normalInverse(p float64) float64 {
	a := []float64{-3.969683028665376e+01, 2.209460984245205e+02,
		-2.759285104469687e+02, 1.383577518672690e+02,
		-3.066479806614716e+01, 2.506628277459239e+00}
	b := []float64{-5.447609879822406e+01, 1.615858368580409e+02,
		-1.556989798598866e+02, 6.680131188771972e+01, -1.328068155288572e+01}
	c := []float64{-7.784894002430293e-03, -3.223964580411365e-01,
		-2.400758277161838e+00, -2.549732539343734e+00,
		4.374664141464968e+00, 2.938163982698783e+00}
	d := []float64{7.784695709041462e-03, 3.224671290700398e-01,
		2.445134137142996e+00, 3.754408661907416e+00}

	const pLow = 0.02425
	const pHigh = 1 - pLow

	switch {
	case p <= 0:
		return math.Inf(-1)
	case p >= 1:
		return math.Inf(1)
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p <= pHigh:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	default:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}
}
