// services/verifier-svc/internal/engine/verify.go
package engine

import (
	"cmp"
	"context"
	"log/slog"
	"math"
	"time"

	"stochastic/pkg/apperror"
	"stochastic/pkg/logger"
)

// Этапы проверки
const (
	StageAnalytical = "analytical"
	StageExact      = "exact"
	StageMonteCarlo = "monte_carlo"
)

// SkipContinuous причина пропуска перебора для непрерывных исходов
const SkipContinuous = "continuous outcome space"

// VerifyOptions параметры тройной проверки
type VerifyOptions struct {
	Estimate       Options
	EnumerationCap uint64
	// Store необязательный кэш результатов перебора
	Store ExactStore
}

// ClaimCheck сравнение утверждения с эмпирической и точной оценками
type ClaimCheck struct {
	Claim          Claim   `json:"claim"`
	Empirical      float64 `json:"empirical"`
	Deviation      float64 `json:"deviation"`
	HasExact       bool    `json:"has_exact"`
	Exact          float64 `json:"exact,omitempty"`
	ExactDeviation float64 `json:"exact_deviation,omitempty"`
	Agrees         bool    `json:"agrees"`
}

// Consistency проверка распределения против выборочного среднего
type Consistency struct {
	Normalized   bool    `json:"normalized"`
	WeightedMean float64 `json:"weighted_mean"`
	SampleMean   float64 `json:"sample_mean"`
	Difference   float64 `json:"difference"`
	// Checked false, если ключи распределения не имеют числового значения
	Checked bool `json:"checked"`
	OK      bool `json:"ok"`
}

// Verification итог проверки одного эксперимента
type Verification[K cmp.Ordered] struct {
	Experiment  string
	Seed        uint64
	Claims      []Claim
	Exact       *Exact[K]
	ExactSkip   string
	ExactCached bool
	Estimate    *Estimate[K]
	Checks      []ClaimCheck
	Consistency Consistency
	Durations   map[string]time.Duration
}

// Agrees все утверждения, кроме информационных, подтверждены
func (v *Verification[K]) Agrees() bool {
	for _, c := range v.Checks {
		if !c.Agrees && !c.Claim.Informational {
			return false
		}
	}
	return true
}

// Verify сверяет аналитическое решение, точный перебор и Monte Carlo.
// Ошибки конфигурации и предметной области прерывают проверку до начала испытаний;
// INTRACTABLE лишь отмечается как причина пропуска перебора.
func Verify[O any, K cmp.Ordered](ctx context.Context, exp Experiment[O, K], opts VerifyOptions) (*Verification[K], error) {
	if exp == nil {
		return nil, apperror.ErrNilExperiment
	}

	mc := NewMonteCarlo(exp, opts.Estimate)
	log := logger.WithExperiment(exp.Name(), mc.Seed())

	v := &Verification[K]{
		Experiment: exp.Name(),
		Seed:       mc.Seed(),
		Durations:  make(map[string]time.Duration, 3),
	}

	start := time.Now()
	claims, err := exp.Analytical()
	if err != nil {
		return nil, err
	}
	v.Claims = claims
	v.Durations[StageAnalytical] = time.Since(start)

	start = time.Now()
	if err := v.runExact(ctx, exp, opts, log); err != nil {
		return nil, err
	}
	v.Durations[StageExact] = time.Since(start)

	start = time.Now()
	est, err := mc.Run(ctx)
	if err != nil {
		return nil, err
	}
	v.Estimate = est
	v.Durations[StageMonteCarlo] = time.Since(start)

	v.Checks = checkClaims(claims, est, v.Exact)
	v.Consistency = checkConsistency(exp, est)

	log.Debug("verification finished",
		"trials", est.Trials,
		"agrees", v.Agrees(),
		"self_consistent", v.Consistency.OK,
	)
	return v, nil
}

func (v *Verification[K]) runExact(ctx context.Context, exp any, opts VerifyOptions, log *slog.Logger) error {
	enum, ok := exp.(Enumerator[K])
	if !ok {
		v.ExactSkip = SkipContinuous
		return nil
	}

	if opts.Store != nil {
		cached := &Exact[K]{Distribution: NewDistribution[K]()}
		hit, err := opts.Store.Load(ctx, v.Experiment, cached)
		if err != nil {
			log.Warn("exact cache load failed", "error", err)
		}
		if hit {
			v.Exact, v.ExactCached = cached, true
			return nil
		}
	}

	exact, err := enum.Enumerate(ctx, opts.EnumerationCap)
	if err != nil {
		if apperror.IsIntractable(err) {
			v.ExactSkip = err.Error()
			log.Debug("exact enumeration skipped", "reason", v.ExactSkip)
			return nil
		}
		return err
	}
	v.Exact = exact

	if opts.Store != nil {
		if err := opts.Store.Store(ctx, v.Experiment, exact); err != nil {
			log.Warn("exact cache store failed", "error", err)
		}
	}
	return nil
}

func checkClaims[K cmp.Ordered](claims []Claim, est *Estimate[K], exact *Exact[K]) []ClaimCheck {
	checks := make([]ClaimCheck, 0, len(claims))
	for _, c := range claims {
		check := ClaimCheck{Claim: c}
		if s, ok := est.Measure(c.Measure); ok {
			check.Empirical = s.Mean
			check.Deviation = math.Abs(s.Mean - c.Value)
		} else {
			check.Deviation = math.Inf(1)
		}
		check.Agrees = check.Deviation <= c.Tolerance

		if exact != nil && exact.Measure == c.Measure {
			check.HasExact = true
			check.Exact = exact.Mean
			check.ExactDeviation = math.Abs(exact.Mean - c.Value)
			check.Agrees = check.Agrees && check.ExactDeviation <= c.Tolerance
		}
		checks = append(checks, check)
	}
	return checks
}

func checkConsistency[O any, K cmp.Ordered](exp Experiment[O, K], est *Estimate[K]) Consistency {
	c := Consistency{
		Normalized: est.Distribution.Check() == nil,
		SampleMean: est.Primary().Mean,
	}
	kv, ok := any(exp).(KeyValuer[K])
	if !ok {
		c.OK = c.Normalized
		return c
	}

	c.Checked = true
	c.WeightedMean = est.Distribution.Expectation(kv.KeyValue)
	c.Difference = math.Abs(c.WeightedMean - c.SampleMean)
	c.OK = c.Normalized && c.Difference <= NormalizationTolerance
	return c
}
