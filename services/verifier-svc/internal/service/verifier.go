// services/verifier-svc/internal/service/verifier.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"stochastic/pkg/apperror"
	"stochastic/pkg/cache"
	"stochastic/pkg/config"
	"stochastic/pkg/logger"
	"stochastic/pkg/metrics"
	"stochastic/pkg/telemetry"
	"stochastic/services/verifier-svc/internal/engine"
	"stochastic/services/verifier-svc/internal/experiment"
)

// poissonMaxCount сколько значений k выводится в таблице числа событий
const poissonMaxCount = 5

// runner запуск одного эксперимента с уже собранными опциями
type runner func(ctx context.Context, s *Service, opts engine.Options) (*Result, error)

type entry struct {
	name   string
	trials int
	run    runner
}

// Service каталог экспериментов и их проверка
type Service struct {
	engineCfg config.EngineConfig
	catalog   []entry

	exact   *cache.ExactCache
	metrics *metrics.Metrics
	log     *slog.Logger
}

// Option опция сервиса
type Option func(*Service)

// WithCache включает кэширование результатов точного перебора
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		if c != nil {
			s.exact = cache.NewExactCache(c, ttl)
		}
	}
}

// WithMetrics задаёт контейнер метрик вместо глобального
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New собирает каталог экспериментов из конфигурации.
// Ошибка конфигурации любого эксперимента возвращается сразу.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, apperror.New(apperror.CodeNilInput, "config is required")
	}

	s := &Service{
		engineCfg: cfg.Engine,
		log:       logger.WithService("verifier"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Get()
	}

	exps := cfg.Experiments

	pairing, err := experiment.NewPairing(experiment.PairingConfig{
		Population: exps.Pairing.Population,
		Stages:     exps.Pairing.Stages,
		Tolerance:  exps.Pairing.Tolerance,
	})
	if err != nil {
		return nil, fmt.Errorf("experiments.pairing: %w", err)
	}

	sampling, err := experiment.NewSampling(experiment.SamplingConfig{
		Categories: exps.Sampling.Categories,
		Draws:      exps.Sampling.Draws,
		Tolerance:  exps.Sampling.Tolerance,
	})
	if err != nil {
		return nil, fmt.Errorf("experiments.sampling: %w", err)
	}

	waiting, err := experiment.NewWaiting(experiment.WaitingConfig{
		Probability: exps.Waiting.Probability,
		Window:      exps.Waiting.Window,
		Queries:     exps.Waiting.Queries,
		BucketWidth: exps.Waiting.BucketWidth,
		Tolerance:   exps.Waiting.Tolerance,
	})
	if err != nil {
		return nil, fmt.Errorf("experiments.waiting: %w", err)
	}

	s.catalog = []entry{
		{
			name:   experiment.PairingName,
			trials: exps.Pairing.Trials,
			run: func(ctx context.Context, s *Service, opts engine.Options) (*Result, error) {
				return verify(ctx, s, pairing, pairing.Params(), opts)
			},
		},
		{
			name:   experiment.SamplingName,
			trials: exps.Sampling.Trials,
			run: func(ctx context.Context, s *Service, opts engine.Options) (*Result, error) {
				return verify(ctx, s, sampling, sampling.Params(), opts)
			},
		},
		{
			name:   experiment.WaitingName,
			trials: exps.Waiting.Trials,
			run: func(ctx context.Context, s *Service, opts engine.Options) (*Result, error) {
				res, err := verify(ctx, s, waiting, waiting.Params(), opts)
				if err != nil {
					return nil, err
				}
				res.Poisson = poissonTable(waiting, exps.Waiting.Window)
				return res, nil
			},
		},
	}

	return s, nil
}

// Names имена экспериментов в порядке каталога
func (s *Service) Names() []string {
	names := make([]string, len(s.catalog))
	for i, e := range s.catalog {
		names[i] = e.name
	}
	return names
}

// Run проверяет один эксперимент
func (s *Service) Run(ctx context.Context, name string) (*Result, error) {
	for _, e := range s.catalog {
		if e.name == name {
			return s.run(ctx, e)
		}
	}
	return nil, apperror.NewWithField(apperror.CodeNotFound,
		fmt.Sprintf("unknown experiment %q", name), "experiment")
}

// RunAll проверяет все эксперименты каталога; первая фатальная ошибка прерывает прогон
func (s *Service) RunAll(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, 0, len(s.catalog))
	for _, e := range s.catalog {
		res, err := s.run(ctx, e)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) run(ctx context.Context, e entry) (*Result, error) {
	opts := engine.Options{
		Trials:          s.engineCfg.Trials,
		Seed:            s.engineCfg.Seed,
		Workers:         s.engineCfg.Workers,
		ChunkSize:       s.engineCfg.ChunkSize,
		ConfidenceLevel: s.engineCfg.ConfidenceLevel,
	}
	if e.trials > 0 {
		opts.Trials = e.trials
	}

	ctx, span := telemetry.StartSpan(ctx, "verifier.Run",
		telemetry.WithAttributes(telemetry.ExperimentAttributes(e.name, opts.Seed, opts.Trials, opts.Workers)...))
	defer span.End()

	start := time.Now()
	res, err := e.run(ctx, s, opts)
	if err != nil {
		telemetry.SetError(ctx, err)
		s.metrics.RecordRun(e.name, false, time.Since(start), 0)
		s.log.Error("verification failed", "experiment", e.name, "error", err, "code", apperror.Code(err))
		return nil, err
	}

	s.metrics.RecordRun(e.name, true, time.Since(start), res.Trials)
	s.record(ctx, res)

	s.log.Info("verification completed",
		"experiment", res.Experiment,
		"seed", res.Seed,
		"trials", res.Trials,
		"agrees", res.Agrees,
		"self_consistent", res.Consistency.OK,
		"duration", time.Since(start),
	)
	return res, nil
}

// record выгружает итог прогона в метрики и в текущий span
func (s *Service) record(ctx context.Context, res *Result) {
	for stage, d := range res.Durations {
		s.metrics.RecordStage(res.Experiment, stage, d)
	}

	for _, c := range res.Claims {
		s.metrics.RecordClaim(res.Experiment, c.Claim.Name, c.Deviation, c.Agrees)
		telemetry.AddEvent(ctx, "claim", telemetry.ClaimAttributes(c.Claim.Name, c.Claim.Value, c.Deviation, c.Agrees)...)
		if !c.Agrees {
			level := slog.LevelWarn
			if c.Claim.Informational {
				level = slog.LevelInfo
			}
			s.log.Log(ctx, level, "claim does not agree",
				"experiment", res.Experiment,
				"claim", c.Claim.Name,
				"informational", c.Claim.Informational,
				"value", c.Claim.Value,
				"empirical", c.Empirical,
				"deviation", c.Deviation,
			)
		}
	}

	if res.Exact != nil {
		s.metrics.RecordEnumeration(res.Experiment, res.Exact.Space)
		telemetry.SetAttributes(ctx, telemetry.ExactAttributes(res.Exact.Space, res.Exact.Mean, res.Exact.Cached)...)
	} else {
		s.metrics.RecordSkip(res.Experiment)
		telemetry.SetAttributes(ctx, attribute.String(telemetry.AttrExactSkipped, res.ExactSkip))
	}

	if len(res.Measures) > 0 {
		telemetry.SetAttributes(ctx, telemetry.EstimateAttributes(res.Measures[0].Mean, res.Measures[0].StdError)...)
	}
	telemetry.SetAttributes(ctx, attribute.Bool(telemetry.AttrSelfConsistent, res.Consistency.OK))
}

// verify тройная проверка эксперимента с ключами-целыми
func verify[O any](ctx context.Context, s *Service, exp engine.Experiment[O, int], params map[string]float64, opts engine.Options) (*Result, error) {
	vopts := engine.VerifyOptions{
		Estimate:       opts,
		EnumerationCap: s.engineCfg.EnumerationCap,
	}
	if s.exact != nil {
		vopts.Store = &exactStore{cache: s.exact, params: params, metrics: s.metrics}
	}

	v, err := engine.Verify(ctx, exp, vopts)
	if err != nil {
		return nil, err
	}
	return newResult(v, exp, params), nil
}

// poissonTable вероятности ровно k событий за окно
func poissonTable(w *experiment.Waiting, window float64) []PoissonRow {
	rows := make([]PoissonRow, 0, poissonMaxCount+1)
	for k := 0; k <= poissonMaxCount; k++ {
		rows = append(rows, PoissonRow{K: k, Window: window, Probability: w.PoissonPMF(window, k)})
	}
	return rows
}
