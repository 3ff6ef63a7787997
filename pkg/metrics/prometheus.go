package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics контейнер метрик верификатора
type Metrics struct {
	registry *prometheus.Registry

	// Прогоны экспериментов
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	TrialsTotal *prometheus.CounterVec

	// Этапы проверки
	StageDuration   *prometheus.HistogramVec
	ClaimDeviation  *prometheus.GaugeVec
	ClaimsAgreement *prometheus.CounterVec
	EnumerationSize *prometheus.GaugeVec
	IntractableSkip *prometheus.CounterVec

	// Кэш точного перебора
	CacheLookups *prometheus.CounterVec

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var (
	defaultMetrics *Metrics
	defaultMu      sync.Mutex
)

// InitMetrics создаёт метрики в собственном реестре и делает их глобальными
func InitMetrics(namespace, subsystem string) *Metrics {
	m := New(namespace, subsystem)

	defaultMu.Lock()
	defaultMetrics = m
	defaultMu.Unlock()

	return m
}

// New создаёт метрики в новом реестре, не трогая глобальные
func New(namespace, subsystem string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total number of experiment verification runs",
			},
			[]string{"experiment", "status"},
		),

		RunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of experiment verification runs",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"experiment"},
		),

		TrialsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "trials_total",
				Help:      "Total number of simulated trials",
			},
			[]string{"experiment"},
		),

		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_duration_seconds",
				Help:      "Duration of analytical, exact and monte carlo stages",
				Buckets:   []float64{.0001, .001, .01, .1, .5, 1, 5, 10, 30},
			},
			[]string{"experiment", "stage"},
		),

		ClaimDeviation: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "claim_deviation",
				Help:      "Absolute deviation of the empirical estimate from an analytical claim",
			},
			[]string{"experiment", "claim"},
		),

		ClaimsAgreement: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "claims_checked_total",
				Help:      "Analytical claims checked, by agreement outcome",
			},
			[]string{"experiment", "agrees"},
		),

		EnumerationSize: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "enumeration_space_size",
				Help:      "Size of the exhaustively enumerated outcome space",
			},
			[]string{"experiment"},
		),

		IntractableSkip: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "enumeration_skipped_total",
				Help:      "Exact enumerations skipped because the outcome space was too large or continuous",
			},
			[]string{"experiment"},
		),

		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_lookups_total",
				Help:      "Exact enumeration cache lookups",
			},
			[]string{"result"},
		),

		ServiceInfo: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	defaultMu.Lock()
	m := defaultMetrics
	defaultMu.Unlock()

	if m == nil {
		return InitMetrics("stochastic", "")
	}
	return m
}

// RecordRun записывает итог прогона эксперимента
func (m *Metrics) RecordRun(experiment string, success bool, duration time.Duration, trials int) {
	status := "success"
	if !success {
		status = "error"
	}

	m.RunsTotal.WithLabelValues(experiment, status).Inc()
	m.RunDuration.WithLabelValues(experiment).Observe(duration.Seconds())
	if trials > 0 {
		m.TrialsTotal.WithLabelValues(experiment).Add(float64(trials))
	}
}

// RecordStage записывает длительность этапа проверки
func (m *Metrics) RecordStage(experiment, stage string, duration time.Duration) {
	m.StageDuration.WithLabelValues(experiment, stage).Observe(duration.Seconds())
}

// RecordClaim записывает отклонение оценки от аналитического утверждения
func (m *Metrics) RecordClaim(experiment, claim string, deviation float64, agrees bool) {
	m.ClaimDeviation.WithLabelValues(experiment, claim).Set(deviation)
	label := "false"
	if agrees {
		label = "true"
	}
	m.ClaimsAgreement.WithLabelValues(experiment, label).Inc()
}

// RecordEnumeration записывает размер перебранного пространства
func (m *Metrics) RecordEnumeration(experiment string, space uint64) {
	m.EnumerationSize.WithLabelValues(experiment).Set(float64(space))
}

// RecordSkip фиксирует пропуск точного перебора
func (m *Metrics) RecordSkip(experiment string) {
	m.IntractableSkip.WithLabelValues(experiment).Inc()
}

// RecordCacheLookup фиксирует попадание или промах кэша
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// WriteTextfile выгружает метрики в формате textfile collector.
// Верификатор запускается как батч-процесс, метрики сохраняются файлом.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
