package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Эксперимент
	AttrExperiment = "experiment.name"
	AttrSeed       = "experiment.seed"
	AttrTrials     = "experiment.trials"
	AttrWorkers    = "experiment.workers"

	// Результаты
	AttrMean           = "estimate.mean"
	AttrStdError       = "estimate.std_error"
	AttrClaim          = "claim.name"
	AttrClaimValue     = "claim.value"
	AttrDeviation      = "claim.deviation"
	AttrAgrees         = "claim.agrees"
	AttrExactSpace     = "exact.space"
	AttrExactMean      = "exact.mean"
	AttrExactSkipped   = "exact.skipped"
	AttrCacheHit       = "cache.hit"
	AttrSelfConsistent = "distribution.self_consistent"
)

// ExperimentAttributes возвращает атрибуты прогона
func ExperimentAttributes(name string, seed uint64, trials, workers int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrExperiment, name),
		attribute.Int64(AttrSeed, int64(seed)),
		attribute.Int(AttrTrials, trials),
		attribute.Int(AttrWorkers, workers),
	}
}

// EstimateAttributes возвращает атрибуты оценки Monte Carlo
func EstimateAttributes(mean, stdError float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Float64(AttrMean, mean),
		attribute.Float64(AttrStdError, stdError),
	}
}

// ClaimAttributes возвращает атрибуты проверки утверждения
func ClaimAttributes(name string, value, deviation float64, agrees bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrClaim, name),
		attribute.Float64(AttrClaimValue, value),
		attribute.Float64(AttrDeviation, deviation),
		attribute.Bool(AttrAgrees, agrees),
	}
}

// ExactAttributes возвращает атрибуты точного перебора
func ExactAttributes(space uint64, mean float64, cacheHit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrExactSpace, int64(space)),
		attribute.Float64(AttrExactMean, mean),
		attribute.Bool(AttrCacheHit, cacheHit),
	}
}
