// services/verifier-svc/internal/service/result.go
package service

import (
	"fmt"
	"time"

	"stochastic/services/verifier-svc/internal/engine"
)

// Result итог проверки одного эксперимента для отчёта
type Result struct {
	Experiment  string                   `json:"experiment"`
	Seed        uint64                   `json:"seed"`
	Trials      int                      `json:"trials"`
	Params      map[string]float64       `json:"params"`
	Agrees      bool                     `json:"agrees"`
	Claims      []engine.ClaimCheck      `json:"claims"`
	Exact       *ExactSummary            `json:"exact,omitempty"`
	ExactSkip   string                   `json:"exact_skip,omitempty"`
	Measures    []engine.Summary         `json:"measures"`
	Rows        []Row                    `json:"rows"`
	Consistency engine.Consistency       `json:"consistency"`
	Poisson     []PoissonRow             `json:"poisson,omitempty"`
	Durations   map[string]time.Duration `json:"durations"`
}

// ExactSummary сводка точного перебора
type ExactSummary struct {
	Measure string  `json:"measure"`
	Space   uint64  `json:"space"`
	Mean    float64 `json:"mean"`
	Cached  bool    `json:"cached"`
}

// Row строка распределения: эмпирическая и, если есть, точная вероятность
type Row struct {
	Label       string  `json:"label"`
	Count       uint64  `json:"count"`
	Probability float64 `json:"probability"`
	HasExact    bool    `json:"has_exact"`
	Exact       float64 `json:"exact,omitempty"`
}

// PoissonRow вероятность ровно K событий за окно
type PoissonRow struct {
	K           int     `json:"k"`
	Window      float64 `json:"window"`
	Probability float64 `json:"probability"`
}

// Duration суммарное время всех этапов
func (r *Result) Duration() time.Duration {
	var total time.Duration
	for _, d := range r.Durations {
		total += d
	}
	return total
}

// Primary сводка основной величины
func (r *Result) Primary() engine.Summary {
	if len(r.Measures) == 0 {
		return engine.Summary{}
	}
	return r.Measures[0]
}

func newResult(v *engine.Verification[int], exp any, params map[string]float64) *Result {
	res := &Result{
		Experiment:  v.Experiment,
		Seed:        v.Seed,
		Trials:      v.Estimate.Trials,
		Params:      params,
		Agrees:      v.Agrees(),
		Claims:      v.Checks,
		ExactSkip:   v.ExactSkip,
		Measures:    v.Estimate.Measures,
		Consistency: v.Consistency,
		Durations:   v.Durations,
	}
	if v.Exact != nil {
		res.Exact = &ExactSummary{
			Measure: v.Exact.Measure,
			Space:   v.Exact.Space,
			Mean:    v.Exact.Mean,
			Cached:  v.ExactCached,
		}
	}
	res.Rows = rows(v, exp)
	return res
}

// rows объединяет ключи эмпирического и точного распределений
func rows(v *engine.Verification[int], exp any) []Row {
	label := func(k int) string { return fmt.Sprint(k) }
	if l, ok := exp.(engine.KeyLabeler[int]); ok {
		label = l.KeyLabel
	}

	keys := v.Estimate.Distribution.Keys()
	if v.Exact != nil {
		keys = mergeKeys(keys, v.Exact.Distribution.Keys())
	}

	out := make([]Row, 0, len(keys))
	for _, k := range keys {
		row := Row{
			Label:       label(k),
			Count:       v.Estimate.Distribution.Count(k),
			Probability: v.Estimate.Distribution.Probability(k),
		}
		if v.Exact != nil {
			row.HasExact = true
			row.Exact = v.Exact.Distribution.Probability(k)
		}
		out = append(out, row)
	}
	return out
}

// mergeKeys объединение двух отсортированных наборов ключей
func mergeKeys(a, b []int) []int {
	out := make([]int, 0, max(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i] < b[j]):
			out = append(out, a[i])
			i++
		case i == len(a) || b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
