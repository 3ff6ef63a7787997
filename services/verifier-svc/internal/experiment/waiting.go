// services/verifier-svc/internal/experiment/waiting.go
package experiment

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"stochastic/pkg/apperror"
	"stochastic/services/verifier-svc/internal/engine"
)

// WaitingName имя эксперимента в каталоге
const WaitingName = "waiting"

// Значения по умолчанию для эксперимента ожидания
const (
	DefaultBucketWidth = 5.0
	// meanWaitTolerance допуск среднего ожидания относительно 1/λ
	meanWaitTolerance = 0.05
)

// WaitingConfig калибровка пуассоновского потока по вероятности p
// хотя бы одного события за окно T
type WaitingConfig struct {
	Probability float64
	Window      float64
	Queries     []float64
	BucketWidth float64
	Tolerance   float64
}

// Waiting время до первого события экспоненциального потока
type Waiting struct {
	p, window   float64
	rate        float64
	queries     []float64
	bucketWidth float64
	buckets     int
	tolerance   float64
}

// Rate λ = −ln(1 − p)/T
func Rate(p, window float64) (float64, error) {
	if !(p > 0 && p < 1) {
		return 0, apperror.DomainError("probability", fmt.Sprintf("probability must be in (0, 1), got %v", p))
	}
	if !(window > 0) || math.IsInf(window, 1) {
		return 0, apperror.DomainError("window", fmt.Sprintf("window must be a finite positive number, got %v", window))
	}
	return -math.Log1p(-p) / window, nil
}

// NewWaiting проверяет параметры и создаёт эксперимент
func NewWaiting(cfg WaitingConfig) (*Waiting, error) {
	rate, err := Rate(cfg.Probability, cfg.Window)
	if err != nil {
		return nil, err
	}
	ve := apperror.NewValidationErrors()
	for _, t := range cfg.Queries {
		if !(t >= 0) || math.IsInf(t, 1) {
			ve.Add(apperror.InvalidConfiguration("queries",
				fmt.Sprintf("query window must be a finite non-negative number, got %v", t)))
		}
	}
	if cfg.Tolerance < 0 {
		ve.Add(apperror.InvalidConfiguration("tolerance", "tolerance must be non-negative"))
	}
	width := cfg.BucketWidth
	if width < 0 {
		ve.Add(apperror.InvalidConfiguration("bucket_width", "bucket width must be non-negative"))
	}
	if err := ve.First(); err != nil {
		return nil, err
	}

	if width == 0 {
		width = DefaultBucketWidth
	}

	return &Waiting{
		p:           cfg.Probability,
		window:      cfg.Window,
		rate:        rate,
		queries:     append([]float64(nil), cfg.Queries...),
		bucketWidth: width,
		buckets:     int(math.Ceil(cfg.Window / width)),
		tolerance:   cfg.Tolerance,
	}, nil
}

func (w *Waiting) Name() string { return WaitingName }

// Params параметры эксперимента
func (w *Waiting) Params() map[string]float64 {
	return map[string]float64{"probability": w.p, "window": w.window, "bucket_width": w.bucketWidth}
}

// Rate интенсивность потока λ
func (w *Waiting) Rate() float64 { return w.rate }

// Queries окна, для которых считаются вероятности
func (w *Waiting) Queries() []float64 { return append([]float64(nil), w.queries...) }

// ProbabilityWithin 1 − e^(−λt)
func (w *Waiting) ProbabilityWithin(t float64) float64 {
	return -math.Expm1(-w.rate * t)
}

// ScaledProbabilityWithin 1 − (1 − p)^(t/T), без явного λ
func (w *Waiting) ScaledProbabilityWithin(t float64) float64 {
	return 1 - math.Pow(1-w.p, t/w.window)
}

// MeanWait ожидаемое время до первого события 1/λ
func (w *Waiting) MeanWait() float64 { return 1 / w.rate }

// PoissonPMF вероятность ровно k событий за время t
func (w *Waiting) PoissonPMF(t float64, k int) float64 {
	if k < 0 {
		return 0
	}
	mu := w.rate * t
	if mu == 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	lg, _ := math.Lgamma(float64(k + 1))
	return math.Exp(float64(k)*math.Log(mu) - mu - lg)
}

// Trial одно экспоненциальное время ожидания
func (w *Waiting) Trial(rng *rand.Rand) (float64, error) {
	return rng.ExpFloat64() / w.rate, nil
}

func (w *Waiting) Measures() []engine.Measure[float64] {
	measures := []engine.Measure[float64]{
		{Name: "wait", Extract: func(o float64) float64 { return o }},
	}
	for _, t := range w.queries {
		measures = append(measures, engine.Measure[float64]{
			Name: withinName(t),
			Extract: func(o float64) float64 {
				if o <= t {
					return 1
				}
				return 0
			},
		})
	}
	return measures
}

// Classify номер корзины ширины bucketWidth; всё, что дольше окна, попадает в последнюю
func (w *Waiting) Classify(o float64) int {
	if o >= w.window {
		return w.buckets
	}
	return min(int(o/w.bucketWidth), w.buckets-1)
}

// KeyLabel подпись корзины: "0-5", ..., "25-30", ">30"
func (w *Waiting) KeyLabel(k int) string {
	if k >= w.buckets {
		return ">" + formatNumber(w.window)
	}
	lo := float64(k) * w.bucketWidth
	hi := math.Min(lo+w.bucketWidth, w.window)
	return formatNumber(lo) + "-" + formatNumber(hi)
}

// Analytical среднее ожидание и обе формы вероятности для каждого окна
func (w *Waiting) Analytical() ([]engine.Claim, error) {
	if _, err := Rate(w.p, w.window); err != nil {
		return nil, err
	}

	claims := []engine.Claim{{
		Name:      "mean-wait",
		Measure:   "wait",
		Value:     w.MeanWait(),
		Tolerance: meanWaitTolerance * w.MeanWait(),
		Formula:   fmt.Sprintf("T/−ln(1−p) = %s/−ln(%s)", formatNumber(w.window), formatNumber(1-w.p)),
	}}
	for _, t := range w.queries {
		ts := formatNumber(t)
		claims = append(claims,
			engine.Claim{
				Name:      "rate-form:" + ts,
				Measure:   withinName(t),
				Value:     w.ProbabilityWithin(t),
				Tolerance: w.tolerance,
				Formula:   "1 − e^(−λ·" + ts + ")",
			},
			engine.Claim{
				Name:      "scale-form:" + ts,
				Measure:   withinName(t),
				Value:     w.ScaledProbabilityWithin(t),
				Tolerance: w.tolerance,
				Formula:   fmt.Sprintf("1 − %s^(%s/%s)", formatNumber(1-w.p), ts, formatNumber(w.window)),
			},
		)
	}
	return claims, nil
}

func withinName(t float64) string {
	return "within:" + formatNumber(t)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}
