package engine

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"stochastic/pkg/apperror"
)

// NormalizationTolerance допуск для суммы вероятностей и проверки средних
const NormalizationTolerance = 1e-9

// Distribution частоты исходов. Ключи с нулевой частотой не хранятся.
type Distribution[K cmp.Ordered] struct {
	counts map[K]uint64
	total  uint64
}

// Point строка функции вероятности
type Point[K cmp.Ordered] struct {
	Value       K       `json:"value"`
	Count       uint64  `json:"count"`
	Probability float64 `json:"probability"`
}

// NewDistribution создаёт пустое распределение
func NewDistribution[K cmp.Ordered]() *Distribution[K] {
	return &Distribution[K]{counts: make(map[K]uint64)}
}

// Tabulate строит распределение по набору исходов
func Tabulate[O any, K cmp.Ordered](outcomes []O, key func(O) K) *Distribution[K] {
	d := NewDistribution[K]()
	for _, o := range outcomes {
		d.Add(key(o))
	}
	return d
}

// Add учитывает один исход
func (d *Distribution[K]) Add(k K) {
	d.AddN(k, 1)
}

// AddN учитывает n одинаковых исходов; n == 0 ничего не меняет
func (d *Distribution[K]) AddN(k K, n uint64) {
	if n == 0 {
		return
	}
	d.counts[k] += n
	d.total += n
}

// Merge добавляет частоты другого распределения
func (d *Distribution[K]) Merge(other *Distribution[K]) {
	if other == nil {
		return
	}
	for k, n := range other.counts {
		d.AddN(k, n)
	}
}

// Count частота ключа
func (d *Distribution[K]) Count(k K) uint64 {
	return d.counts[k]
}

// Total число учтённых исходов
func (d *Distribution[K]) Total() uint64 {
	return d.total
}

// Len число различных ключей
func (d *Distribution[K]) Len() int {
	return len(d.counts)
}

// Keys ключи по возрастанию
func (d *Distribution[K]) Keys() []K {
	keys := make([]K, 0, len(d.counts))
	for k := range d.counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Probability эмпирическая вероятность ключа
func (d *Distribution[K]) Probability(k K) float64 {
	if d.total == 0 {
		return 0
	}
	return float64(d.counts[k]) / float64(d.total)
}

// PMF функция вероятности, упорядоченная по ключу
func (d *Distribution[K]) PMF() []Point[K] {
	keys := d.Keys()
	points := make([]Point[K], len(keys))
	for i, k := range keys {
		points[i] = Point[K]{Value: k, Count: d.counts[k], Probability: d.Probability(k)}
	}
	return points
}

// Expectation взвешенная по вероятностям сумма value(k)
func (d *Distribution[K]) Expectation(value func(K) float64) float64 {
	if d.total == 0 {
		return 0
	}
	var sum float64
	for _, k := range d.Keys() {
		sum += float64(d.counts[k]) * value(k)
	}
	return sum / float64(d.total)
}

// Mode самый частый ключ; при равенстве берётся меньший
func (d *Distribution[K]) Mode() (K, bool) {
	var (
		mode K
		best uint64
	)
	for _, k := range d.Keys() {
		if d.counts[k] > best {
			mode, best = k, d.counts[k]
		}
	}
	return mode, best > 0
}

// Check проверяет, что частоты дают total, а вероятности в сумме 1
func (d *Distribution[K]) Check() error {
	var sum uint64
	var prob float64
	for k, n := range d.counts {
		if n == 0 {
			return apperror.Newf(apperror.CodeInternal, "key %v has zero frequency", k)
		}
		sum += n
	}
	if sum != d.total {
		return apperror.Newf(apperror.CodeInternal, "frequencies sum to %d, total is %d", sum, d.total)
	}
	if d.total == 0 {
		return nil
	}
	for _, p := range d.PMF() {
		prob += p.Probability
	}
	if math.Abs(prob-1) > NormalizationTolerance {
		return apperror.Newf(apperror.CodeInternal, "probabilities sum to %.12f", prob)
	}
	return nil
}

type countEntry[K cmp.Ordered] struct {
	Key   K      `json:"key"`
	Count uint64 `json:"count"`
}

// MarshalJSON сериализует распределение списком пар ключ-частота
func (d *Distribution[K]) MarshalJSON() ([]byte, error) {
	entries := make([]countEntry[K], 0, len(d.counts))
	for _, k := range d.Keys() {
		entries = append(entries, countEntry[K]{Key: k, Count: d.counts[k]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON восстанавливает распределение из MarshalJSON
func (d *Distribution[K]) UnmarshalJSON(data []byte) error {
	var entries []countEntry[K]
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode distribution: %w", err)
	}
	d.counts = make(map[K]uint64, len(entries))
	d.total = 0
	for _, e := range entries {
		d.AddN(e.Key, e.Count)
	}
	return nil
}
