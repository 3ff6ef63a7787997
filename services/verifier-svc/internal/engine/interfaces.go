// services/verifier-svc/internal/engine/interfaces.go
package engine

import (
	"cmp"
	"context"
	"math/rand/v2"
)

// Measure статистика, извлекаемая из исхода одного испытания
type Measure[O any] struct {
	Name    string
	Extract func(O) float64
}

// Claim аналитическое значение для одной статистики.
// Tolerance - допустимое абсолютное отклонение эмпирической оценки.
type Claim struct {
	Name      string  `json:"name"`
	Measure   string  `json:"measure"`
	Value     float64 `json:"value"`
	Tolerance float64 `json:"tolerance"`
	Formula   string  `json:"formula,omitempty"`
	// Informational утверждение сверяется и попадает в отчёт,
	// но не влияет на общий итог проверки
	Informational bool `json:"informational,omitempty"`
}

// Experiment описание случайного эксперимента.
// Measures()[0] считается основной статистикой: по ней считается
// точное среднее и проверка согласованности распределения.
type Experiment[O any, K cmp.Ordered] interface {
	Name() string
	// Trial один независимый прогон; rng принадлежит вызывающему
	Trial(rng *rand.Rand) (O, error)
	Measures() []Measure[O]
	// Classify ключ исхода для распределения
	Classify(O) K
	Analytical() ([]Claim, error)
}

// Enumerator эксперимент с конечным пространством исходов
type Enumerator[K cmp.Ordered] interface {
	// Enumerate возвращает apperror.CodeIntractable, если пространство больше ceiling
	Enumerate(ctx context.Context, ceiling uint64) (*Exact[K], error)
}

// KeyValuer числовое значение ключа распределения
type KeyValuer[K cmp.Ordered] interface {
	KeyValue(K) float64
}

// KeyLabeler подпись ключа распределения для отчёта
type KeyLabeler[K cmp.Ordered] interface {
	KeyLabel(K) string
}

// ExactStore внешнее хранилище результатов перебора.
// Ошибки хранилища не прерывают проверку.
type ExactStore interface {
	Load(ctx context.Context, experiment string, dst any) (bool, error)
	Store(ctx context.Context, experiment string, value any) error
}
