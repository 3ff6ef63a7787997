// services/verifier-svc/internal/experiment/pairing.go
package experiment

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"math/rand/v2"
	"slices"
	"strconv"

	"stochastic/pkg/apperror"
	"stochastic/services/verifier-svc/internal/engine"
)

// PairingName имя эксперимента в каталоге
const PairingName = "pairing"

// MaxEnumerablePopulation предел размера популяции для перебора паросочетаний
const MaxEnumerablePopulation = 64

// PairingConfig параметры турнира со случайными парами
type PairingConfig struct {
	Population int
	Stages     int
	Tolerance  float64
}

// PairingOutcome победители каждого этапа и победители всех этапов.
// Участники обозначены рангом 1..N, больший ранг сильнее.
type PairingOutcome struct {
	Stages    [][]int
	Champions []int
}

// Pairing N участников с различной силой разбиваются на пары случайно
// и независимо на каждом этапе; в паре побеждает сильнейший.
type Pairing struct {
	n         int
	stages    int
	tolerance float64
}

// NewPairing проверяет параметры и создаёт эксперимент
func NewPairing(cfg PairingConfig) (*Pairing, error) {
	switch {
	case cfg.Population <= 0:
		return nil, apperror.InvalidConfiguration("population",
			fmt.Sprintf("population must be positive, got %d", cfg.Population))
	case cfg.Population%2 != 0:
		return nil, apperror.InvalidConfiguration("population",
			fmt.Sprintf("pairing requires an even population, got %d", cfg.Population))
	case cfg.Stages <= 0:
		return nil, apperror.InvalidConfiguration("stages",
			fmt.Sprintf("stages must be positive, got %d", cfg.Stages))
	case cfg.Tolerance < 0:
		return nil, apperror.InvalidConfiguration("tolerance", "tolerance must be non-negative")
	}
	return &Pairing{n: cfg.Population, stages: cfg.Stages, tolerance: cfg.Tolerance}, nil
}

func (p *Pairing) Name() string { return PairingName }

// Params параметры, определяющие результат перебора
func (p *Pairing) Params() map[string]float64 {
	return map[string]float64{"population": float64(p.n), "stages": float64(p.stages)}
}

// Stage один этап: случайная перестановка разбирается по два,
// возвращаются ранги победителей по возрастанию
func (p *Pairing) Stage(rng *rand.Rand) []int {
	perm := rng.Perm(p.n)
	winners := make([]int, 0, p.n/2)
	for i := 0; i < p.n; i += 2 {
		winners = append(winners, max(perm[i], perm[i+1])+1)
	}
	slices.Sort(winners)
	return winners
}

// Trial проводит все этапы и находит победителей каждого из них
func (p *Pairing) Trial(rng *rand.Rand) (PairingOutcome, error) {
	wins := make([]int, p.n+1)
	out := PairingOutcome{Stages: make([][]int, p.stages)}

	for s := range p.stages {
		winners := p.Stage(rng)
		for _, w := range winners {
			wins[w]++
		}
		out.Stages[s] = winners
	}

	for rank := 1; rank <= p.n; rank++ {
		if wins[rank] == p.stages {
			out.Champions = append(out.Champions, rank)
		}
	}
	return out, nil
}

func (p *Pairing) Measures() []engine.Measure[PairingOutcome] {
	return []engine.Measure[PairingOutcome]{
		{Name: "champions", Extract: func(o PairingOutcome) float64 { return float64(len(o.Champions)) }},
	}
}

func (p *Pairing) Classify(o PairingOutcome) int { return len(o.Champions) }

func (p *Pairing) KeyValue(k int) float64 { return float64(k) }

func (p *Pairing) KeyLabel(k int) string { return strconv.Itoa(k) }

// SymmetricWinProbability вероятность победы в паре, усреднённая по симметрии
func (p *Pairing) SymmetricWinProbability() float64 { return 0.5 }

// SymmetricExpectation N·(1/2)^stages: ожидаемое число победителей всех этапов
// в предположении, что каждый выигрывает этап с вероятностью 1/2
func (p *Pairing) SymmetricExpectation() float64 {
	return float64(p.n) * math.Pow(p.SymmetricWinProbability(), float64(p.stages))
}

// AverageWinProbability средняя по рангам вероятность победы на одном этапе
func (p *Pairing) AverageWinProbability() float64 {
	var sum float64
	for k := 1; k <= p.n; k++ {
		sum += p.winProbability(k)
	}
	return sum / float64(p.n)
}

// WinProbability вероятность, что участник ранга k выиграет этап: (k−1)/(N−1)
func (p *Pairing) WinProbability(k int) (float64, error) {
	if k < 1 || k > p.n {
		return 0, apperror.NewWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("rank must be in [1, %d], got %d", p.n, k), "rank")
	}
	return p.winProbability(k), nil
}

func (p *Pairing) winProbability(k int) float64 {
	return float64(k-1) / float64(p.n-1)
}

// ChampionProbability вероятность, что ранг k выиграет все этапы
func (p *Pairing) ChampionProbability(k int) (float64, error) {
	w, err := p.WinProbability(k)
	if err != nil {
		return 0, err
	}
	return math.Pow(w, float64(p.stages)), nil
}

// ExpectedChampions точное ожидание числа победителей всех этапов: Σ_k ((k−1)/(N−1))^stages
func (p *Pairing) ExpectedChampions() float64 {
	var sum float64
	for k := 1; k <= p.n; k++ {
		sum += math.Pow(p.winProbability(k), float64(p.stages))
	}
	return sum
}

// Analytical два утверждения: точное по рангам и симметричное
func (p *Pairing) Analytical() ([]engine.Claim, error) {
	return []engine.Claim{
		{
			Name:      "per-rank",
			Measure:   "champions",
			Value:     p.ExpectedChampions(),
			Tolerance: p.tolerance,
			Formula:   fmt.Sprintf("Σ((k−1)/%d)^%d, k=1..%d", p.n-1, p.stages, p.n),
		},
		{
			Name:      "symmetry",
			Measure:   "champions",
			Value:     p.SymmetricExpectation(),
			Tolerance: p.tolerance,
			Formula:   fmt.Sprintf("%d·(1/2)^%d", p.n, p.stages),
			// рассуждение о симметрии, а не модель процесса: расхождение ожидаемо
			Informational: true,
		},
	}, nil
}

// MatchingCount число совершенных паросочетаний (N−1)!! с насыщением
func (p *Pairing) MatchingCount() uint64 {
	count := uint64(1)
	for k := p.n - 1; k > 1; k -= 2 {
		count = engine.MulSaturating(count, uint64(k))
	}
	return count
}

// Enumerate перебирает все наборы паросочетаний по этапам
func (p *Pairing) Enumerate(ctx context.Context, ceiling uint64) (*engine.Exact[int], error) {
	if ceiling == 0 {
		ceiling = engine.DefaultEnumerationCap
	}
	matchings := p.MatchingCount()
	space := uint64(1)
	for range p.stages {
		space = engine.MulSaturating(space, matchings)
	}
	if space > ceiling || p.n > MaxEnumerablePopulation {
		return nil, apperror.Intractable(space, ceiling)
	}

	masks := winnerMasks(p.n)
	dist := engine.NewDistribution[int]()
	full := uint64(math.MaxUint64)

	err := engine.EnumerateProduct(ctx, len(masks), p.stages, ceiling, func(seq []int) {
		champions := full
		for _, m := range seq {
			champions &= masks[m]
		}
		dist.Add(bits.OnesCount64(champions))
	})
	if err != nil {
		return nil, err
	}

	return engine.NewExact("champions", dist, p.KeyValue), nil
}

// winnerMasks для каждого совершенного паросочетания на n участниках
// возвращает битовую маску победителей (бит i - ранг i+1)
func winnerMasks(n int) []uint64 {
	var masks []uint64
	var walk func(free, winners uint64)
	walk = func(free, winners uint64) {
		if free == 0 {
			masks = append(masks, winners)
			return
		}
		i := bits.TrailingZeros64(free)
		rest := free &^ (1 << i)
		for others := rest; others != 0; others &= others - 1 {
			j := bits.TrailingZeros64(others)
			walk(rest&^(1<<j), winners|1<<j)
		}
	}

	var all uint64
	if n == 64 {
		all = math.MaxUint64
	} else {
		all = 1<<n - 1
	}
	walk(all, 0)
	return masks
}
