package engine

import (
	"math/rand/v2"
	"time"
)

// NewStream создаёт независимый поток PCG для пары (seed, stream).
// Разные stream при одном seed дают несвязанные последовательности.
func NewStream(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// ResolveSeed возвращает seed как есть или выводит его из часов, если он 0
func ResolveSeed(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	s := uint64(time.Now().UnixNano())
	if s == 0 {
		s = 1
	}
	return s
}
