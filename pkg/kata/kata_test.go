package kata

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsIsomorphic(t *testing.T) {
	tests := []struct {
		s, t string
		want bool
	}{
		{"paper", "title", true},
		{"egg", "add", true},
		{"foo", "bar", false},
		{"ab", "aa", false},
		{"aa", "ab", false},
		{"aab", "xxy", true},
		{"aab", "xyz", false},
		{"", "", true},
		{"abc", "ab", false},
		{"дом", "кот", true},
		{"мама", "папа", true},
	}

	for _, tt := range tests {
		t.Run(tt.s+"_"+tt.t, func(t *testing.T) {
			assert.Equal(t, tt.want, IsIsomorphic(tt.s, tt.t))
		})
	}
}

func TestMissingNumber(t *testing.T) {
	tests := []struct {
		name string
		nums []int
		want int
	}{
		{"middle", []int{1, 2, 3, 4, 5, 6, 8, 9, 10, 11}, 7},
		{"unordered", []int{2, 3, 1, 5}, 4},
		{"last", []int{1}, 2},
		{"empty", nil, 1},
		{"first", []int{2, 3}, 1},
		{"gap", []int{1, 2, 4, 5}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MissingNumber(tt.nums))
			assert.Equal(t, tt.want, MissingNumberXOR(tt.nums))
		})
	}
}

func TestPrimeFactors(t *testing.T) {
	tests := []struct {
		n    int64
		want []int64
	}{
		{-5, nil},
		{0, nil},
		{1, nil},
		{2, []int64{2}},
		{13, []int64{13}},
		{56, []int64{2, 2, 2, 7}},
		{84, []int64{2, 2, 3, 7}},
		{100, []int64{2, 2, 5, 5}},
		{999, []int64{3, 3, 3, 37}},
		{9973, []int64{9973}},
		{123456, []int64{2, 2, 2, 2, 2, 2, 3, 643}},
		{math.MaxInt64, []int64{7, 7, 73, 127, 337, 92737, 649657}},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.want, PrimeFactors(tt.n))
			assert.Equal(t, tt.want, PrimeFactorsSieve(tt.n))
		})
	}
}

func TestPrimeFactorsSieve_AgreesWithTrialDivision(t *testing.T) {
	for n := int64(2); n < 2*sieveThreshold; n++ {
		got := PrimeFactorsSieve(n)
		if !assert.Equal(t, PrimeFactors(n), got, "n=%d", n) {
			return
		}
		product := int64(1)
		for _, f := range got {
			product *= f
		}
		assert.Equal(t, n, product)
	}
}

// Наибольшее простое меньше 2^63: пробное деление доходит до √n ≈ 3.04e9,
// где d*d уже не помещается в int64.
func TestPrimeFactors_LargestInt64Prime(t *testing.T) {
	if testing.Short() {
		t.Skip("около 1.5e9 делений")
	}
	const n = int64(9223372036854775783)

	done := make(chan []int64, 1)
	go func() { done <- PrimeFactors(n) }()

	select {
	case got := <-done:
		assert.Equal(t, []int64{n}, got)
	case <-time.After(2 * time.Minute):
		t.Fatalf("PrimeFactors(%d) did not finish", n)
	}
}

func TestIsqrt(t *testing.T) {
	tests := []struct {
		n, want int64
	}{
		{0, 0},
		{1, 1},
		{3, 1},
		{4, 2},
		{99, 9},
		{100, 10},
		{1<<62 - 1, 1<<31 - 1},
		{1 << 62, 1 << 31},
		{math.MaxInt64, 3037000499},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isqrt(tt.n), "isqrt(%d)", tt.n)
	}
}

func TestPrimesUpTo(t *testing.T) {
	assert.Nil(t, primesUpTo(1))
	assert.Equal(t, []int64{2, 3, 5, 7, 11, 13, 17, 19}, primesUpTo(20))
}
