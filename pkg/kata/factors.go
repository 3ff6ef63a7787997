package kata

import "math"

// sieveThreshold до этого значения PrimeFactorsSieve раскладывает через решето
const sieveThreshold = 1000

// PrimeFactors раскладывает n на простые множители пробным делением.
// Множители идут по возрастанию с повторениями; для n <= 1 результат пустой.
func PrimeFactors(n int64) []int64 {
	if n <= 1 {
		return nil
	}

	var factors []int64
	for n%2 == 0 {
		factors = append(factors, 2)
		n /= 2
	}
	// граница пересчитывается после каждого деления; d*d для больших n переполняет int64
	limit := isqrt(n)
	for d := int64(3); d <= limit; d += 2 {
		if n%d != 0 {
			continue
		}
		for n%d == 0 {
			factors = append(factors, d)
			n /= d
		}
		limit = isqrt(n)
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors
}

// PrimeFactorsSieve для малых n делит только на простые из решета Эратосфена
// до √n, для остальных использует PrimeFactors. Результат совпадает с PrimeFactors.
func PrimeFactorsSieve(n int64) []int64 {
	if n <= 1 {
		return nil
	}
	if n >= sieveThreshold {
		return PrimeFactors(n)
	}

	var factors []int64
	remaining := n
	for _, p := range primesUpTo(isqrt(n) + 1) {
		if p*p > remaining {
			break
		}
		for remaining%p == 0 {
			factors = append(factors, p)
			remaining /= p
		}
	}
	if remaining > 1 {
		factors = append(factors, remaining)
	}
	return factors
}

// primesUpTo возвращает простые числа <= limit
func primesUpTo(limit int64) []int64 {
	if limit < 2 {
		return nil
	}
	composite := make([]bool, limit+1)
	var primes []int64
	for i := int64(2); i <= limit; i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, i)
		for j := i * i; j <= limit; j += i {
			composite[j] = true
		}
	}
	return primes
}

// isqrt целая часть √n для n >= 0; сравнения через деление, без переполнения
func isqrt(n int64) int64 {
	if n < 2 {
		return max(n, 0)
	}
	r := int64(math.Sqrt(float64(n)))
	for r > n/r {
		r--
	}
	for r+1 <= n/(r+1) {
		r++
	}
	return r
}
