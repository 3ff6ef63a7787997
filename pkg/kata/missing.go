package kata

// MissingNumber находит единственное пропущенное число последовательности 1..n,
// где n = len(nums)+1. Использует сумму арифметической прогрессии.
func MissingNumber(nums []int) int {
	n := len(nums) + 1
	expected := n * (n + 1) / 2
	for _, v := range nums {
		expected -= v
	}
	return expected
}

// MissingNumberXOR то же самое через XOR, без риска переполнения суммы
func MissingNumberXOR(nums []int) int {
	acc := 0
	for i := 1; i <= len(nums)+1; i++ {
		acc ^= i
	}
	for _, v := range nums {
		acc ^= v
	}
	return acc
}
