package engine

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkMonteCarlo_Workers(b *testing.B) {
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers_%d", workers), func(b *testing.B) {
			mc := NewMonteCarlo[int, int](&dieExperiment{}, Options{Trials: 100000, Seed: 1, Workers: workers})
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := mc.Run(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEnumerateProduct(b *testing.B) {
	spaces := []struct{ m, k int }{{6, 6}, {4, 9}, {10, 5}}

	for _, s := range spaces {
		b.Run(fmt.Sprintf("%d^%d", s.m, s.k), func(b *testing.B) {
			ctx := context.Background()
			for i := 0; i < b.N; i++ {
				if err := EnumerateProduct(ctx, s.m, s.k, 0, func([]int) {}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDistribution_Merge(b *testing.B) {
	part := NewDistribution[int]()
	for k := range 100 {
		part.AddN(k, uint64(k+1))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		total := NewDistribution[int]()
		for range 64 {
			total.Merge(part)
		}
	}
}
