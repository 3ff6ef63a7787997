package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func BenchmarkMemoryCache_Set(b *testing.B) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()
	value := make([]byte, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, fmt.Sprintf("key-%d", i%10000), value, time.Minute)
	}
}

func BenchmarkMemoryCache_Concurrent(b *testing.B) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()
	value := []byte("test-value")

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("key-%d", i%1000)
			_ = c.Set(ctx, key, value, time.Minute)
			_, _ = c.Get(ctx, key)
			i++
		}
	})
}

func BenchmarkParamsHash(b *testing.B) {
	for _, size := range []int{2, 8, 32} {
		params := make(Params, size)
		for i := range size {
			params[fmt.Sprintf("param_%d", i)] = float64(i) * 1.5
		}
		b.Run(fmt.Sprintf("params_%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				ParamsHash(params)
			}
		})
	}
}

func BenchmarkExactCache_LoadStore(b *testing.B) {
	c := NewMemoryCache(nil)
	defer c.Close()
	ec := NewExactCache(c, time.Hour)

	ctx := context.Background()
	params := Params{"categories": 6, "draws": 6}
	value := map[string]any{"space": 46656, "mean": 3.990612}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ec.Store(ctx, "sampling", params, value, 0)
		var dst map[string]any
		_, _ = ec.Load(ctx, "sampling", params, &dst)
	}
}
