package cache

import (
	"context"
	"strconv"
	"testing"
)

func BenchmarkLRUCache_GetHit(b *testing.B) {
	c := NewLRUCache(LRUConfig{MaxSize: 1000})
	ctx := context.Background()
	_ = c.Set(ctx, "cnpj:11222333000181", []byte("payload"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(ctx, "cnpj:11222333000181")
	}
}

func BenchmarkLRUCache_SetEvicting(b *testing.B) {
	c := NewLRUCache(LRUConfig{MaxSize: 128})
	ctx := context.Background()
	value := []byte("payload")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, strconv.Itoa(i), value)
	}
}

func BenchmarkLRUCache_Concurrent(b *testing.B) {
	c := NewLRUCache(LRUConfig{MaxSize: 512})
	ctx := context.Background()
	value := []byte("payload")

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := strconv.Itoa(i % 1024)
			if _, ok := c.Get(ctx, key); !ok {
				_ = c.Set(ctx, key, value)
			}
			i++
		}
	})
}

func BenchmarkDefaultKeyer_Key(b *testing.B) {
	keyer := NewDefaultKeyer()
	input := map[string]any{"q": "acme ltda processo", "max_results": 5}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = keyer.Key("search", input)
	}
}
