package memo

import (
	"context"
	"strconv"
	"testing"
)

// BenchmarkGetOrRun_Hits measures the hot path: every call after warmup is
// served from cache. RunParallel spawns GOMAXPROCS goroutines; string keys
// include strconv/concat costs, which is fine for an end-to-end number.
func BenchmarkGetOrRun_Hits(b *testing.B) {
	c, err := New[string, string](Options[string, string]{})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = c.Close() })

	const keyspace = 1 << 14
	ctx := context.Background()
	for i := 0; i < keyspace; i++ {
		k := "k:" + strconv.Itoa(i)
		if _, err := c.GetOrRun(ctx, k, func(context.Context) (string, error) {
			return "v", nil
		}); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			k := "k:" + strconv.Itoa(i&(keyspace-1))
			if _, err := c.GetOrRun(ctx, k, func(context.Context) (string, error) {
				return "v", nil
			}); err != nil {
				b.Fatal(err)
			}
			i++
		}
	})
}

// BenchmarkGetOrRun_SingleKey hammers one key from all goroutines: after
// the first call everything is a hit on a single shard, which exposes
// read-lock contention on the coordination path.
func BenchmarkGetOrRun_SingleKey(b *testing.B) {
	c, err := New[string, int](Options[string, int]{})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	compute := func(context.Context) (int, error) { return 1, nil }
	if _, err := c.GetOrRun(ctx, "hot", compute); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := c.GetOrRun(ctx, "hot", compute); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkCached measures the read-only probe.
func BenchmarkCached(b *testing.B) {
	c, err := New[int, int](Options[int, int]{})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	const keyspace = 1 << 14
	for i := 0; i < keyspace; i++ {
		if _, err := c.GetOrRun(ctx, i, func(context.Context) (int, error) {
			return 1, nil
		}); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c.Cached(i & (keyspace - 1))
			i++
		}
	})
}
