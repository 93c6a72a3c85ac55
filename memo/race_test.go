package memo

import (
	"context"
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/IvanBrykalov/memoflight/strategy/evict"
)

// A mixed workload of concurrent GetOrRun/Cached/Invalidate/GarbageCollect
// on random keys. Should pass under `-race` without detector reports.
func TestRace_MixedWorkload(t *testing.T) {
	c, err := New[string, string](Options[string, string]{Shards: 32})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 512
	deadline := time.Now().Add(2 * time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(keyspace))
				switch r.Intn(100) {
				case 0, 1, 2: // ~3% — exact invalidation
					c.InvalidateKey(k)
				case 3: // ~1% — GC pass
					c.GarbageCollect()
				case 4, 5, 6, 7, 8: // ~5% — read-only probe
					c.Cached(k)
				default: // ~91% — memoized call, some with expiry
					opts := []CallOption{WaiterSleep(5 * time.Millisecond)}
					if r.Intn(10) == 0 {
						opts = append(opts, ExpiresIn(time.Duration(5+r.Intn(20))*time.Millisecond))
					}
					_, _ = c.GetOrRun(context.Background(), k, func(context.Context) (string, error) {
						return "v:" + k, nil
					}, opts...)
				}
			}
		}(w)
	}
	wg.Wait()
}

// Same workload against the eviction strategy so sweeps, byte accounting
// and the used-bit mutation race with ordinary traffic.
func TestRace_EvictionSweeps(t *testing.T) {
	c, err := New[string, string](Options[string, string]{
		Strategy: evict.New[string, string](evict.Options[string]{
			MinThreshold: 8 << 10,
			MaxThreshold: 16 << 10,
		}),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })

	workers := 4 * runtime.GOMAXPROCS(0)
	deadline := time.Now().Add(2 * time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(id)*7919 + 1))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(2048))
				opts := []CallOption{WaiterSleep(5 * time.Millisecond)}
				if r.Intn(50) == 0 {
					opts = append(opts, Permanent())
				}
				_, _ = c.GetOrRun(context.Background(), k, func(context.Context) (string, error) {
					return string(make([]byte, 64+r.Intn(256))), nil
				}, opts...)
				if r.Intn(100) == 0 {
					c.GarbageCollect()
				}
			}
		}(w)
	}
	wg.Wait()
}
