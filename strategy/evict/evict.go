// Package evict implements a memory-threshold cache strategy. Every cached
// value is size-accounted into a process-wide byte counter; when the counter
// crosses MaxThreshold a sweep removes unused, non-permanent entries until
// the counter falls to MinThreshold, using a clock-style second-chance bit
// as a cheap LRU approximation.
package evict

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/memoflight/internal/util"
	"github.com/IvanBrykalov/memoflight/strategy"
)

// Options configures the eviction strategy.
type Options[V any] struct {
	// MinThreshold is the byte total a sweep drains down to.
	MinThreshold int64
	// MaxThreshold is the byte total that triggers a sweep.
	// Permanent entries count toward it, so size it accordingly.
	MaxThreshold int64

	// SizeOf returns the approximate byte footprint of a value.
	// Nil => EstimateSize (msgpack-encoded length + fixed overhead).
	SizeOf func(v V) int64

	// Clock overrides the time source (tests). Nil => time.Now().
	Clock strategy.Clock
}

// entryContext is the per-value accounting record. size/deadline/permanent
// are immutable after OnCache; used is the second-chance bit flipped by
// reads and cleared by sweeps.
type entryContext struct {
	size      int64
	deadline  int64 // UnixNano, 0 = no expiry
	permanent bool
	used      atomic.Bool
}

// Strategy is the memory-threshold policy.
type Strategy[K comparable, V any] struct {
	opt Options[V]
	tab strategy.Table[K, V]

	total   util.PaddedAtomicInt64 // resident bytes across all entries
	sweepMu sync.Mutex             // one sweep at a time
}

// New constructs an eviction strategy instance. Threshold validation
// happens in Init so misconfiguration fails cache construction.
func New[K comparable, V any](opt Options[V]) *Strategy[K, V] {
	return &Strategy[K, V]{opt: opt}
}

// Init validates thresholds and stores the table view.
func (s *Strategy[K, V]) Init(tab strategy.Table[K, V]) error {
	if tab == nil {
		return fmt.Errorf("evict: nil table")
	}
	if s.opt.MinThreshold <= 0 || s.opt.MaxThreshold <= 0 {
		return fmt.Errorf("evict: thresholds must be positive (min=%d max=%d)", s.opt.MinThreshold, s.opt.MaxThreshold)
	}
	if s.opt.MinThreshold >= s.opt.MaxThreshold {
		return fmt.Errorf("evict: MinThreshold %d must be below MaxThreshold %d", s.opt.MinThreshold, s.opt.MaxThreshold)
	}
	if s.opt.SizeOf == nil {
		s.opt.SizeOf = EstimateSize[V]
	}
	s.tab = tab
	return nil
}

// Shard routes keys with FNV-1a.
func (s *Strategy[K, V]) Shard(key K) uint64 { return util.Fnv64a(key) }

// OnCache sizes the value, charges the byte counter, and sweeps if the
// charge pushed the total over MaxThreshold. The fresh entry is not yet in
// the table at this point, so a sweep never evicts the value being cached.
func (s *Strategy[K, V]) OnCache(_ K, value V, opt strategy.EntryOptions) strategy.Context {
	c := &entryContext{
		size:      s.opt.SizeOf(value),
		permanent: opt.Permanent,
	}
	if opt.ExpiresIn > 0 {
		c.deadline = s.now() + int64(opt.ExpiresIn)
	}
	c.used.Store(true)

	if s.total.Add(c.size) > s.opt.MaxThreshold {
		s.sweep()
	}
	return c
}

// OnRead applies the expiry check, then marks the entry used since the last
// sweep. Expiry wins over permanence: an expired permanent entry reads as
// invalid and gets recomputed.
func (s *Strategy[K, V]) OnRead(_ K, _ V, sc strategy.Context) bool {
	c := sc.(*entryContext)
	if c.deadline != 0 && s.now() >= c.deadline {
		return false
	}
	c.used.Store(true)
	return true
}

// OnRemove refunds the entry's bytes.
func (s *Strategy[K, V]) OnRemove(_ K, sc strategy.Context) {
	s.total.Add(-sc.(*entryContext).size)
}

// Invalidate removes entries whose key matches. Explicit invalidation is
// the only way a permanent entry leaves the store before expiry.
func (s *Strategy[K, V]) Invalidate(match func(K) bool) int {
	return s.tab.Purge(match)
}

// InvalidateAll removes every entry.
func (s *Strategy[K, V]) InvalidateAll() int {
	return s.tab.Purge(func(K) bool { return true })
}

// GarbageCollect removes every expired entry (permanent included), then
// runs the threshold sweep if the total is still over MaxThreshold.
func (s *Strategy[K, V]) GarbageCollect() int {
	now := s.now()
	removed := s.tab.RemoveIf(strategy.RemoveExpired, func(_ K, sc strategy.Context) bool {
		c := sc.(*entryContext)
		return c.deadline != 0 && now >= c.deadline
	})
	if s.total.Load() > s.opt.MaxThreshold {
		removed += s.sweep()
	}
	return removed
}

// TotalBytes reports the resident byte total (strategy.TotalSizer).
func (s *Strategy[K, V]) TotalBytes() int64 { return s.total.Load() }

// sweep drains the byte total to MinThreshold in at most two passes.
// Pass one removes non-permanent entries whose used bit is clear, so
// anything touched since the previous sweep survives first. If that is not
// enough, all surviving bits are cleared and a second pass runs, which is
// the clock hand completing a revolution. Bits are cleared again at the end
// to arm the next cycle.
func (s *Strategy[K, V]) sweep() int {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	removed := 0
	for pass := 0; pass < 2; pass++ {
		if s.total.Load() <= s.opt.MaxThreshold && pass == 0 {
			// Another sweep already drained while we queued on sweepMu.
			return 0
		}
		removed += s.tab.RemoveIf(strategy.RemovePressure, func(_ K, sc strategy.Context) bool {
			if s.total.Load() <= s.opt.MinThreshold {
				return false
			}
			c := sc.(*entryContext)
			return !c.permanent && !c.used.Load()
		})
		s.tab.Walk(func(_ K, sc strategy.Context) bool {
			sc.(*entryContext).used.Store(false)
			return true
		})
		if s.total.Load() <= s.opt.MinThreshold {
			break
		}
	}
	return removed
}

func (s *Strategy[K, V]) now() int64 {
	if s.opt.Clock != nil {
		return s.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

var _ strategy.Strategy[string, string] = (*Strategy[string, string])(nil)
var _ strategy.TotalSizer = (*Strategy[string, string])(nil)
