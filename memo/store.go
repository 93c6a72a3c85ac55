package memo

import (
	"sync"

	"github.com/IvanBrykalov/memoflight/internal/util"
	"github.com/IvanBrykalov/memoflight/strategy"
)

// store is the sharded entry table: map[K]*entry per shard, each shard
// guarded by its own RWMutex. It is the single synchronization point of the
// engine — contention is per key partition, never global, and no store lock
// is ever held across a user computation.
type store[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64 // Strategy.Shard routing hash

	strat   strategy.Strategy[K, V]
	sizer   strategy.TotalSizer // nil when the strategy does not account bytes
	metrics Metrics

	// count tracks resident entries across all shards so Len and the size
	// gauge stay O(1). Updated inside locked sections only.
	count util.PaddedAtomicInt64
}

type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]*entry[V]
}

func newStore[K comparable, V any](shards int, strat strategy.Strategy[K, V], metrics Metrics) *store[K, V] {
	ss := make([]*shard[K, V], shards)
	for i := range ss {
		ss[i] = &shard[K, V]{m: make(map[K]*entry[V])}
	}
	sizer, _ := strat.(strategy.TotalSizer)
	return &store[K, V]{
		shards:  ss,
		hash:    strat.Shard,
		strat:   strat,
		sizer:   sizer,
		metrics: metrics,
	}
}

func (s *store[K, V]) shardFor(k K) *shard[K, V] {
	return s.shards[util.ShardIndex(s.hash(k), len(s.shards))]
}

// load returns the current entry for k, or nil (Empty).
func (s *store[K, V]) load(k K) *entry[V] {
	sh := s.shardFor(k)
	sh.mu.RLock()
	e := sh.m[k]
	sh.mu.RUnlock()
	return e
}

// tryClaim installs a Running entry for k iff the slot still holds seen and
// seen is claimable (absent or Invalid). Returns the Running entry on
// success; the claimant owns the key for that generation.
func (s *store[K, V]) tryClaim(k K, seen *entry[V]) (*entry[V], bool) {
	sh := s.shardFor(k)
	sh.mu.Lock()
	cur := sh.m[k]
	if cur != seen || (seen != nil && seen.state != stateInvalid) {
		sh.mu.Unlock()
		return nil, false
	}
	gen := uint64(1)
	if seen != nil {
		gen = seen.gen + 1
	}
	e := &entry[V]{state: stateRunning, gen: gen, fl: newFlight()}
	sh.m[k] = e
	if seen == nil {
		s.count.Add(1)
	}
	sh.mu.Unlock()
	return e, true
}

// markInvalid swaps a Completed entry for an Invalid tombstone iff the slot
// still holds seen. The old context is released at mark time, so byte
// accounting never double-counts a value awaiting recomputation.
func (s *store[K, V]) markInvalid(k K, seen *entry[V], reason strategy.RemoveReason) (*entry[V], bool) {
	sh := s.shardFor(k)
	sh.mu.Lock()
	if sh.m[k] != seen || seen.state != stateCompleted {
		sh.mu.Unlock()
		return nil, false
	}
	inv := &entry[V]{state: stateInvalid, gen: seen.gen}
	sh.m[k] = inv
	s.released(k, seen.sc, reason)
	sh.mu.Unlock()
	s.refreshGauge()
	return inv, true
}

// publish swaps Running→Completed iff the claimed entry is still current.
// A false return is a stale publish: a racing invalidation took the slot
// and the computed value must not be stored.
func (s *store[K, V]) publish(k K, claimed *entry[V], v V, sc strategy.Context) bool {
	sh := s.shardFor(k)
	sh.mu.Lock()
	if sh.m[k] != claimed {
		sh.mu.Unlock()
		return false
	}
	sh.m[k] = &entry[V]{state: stateCompleted, gen: claimed.gen, val: v, sc: sc}
	sh.mu.Unlock()
	s.refreshGauge()
	return true
}

// abandon removes the claimed Running entry iff it is still current,
// returning the slot to Empty so the next caller can retry.
func (s *store[K, V]) abandon(k K, claimed *entry[V]) bool {
	sh := s.shardFor(k)
	sh.mu.Lock()
	if sh.m[k] != claimed {
		sh.mu.Unlock()
		return false
	}
	delete(sh.m, k)
	s.count.Add(-1)
	sh.mu.Unlock()
	s.refreshGauge()
	return true
}

// purge removes every entry whose key matches, in any state. A purged
// Running entry orphans its owner: the eventual publish compares against a
// missing slot, goes stale, and is discarded.
func (s *store[K, V]) purge(match func(K) bool) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.m {
			if !match(k) {
				continue
			}
			if e.state == stateCompleted {
				s.released(k, e.sc, strategy.RemoveInvalidate)
			}
			delete(sh.m, k)
			s.count.Add(-1)
			removed++
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		s.refreshGauge()
	}
	return removed
}

// removeIf removes Completed entries matching pred. pred runs under the
// shard lock and must be fast; OnRemove fires per removal so a strategy's
// accounting tracks the scan as it progresses.
func (s *store[K, V]) removeIf(reason strategy.RemoveReason, pred func(K, strategy.Context) bool) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.m {
			if e.state != stateCompleted || !pred(k, e.sc) {
				continue
			}
			s.released(k, e.sc, reason)
			delete(sh.m, k)
			s.count.Add(-1)
			removed++
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		s.refreshGauge()
	}
	return removed
}

// walk visits Completed entries under the shard read lock, stopping early
// if fn returns false.
func (s *store[K, V]) walk(fn func(K, strategy.Context) bool) {
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, e := range sh.m {
			if e.state != stateCompleted {
				continue
			}
			if !fn(k, e.sc) {
				sh.mu.RUnlock()
				return
			}
		}
		sh.mu.RUnlock()
	}
}

func (s *store[K, V]) len() int { return int(s.count.Load()) }

// released notifies the strategy and metrics that a completed entry's
// value left the store. Called under the shard lock; both callees are
// required to be non-blocking.
func (s *store[K, V]) released(k K, sc strategy.Context, reason strategy.RemoveReason) {
	s.strat.OnRemove(k, sc)
	s.metrics.Evict(reason)
}

func (s *store[K, V]) refreshGauge() {
	var bytes int64
	if s.sizer != nil {
		bytes = s.sizer.TotalBytes()
	}
	s.metrics.Size(s.len(), bytes)
}

// ---- strategy.Table view ----

// tableView adapts the store to the strategy.Table contract handed to
// Strategy.Init.
type tableView[K comparable, V any] struct{ s *store[K, V] }

func (t tableView[K, V]) Len() int { return t.s.len() }

func (t tableView[K, V]) Walk(fn func(K, strategy.Context) bool) { t.s.walk(fn) }

func (t tableView[K, V]) RemoveIf(reason strategy.RemoveReason, pred func(K, strategy.Context) bool) int {
	return t.s.removeIf(reason, pred)
}

func (t tableView[K, V]) Purge(match func(K) bool) int { return t.s.purge(match) }

var _ strategy.Table[string, string] = tableView[string, string]{}
