// Package strategy defines the pluggable cache-policy contract consumed by
// the memo engine. A Strategy decides which store partition a key routes to,
// what metadata (Context) rides along with a cached value, whether a cached
// value may still be served, and how invalidation and garbage collection
// scans behave. Two implementations ship with the module: strategy/simple
// (manual invalidation plus optional expiry) and strategy/evict
// (memory-threshold eviction with clock-style second chance).
package strategy

import "time"

// Context is opaque strategy-owned metadata attached to a cached value at
// publish time and handed back on every read and removal. The engine never
// inspects it.
type Context any

// RemoveReason explains why a completed entry left the store.
type RemoveReason int

const (
	// RemoveInvalidate — removed by an explicit invalidation call.
	RemoveInvalidate RemoveReason = iota
	// RemoveExpired — past its expiry deadline (lazy read check or GC sweep).
	RemoveExpired
	// RemovePressure — evicted by a memory-threshold sweep.
	RemovePressure
)

// EntryOptions carries the per-call policy options resolved by the engine
// and forwarded to OnCache.
type EntryOptions struct {
	// ExpiresIn is the relative time-to-live for the value (0 = no expiry).
	ExpiresIn time.Duration
	// Permanent excludes the value from memory-pressure eviction.
	// It is still expiry-eligible and still counts toward byte totals.
	Permanent bool
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Table is the engine's entry-store view handed to Strategy.Init.
// Strategies drive their invalidation and sweep scans through it.
type Table[K comparable, V any] interface {
	// Len returns the number of resident entries (any state).
	Len() int

	// Walk visits every completed entry under a read lock and stops early
	// if fn returns false. fn must be fast and must not call back into the
	// cache or the table.
	Walk(fn func(key K, sc Context) bool)

	// RemoveIf removes every completed entry for which pred returns true
	// and reports how many were removed. pred runs under the partition
	// lock; OnRemove fires for each removal before RemoveIf returns.
	RemoveIf(reason RemoveReason, pred func(key K, sc Context) bool) int

	// Purge removes every entry whose key matches, in any state (running
	// computations lose their slot and their publish goes stale). Returns
	// the number of entries removed.
	Purge(match func(key K) bool) int
}

// Strategy is the capability set a cache policy implements. The configured
// instance is fixed at construction for the cache lifetime.
//
// Concurrency: every method except OnCache may be called concurrently with
// the others and with ordinary cache traffic. OnCache is never called
// concurrently for the same key (only the claim owner runs it), but may run
// concurrently across different keys.
type Strategy[K comparable, V any] interface {
	// Init receives the store view and validates configuration.
	// Errors fail cache construction (fail fast, never at call time).
	Init(tab Table[K, V]) error

	// Shard returns the routing hash used to pick a store partition.
	Shard(key K) uint64

	// OnCache produces the Context stored alongside a freshly computed
	// value, just before publish.
	OnCache(key K, value V, opt EntryOptions) Context

	// OnRead reports whether a cached value may still be served.
	// Returning false forces recomputation; the read itself mutates
	// nothing in the store.
	OnRead(key K, value V, sc Context) bool

	// OnRemove is invoked exactly once for every completed entry leaving
	// the store (and for contexts discarded by stale publishes). It may
	// run under internal locks: keep it non-blocking and do not call back
	// into the cache.
	OnRemove(key K, sc Context)

	// Invalidate removes entries whose key matches and returns the count.
	Invalidate(match func(K) bool) int

	// InvalidateAll removes every entry and returns the count.
	InvalidateAll() int

	// GarbageCollect proactively sweeps stale or evictable entries and
	// returns how many were removed.
	GarbageCollect() int
}

// TotalSizer is implemented by strategies that account approximate value
// bytes; the engine uses it to feed the size gauge.
type TotalSizer interface {
	TotalBytes() int64
}
