// Package simple implements the default cache strategy: values live until
// explicitly invalidated, with an optional per-value expiry deadline checked
// lazily on read. No memory accounting, no automatic eviction.
package simple

import (
	"errors"
	"time"

	"github.com/IvanBrykalov/memoflight/internal/util"
	"github.com/IvanBrykalov/memoflight/strategy"
)

// Options configures the simple strategy. The zero value is ready to use.
type Options struct {
	// Clock overrides the time source (tests). Nil => time.Now().
	Clock strategy.Clock
}

// Strategy is the default policy. Context is the absolute expiry deadline
// in UnixNano (0 = never expires), stored by value.
type Strategy[K comparable, V any] struct {
	opt Options
	tab strategy.Table[K, V]
}

// New constructs a simple strategy instance.
func New[K comparable, V any](opt Options) *Strategy[K, V] {
	return &Strategy[K, V]{opt: opt}
}

// Init stores the table view. The zero configuration is always valid.
func (s *Strategy[K, V]) Init(tab strategy.Table[K, V]) error {
	if tab == nil {
		return errors.New("simple: nil table")
	}
	s.tab = tab
	return nil
}

// Shard routes keys with FNV-1a.
func (s *Strategy[K, V]) Shard(key K) uint64 { return util.Fnv64a(key) }

// OnCache records the expiry deadline if ExpiresIn was given.
// Permanent is meaningless without eviction and is ignored here.
func (s *Strategy[K, V]) OnCache(_ K, _ V, opt strategy.EntryOptions) strategy.Context {
	if opt.ExpiresIn <= 0 {
		return int64(0)
	}
	return s.now() + int64(opt.ExpiresIn)
}

// OnRead performs the lazy expiry check. It never deletes the entry itself;
// deletion happens via GarbageCollect or explicit invalidation.
func (s *Strategy[K, V]) OnRead(_ K, _ V, sc strategy.Context) bool {
	dl, ok := sc.(int64)
	if !ok || dl == 0 {
		return true
	}
	return s.now() < dl
}

// OnRemove is a no-op: the simple strategy keeps no per-entry accounting.
func (s *Strategy[K, V]) OnRemove(K, strategy.Context) {}

// Invalidate removes entries whose key matches (linear scan).
func (s *Strategy[K, V]) Invalidate(match func(K) bool) int {
	return s.tab.Purge(match)
}

// InvalidateAll removes every entry.
func (s *Strategy[K, V]) InvalidateAll() int {
	return s.tab.Purge(func(K) bool { return true })
}

// GarbageCollect removes every entry past its expiry deadline.
func (s *Strategy[K, V]) GarbageCollect() int {
	now := s.now()
	return s.tab.RemoveIf(strategy.RemoveExpired, func(_ K, sc strategy.Context) bool {
		dl, ok := sc.(int64)
		return ok && dl != 0 && now >= dl
	})
}

func (s *Strategy[K, V]) now() int64 {
	if s.opt.Clock != nil {
		return s.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

var _ strategy.Strategy[string, string] = (*Strategy[string, string])(nil)
