package memo

// Cached returns the value for k without triggering computation: a
// read-only probe. A value the strategy reports as invalid counts as a
// miss but is left in place for the next GetOrRun to recompute.
func (c *Cache[K, V]) Cached(k K) (V, bool) {
	var zero V
	if c.closed.Load() {
		return zero, false
	}
	e := c.st.load(k)
	if e == nil || e.state != stateCompleted {
		c.opt.Metrics.Miss()
		return zero, false
	}
	if !c.strat.OnRead(k, e.val, e.sc) {
		c.opt.Metrics.Miss()
		return zero, false
	}
	c.opt.Metrics.Hit()
	return e.val, true
}

// Invalidate removes every entry and returns the count. In-flight
// computations lose their slot: their publish goes stale and their waiters
// re-evaluate from scratch once the owner concludes.
func (c *Cache[K, V]) Invalidate() int {
	return c.strat.InvalidateAll()
}

// InvalidateKey removes the entry for exactly k, in any state.
// Returns 1 if an entry was removed.
func (c *Cache[K, V]) InvalidateKey(k K) int {
	return c.strat.Invalidate(func(x K) bool { return x == k })
}

// InvalidateMatch removes every entry whose key satisfies match and returns
// the count. O(n) in resident entries. See key.go for the scoped helpers
// built on top of this for Key-keyed caches.
func (c *Cache[K, V]) InvalidateMatch(match func(K) bool) int {
	return c.strat.Invalidate(match)
}

// GarbageCollect runs the strategy's sweep pass (expired entries, and for
// the eviction strategy also memory-pressure candidates) and returns how
// many entries were removed.
func (c *Cache[K, V]) GarbageCollect() int {
	return c.strat.GarbageCollect()
}

// Len returns the number of resident entries (including in-flight and
// tombstoned slots, which are transient).
func (c *Cache[K, V]) Len() int { return c.st.len() }

// Close stops the background GC loop (if any) and marks the cache closed.
// Subsequent GetOrRun calls return ErrClosed; in-flight computations finish
// normally. Close is idempotent.
func (c *Cache[K, V]) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.gcStop != nil {
		close(c.gcStop)
		c.gcWG.Wait()
	}
	return nil
}
