// Package memo provides transparent, concurrency-safe memoization: a
// computation identified by a key runs at most once concurrently, its
// result is cached, and every other caller for the same key is served the
// cached value — with pluggable strategies deciding when values expire or
// get evicted under memory pressure.
//
// # Design
//
//   - Entry store: keys are partitioned into shards, each a map guarded by
//     an RWMutex. Entries are immutable; every state transition
//     (claim/publish/abandon/invalidate) swaps the whole entry under the
//     shard lock and compares entry identity, giving per-key linearizable
//     compare-and-swap without a global lock. No lock is ever held across a
//     user computation.
//
//   - Singleflight: the first caller for a key claims ownership and runs
//     the computation; publish installs the value for everyone. Owners that
//     fail (error or panic) abandon the slot on the way out, so a key can
//     never deadlock on a dead owner — the next caller simply claims.
//
//   - Bounded waiters: up to MaxWaiters callers (default 20) park on the
//     in-flight computation's notification channel. Callers past the bound
//     do not park; they sleep WaiterSleep (default 200ms) and re-poll, so a
//     ten-thousand-caller fan-in never pins ten thousand blocked waiters.
//
//   - Strategies: the strategy package defines the policy contract
//     (partition routing, per-value context, read validity, invalidation
//     and GC scans). strategy/simple gives manual invalidation plus
//     optional lazy expiry; strategy/evict adds approximate byte accounting
//     with high/low-water-mark sweeps and clock-style second chance.
//
//   - Failures are never cached: a compute error propagates to the caller
//     that ran it, the slot is released, and one of the waiting callers
//     retries.
//
// # Basic usage
//
//	c, err := memo.New[string, string](memo.Options[string, string]{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	v, err := c.GetOrRun(ctx, "user:42", func(ctx context.Context) (string, error) {
//		return fetchUser(ctx, 42) // runs at most once concurrently
//	})
//
// # With expiry
//
//	v, err := c.GetOrRun(ctx, "quote:EUR", loadQuote, memo.ExpiresIn(time.Minute))
//
// # With memory-pressure eviction
//
//	c, err := memo.New[string, []byte](memo.Options[string, []byte]{
//		Strategy: evict.New[string, []byte](evict.Options[[]byte]{
//			MinThreshold: 64 << 20,
//			MaxThreshold: 128 << 20,
//		}),
//	})
//	// Pin an entry across sweeps:
//	v, err := c.GetOrRun(ctx, "schema", loadSchema, memo.Permanent())
//
// # Structured keys and scoped invalidation
//
//	k := memo.KeyOf("billing", "InvoiceTotal", customerID, month)
//	v, err := c.GetOrRun(ctx, k, compute)
//	memo.InvalidateScopeFunc(c, "billing", "InvoiceTotal") // one function
//	memo.InvalidateScope(c, "billing")                     // whole scope
//	c.Invalidate()                                         // everything
//
// # Observability
//
//	m := prom.New(nil, "memoflight", "app", nil)
//	c, err := memo.New[string, string](memo.Options[string, string]{
//		Metrics: m,
//		Logger:  zaplog.New(zapLogger),
//	})
//
// All state is in-memory and lost on process exit; the engine is not a
// distributed cache and offers no cross-process coherence.
package memo
