package memo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/memoflight/internal/util"
	"github.com/IvanBrykalov/memoflight/strategy"
	"github.com/IvanBrykalov/memoflight/strategy/simple"
)

// ErrNilCompute is returned by GetOrRun when compute is nil.
var ErrNilCompute = errors.New("memo: nil compute function")

// ErrClosed is returned by GetOrRun after Close.
var ErrClosed = errors.New("memo: cache is closed")

// Cache is a concurrency-safe memoization engine. For any key, at most one
// computation runs at a time; concurrent callers for the same key either
// block on its completion or poll with backoff, and completed values are
// served until the strategy declares them invalid or they are evicted.
// All methods are safe for concurrent use by multiple goroutines.
type Cache[K comparable, V any] struct {
	st     *store[K, V]
	strat  strategy.Strategy[K, V]
	opt    Options[K, V]
	closed atomic.Bool

	gcStop chan struct{}
	gcWG   sync.WaitGroup
}

// New constructs a Cache with the provided Options. Configuration errors
// (negative bounds, strategy Init failures) are reported here, never at
// call time.
func New[K comparable, V any](opt Options[K, V]) (*Cache[K, V], error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if opt.Strategy == nil {
		opt.Strategy = simple.New[K, V](simple.Options{})
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = NopLogger{}
	}
	if opt.MaxWaiters == 0 {
		opt.MaxWaiters = DefaultMaxWaiters
	}
	if opt.WaiterSleep == 0 {
		opt.WaiterSleep = DefaultWaiterSleep
	}

	sh := opt.Shards
	if sh == 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}

	c := &Cache[K, V]{
		strat: opt.Strategy,
		opt:   opt,
	}
	c.st = newStore[K, V](sh, opt.Strategy, opt.Metrics)

	if err := opt.Strategy.Init(tableView[K, V]{s: c.st}); err != nil {
		return nil, err
	}

	if opt.GCInterval > 0 {
		c.gcStop = make(chan struct{})
		c.gcWG.Add(1)
		go c.gcLoop()
	}
	return c, nil
}

// GetOrRun returns the cached value for k, computing it via compute if
// needed. For any key the computation runs at most once concurrently: the
// first caller claims ownership and runs compute, everyone else waits for
// the outcome and re-reads. A compute error is returned to the owner's
// caller only and is never cached; one of the waiting callers then becomes
// the next owner and retries.
//
// The loop is bounded only by contention, not by a retry cap — ctx is the
// caller's escape hatch and is also passed through to compute.
func (c *Cache[K, V]) GetOrRun(ctx context.Context, k K, compute func(ctx context.Context) (V, error), opts ...CallOption) (V, error) {
	var zero V
	if compute == nil {
		return zero, ErrNilCompute
	}
	if c.closed.Load() {
		return zero, ErrClosed
	}
	cc := c.callConfig(opts)

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		e := c.st.load(k)
		switch {
		case e == nil || e.state == stateInvalid:
			claimed, ok := c.st.tryClaim(k, e)
			if !ok {
				// Lost the claim race; reload to see who won.
				continue
			}
			return c.run(ctx, k, claimed, compute, cc)

		case e.state == stateCompleted:
			if c.strat.OnRead(k, e.val, e.sc) {
				c.opt.Metrics.Hit()
				return e.val, nil
			}
			// Lazily invalid (expired); tombstone it and claim on the next
			// pass. Losing this CAS just means someone else got there first.
			c.st.markInvalid(k, e, strategy.RemoveExpired)

		case e.state == stateRunning:
			if err := c.wait(ctx, e.fl, cc); err != nil {
				return zero, err
			}
		}
	}
}

// run executes compute as the owner of the claimed entry. Every exit path —
// publish, compute error, panic — releases the slot before closing the
// notification channel, so waiters that wake always observe the outcome.
func (c *Cache[K, V]) run(ctx context.Context, k K, claimed *entry[V], compute func(ctx context.Context) (V, error), cc callConfig) (V, error) {
	c.opt.Metrics.Miss()

	published := false
	defer func() {
		if !published {
			c.st.abandon(k, claimed)
		}
		close(claimed.fl.done)
	}()

	v, err := compute(ctx)
	if err != nil {
		var zero V
		c.opt.Logger.Debug("compute failed", Fields{"gen": claimed.gen, "err": err.Error()})
		return zero, err
	}

	sc := c.strat.OnCache(k, v, cc.entry)
	if c.st.publish(k, claimed, v, sc) {
		published = true
	} else {
		// A racing invalidation took the slot while we computed. The caller
		// still gets the value it computed; the store is left untouched and
		// the produced context is refunded.
		c.strat.OnRemove(k, sc)
		c.opt.Metrics.Stale()
		c.opt.Logger.Debug("stale publish discarded", Fields{"gen": claimed.gen})
	}
	return v, nil
}

// gcLoop periodically runs the strategy's garbage collection until Close.
func (c *Cache[K, V]) gcLoop() {
	defer c.gcWG.Done()
	t := time.NewTicker(c.opt.GCInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if n := c.strat.GarbageCollect(); n > 0 {
				c.opt.Logger.Debug("gc sweep", Fields{"removed": n})
			}
		case <-c.gcStop:
			return
		}
	}
}
