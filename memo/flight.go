package memo

import (
	"context"
	"sync/atomic"
	"time"
)

// flight is the in-flight computation attached to a Running entry.
// The owner closes done exactly once after it has published or abandoned,
// so the channel close is the broadcast notification to registered waiters:
// the store transition happens-before the close, and a waiter that wakes is
// guaranteed a fresh load reflects that generation's outcome.
type flight struct {
	done chan struct{}

	// waiters counts registration attempts. The first maxWaiters callers
	// (per their own per-call bound) block on done; everyone past the bound
	// backs off to a timed sleep and re-polls, so a huge fan-in never parks
	// an unbounded number of goroutines on one channel.
	waiters atomic.Int32
}

func newFlight() *flight {
	return &flight{done: make(chan struct{})}
}

// wait parks the caller until the owning computation concludes, or until a
// poll interval elapses for overflow callers. A nil return means "re-read
// the entry and decide again"; both the notified and the polled path land
// there. Only ctx expiry is an error.
func (c *Cache[K, V]) wait(ctx context.Context, fl *flight, cc callConfig) error {
	if int(fl.waiters.Add(1)) <= cc.maxWaiters {
		c.opt.Metrics.Wait(WaitBlocked)
		select {
		case <-fl.done:
			return nil
		case <-ctx.Done():
			// Release the registry slot so a poller can upgrade to blocking.
			fl.waiters.Add(-1)
			return ctx.Err()
		}
	}

	// Registry full: back off and re-poll. Deliberately not selecting on
	// fl.done here — overflow callers are the pressure-relief path and must
	// not turn into de-facto blocked waiters.
	fl.waiters.Add(-1)
	c.opt.Metrics.Wait(WaitPolled)

	t := time.NewTimer(cc.waiterSleep)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
