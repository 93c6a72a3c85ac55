package memo

import "github.com/IvanBrykalov/memoflight/strategy"

// WaitKind tells how a caller waited out an in-flight computation.
type WaitKind int

const (
	// WaitBlocked — registered in the bounded waiter registry and parked on
	// the notification channel.
	WaitBlocked WaitKind = iota
	// WaitPolled — registry full; slept a poll interval and re-checked.
	WaitPolled
)

// Metrics exposes engine-level observability hooks. A NoopMetrics
// implementation is provided and used by default. Implementations must be
// safe for concurrent use; Evict and Size may be called under internal
// locks and should be cheap.
type Metrics interface {
	// Hit — a valid cached value was served.
	Hit()
	// Miss — a caller claimed ownership and ran the computation.
	Miss()
	// Stale — a computed value was discarded because a racing invalidation
	// took the slot before publish.
	Stale()
	// Wait — a caller waited for another caller's computation.
	Wait(kind WaitKind)
	// Evict — a cached value left the store, by reason.
	Evict(reason strategy.RemoveReason)
	// Size — resident entry count and approximate byte total (0 when the
	// active strategy does not account bytes).
	Size(entries int, bytes int64)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                          {}
func (NoopMetrics) Miss()                         {}
func (NoopMetrics) Stale()                        {}
func (NoopMetrics) Wait(WaitKind)                 {}
func (NoopMetrics) Evict(strategy.RemoveReason)   {}
func (NoopMetrics) Size(entries int, bytes int64) {}

var _ Metrics = NoopMetrics{}
