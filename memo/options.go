package memo

import (
	"fmt"
	"time"

	"github.com/IvanBrykalov/memoflight/strategy"
)

const (
	// DefaultMaxWaiters is the per-key bound on blocking waiters.
	DefaultMaxWaiters = 20
	// DefaultWaiterSleep is the overflow callers' poll interval.
	DefaultWaiterSleep = 200 * time.Millisecond
)

// Options configures a Cache. Zero values are safe; defaults are applied in
// New():
//   - nil Strategy   => strategy/simple
//   - Shards == 0    => auto (2×GOMAXPROCS rounded to a power of two)
//   - MaxWaiters == 0 / WaiterSleep == 0 => package defaults
//   - nil Metrics    => NoopMetrics
//   - nil Logger     => NopLogger
//
// Negative values are configuration errors and fail New (never call time).
type Options[K comparable, V any] struct {
	// Strategy is the cache policy, fixed for the cache lifetime.
	Strategy strategy.Strategy[K, V]

	// Shards is the entry-store partition count (rounded up to a power of
	// two). 0 picks an automatic value from GOMAXPROCS.
	Shards int

	// MaxWaiters bounds how many callers may block per in-flight
	// computation; callers beyond the bound poll with WaiterSleep backoff.
	MaxWaiters int

	// WaiterSleep is the poll interval for overflow callers.
	WaiterSleep time.Duration

	// GCInterval enables a background GarbageCollect loop owned by the
	// cache and stopped by Close. 0 disables it.
	GCInterval time.Duration

	// Observability.
	Metrics Metrics
	Logger  Logger
}

func (o *Options[K, V]) validate() error {
	if o.Shards < 0 {
		return fmt.Errorf("memo: Shards must be >= 0, got %d", o.Shards)
	}
	if o.MaxWaiters < 0 {
		return fmt.Errorf("memo: MaxWaiters must be >= 0, got %d", o.MaxWaiters)
	}
	if o.WaiterSleep < 0 {
		return fmt.Errorf("memo: WaiterSleep must be >= 0, got %v", o.WaiterSleep)
	}
	if o.GCInterval < 0 {
		return fmt.Errorf("memo: GCInterval must be >= 0, got %v", o.GCInterval)
	}
	return nil
}

// callConfig is the resolved per-call view: cache-wide defaults with
// CallOption overrides applied on top.
type callConfig struct {
	maxWaiters  int
	waiterSleep time.Duration
	entry       strategy.EntryOptions
}

// CallOption overrides cache-wide settings for a single GetOrRun call.
// Per-call values win over Options.
type CallOption func(*callConfig)

// ExpiresIn sets a relative time-to-live for the value computed by this
// call (interpreted by the active strategy; 0 or negative means no expiry).
func ExpiresIn(d time.Duration) CallOption {
	return func(cc *callConfig) { cc.entry.ExpiresIn = d }
}

// Permanent excludes the computed value from memory-pressure eviction.
// It remains expiry-eligible and is still byte-accounted.
func Permanent() CallOption {
	return func(cc *callConfig) { cc.entry.Permanent = true }
}

// MaxWaiters overrides the blocking-waiter bound for this call.
func MaxWaiters(n int) CallOption {
	return func(cc *callConfig) {
		if n >= 0 {
			cc.maxWaiters = n
		}
	}
}

// WaiterSleep overrides the overflow poll interval for this call.
func WaiterSleep(d time.Duration) CallOption {
	return func(cc *callConfig) {
		if d > 0 {
			cc.waiterSleep = d
		}
	}
}

func (c *Cache[K, V]) callConfig(opts []CallOption) callConfig {
	cc := callConfig{
		maxWaiters:  c.opt.MaxWaiters,
		waiterSleep: c.opt.WaiterSleep,
	}
	for _, o := range opts {
		o(&cc)
	}
	return cc
}
