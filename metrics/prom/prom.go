// Package prom exports memo.Metrics signals as Prometheus collectors.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/memoflight/memo"
	"github.com/IvanBrykalov/memoflight/strategy"
)

// Adapter implements memo.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	stale     prometheus.Counter
	waits     *prometheus.CounterVec
	evicts    *prometheus.CounterVec
	sizeEnt   prometheus.Gauge
	sizeBytes prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Valid cached values served",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Computations run (ownership claims)",
			ConstLabels: constLabels,
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "stale_publishes_total",
			Help:        "Computed values discarded by a racing invalidation",
			ConstLabels: constLabels,
		}),
		waits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "waits_total",
				Help:        "Waits for another caller's computation, by kind",
				ConstLabels: constLabels,
			},
			[]string{"kind"},
		),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cached values removed, by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
		sizeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_bytes",
			Help:        "Approximate resident value bytes (0 without byte accounting)",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.stale, a.waits, a.evicts, a.sizeEnt, a.sizeBytes)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Stale increments the stale-publish counter.
func (a *Adapter) Stale() { a.stale.Inc() }

// Wait increments the wait counter with a kind label.
func (a *Adapter) Wait(k memo.WaitKind) {
	a.waits.WithLabelValues(kind(k)).Inc()
}

// Evict increments the eviction counter with a reason label.
func (a *Adapter) Evict(r strategy.RemoveReason) {
	a.evicts.WithLabelValues(reason(r)).Inc()
}

// Size updates gauges for the entry count and approximate byte total.
func (a *Adapter) Size(entries int, bytes int64) {
	a.sizeEnt.Set(float64(entries))
	a.sizeBytes.Set(float64(bytes))
}

// kind maps WaitKind to a stable label value.
func kind(k memo.WaitKind) string {
	if k == memo.WaitPolled {
		return "polled"
	}
	return "blocked"
}

// reason maps RemoveReason to a stable label value.
func reason(r strategy.RemoveReason) string {
	switch r {
	case strategy.RemoveExpired:
		return "expired"
	case strategy.RemovePressure:
		return "pressure"
	default:
		return "invalidate"
	}
}

// Compile-time check: ensure Adapter implements memo.Metrics.
var _ memo.Metrics = (*Adapter)(nil)
