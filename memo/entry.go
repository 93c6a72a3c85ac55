package memo

import "github.com/IvanBrykalov/memoflight/strategy"

// entryState is the per-key lifecycle position. Absence from the store map
// is the implicit Empty state.
type entryState uint8

const (
	// stateRunning — a computation is in flight, owned by exactly one claimant.
	stateRunning entryState = iota
	// stateCompleted — a value is cached and may be served.
	stateCompleted
	// stateInvalid — tombstone left by a failed validity check or a racing
	// invalidation; claimable by anyone.
	stateInvalid
)

// entry is the unit stored per key. Entries are immutable once installed:
// every state transition swaps the whole entry under the shard lock, so a
// reader holding a *entry can use it lock-free and never observes a torn
// value/context pair. Transitions compare entry pointer identity, which is
// what makes publish/abandon linearizable per key.
type entry[V any] struct {
	state entryState

	// gen increments on every claim of this key slot. A publish or abandon
	// whose claimed entry is no longer current is stale and discarded.
	gen uint64

	// Completed only.
	val V
	sc  strategy.Context

	// Running only: the notification channel waiters block on.
	fl *flight
}
