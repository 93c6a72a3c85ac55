package evict

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IvanBrykalov/memoflight/strategy"
)

type fakeClock struct{ t atomic.Int64 }

func (f *fakeClock) NowUnixNano() int64  { return f.t.Load() }
func (f *fakeClock) add(d time.Duration) { f.t.Add(int64(d)) }

// fakeTable is a minimal strategy.Table over a plain map; RemoveIf and
// Purge notify the strategy the way the engine's store does.
type fakeTable[K comparable, V any] struct {
	mu       sync.Mutex
	m        map[K]strategy.Context
	onRemove func(K, strategy.Context)
}

func newFakeTable[K comparable, V any](onRemove func(K, strategy.Context)) *fakeTable[K, V] {
	return &fakeTable[K, V]{m: make(map[K]strategy.Context), onRemove: onRemove}
}

func (t *fakeTable[K, V]) put(k K, sc strategy.Context) {
	t.mu.Lock()
	t.m[k] = sc
	t.mu.Unlock()
}

func (t *fakeTable[K, V]) has(k K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.m[k]
	return ok
}

func (t *fakeTable[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}

func (t *fakeTable[K, V]) Walk(fn func(K, strategy.Context) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, sc := range t.m {
		if !fn(k, sc) {
			return
		}
	}
}

func (t *fakeTable[K, V]) RemoveIf(_ strategy.RemoveReason, pred func(K, strategy.Context) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, sc := range t.m {
		if pred(k, sc) {
			t.onRemove(k, sc)
			delete(t.m, k)
			n++
		}
	}
	return n
}

func (t *fakeTable[K, V]) Purge(match func(K) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, sc := range t.m {
		if match(k) {
			t.onRemove(k, sc)
			delete(t.m, k)
			n++
		}
	}
	return n
}

var _ strategy.Table[string, string] = (*fakeTable[string, string])(nil)

// newTestStrategy wires a strategy to a fake table with OnRemove feedback,
// mirroring the engine's store behavior.
func newTestStrategy(t *testing.T, opt Options[string]) (*Strategy[string, string], *fakeTable[string, string]) {
	t.Helper()
	s := New[string, string](opt)
	ft := newFakeTable[string, string](func(k string, sc strategy.Context) { s.OnRemove(k, sc) })
	if err := s.Init(ft); err != nil {
		t.Fatal(err)
	}
	return s, ft
}

func TestInit_Validation(t *testing.T) {
	t.Parallel()

	cases := []Options[string]{
		{MinThreshold: 0, MaxThreshold: 100},
		{MinThreshold: 100, MaxThreshold: 0},
		{MinThreshold: -1, MaxThreshold: 100},
		{MinThreshold: 100, MaxThreshold: 100},
		{MinThreshold: 200, MaxThreshold: 100},
	}
	for _, opt := range cases {
		s := New[string, string](opt)
		ft := newFakeTable[string, string](nil)
		if err := s.Init(ft); err == nil {
			t.Fatalf("thresholds min=%d max=%d must fail Init", opt.MinThreshold, opt.MaxThreshold)
		}
	}
	s := New[string, string](Options[string]{MinThreshold: 50, MaxThreshold: 100})
	if err := s.Init(nil); err == nil {
		t.Fatal("nil table must fail Init")
	}
}

// Threshold law: a charge past MaxThreshold triggers a sweep that drains
// the byte total to MinThreshold; the value being cached is never its own
// victim.
func TestOnCache_ThresholdSweep(t *testing.T) {
	t.Parallel()

	s, ft := newTestStrategy(t, Options[string]{
		MinThreshold: 250,
		MaxThreshold: 500,
		SizeOf:       func(string) int64 { return 100 },
	})

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		ft.put(k, s.OnCache(k, "v", strategy.EntryOptions{}))
	}
	if got := s.TotalBytes(); got != 500 {
		t.Fatalf("charged bytes: %d", got)
	}
	if ft.Len() != 5 {
		t.Fatal("no sweep may run at exactly MaxThreshold")
	}

	// The sixth charge crosses the high-water mark.
	ft.put("f", s.OnCache("f", "v", strategy.EntryOptions{}))
	if got := s.TotalBytes(); got > 250 {
		t.Fatalf("sweep must drain to MinThreshold, total=%d", got)
	}
	if !ft.has("f") {
		t.Fatal("the value being cached must survive its own sweep")
	}
}

// Entries used since the last sweep are never the first removed; unused
// ones go first and survivors get their bits cleared for the next cycle.
func TestSweep_PrefersUnused(t *testing.T) {
	t.Parallel()

	s, ft := newTestStrategy(t, Options[string]{MinThreshold: 200, MaxThreshold: 300})

	cold1 := &entryContext{size: 100}
	cold2 := &entryContext{size: 100}
	hot := &entryContext{size: 100}
	hot.used.Store(true)
	perm := &entryContext{size: 100, permanent: true}
	for k, sc := range map[string]*entryContext{"cold1": cold1, "cold2": cold2, "hot": hot, "perm": perm} {
		ft.put(k, sc)
		s.total.Add(sc.size)
	}

	if got := s.sweep(); got != 2 {
		t.Fatalf("sweep must remove exactly the two cold entries, got %d", got)
	}
	if !ft.has("hot") || !ft.has("perm") {
		t.Fatal("used and permanent entries must survive the first pass")
	}
	if got := s.TotalBytes(); got != 200 {
		t.Fatalf("total after sweep: %d", got)
	}
	if hot.used.Load() {
		t.Fatal("survivors' used bits must be cleared for the next cycle")
	}
}

// When clearing bits is not enough, the second pass removes previously-used
// entries too — but permanent entries are only ever removable by explicit
// invalidation.
func TestSweep_SecondChanceAndPermanence(t *testing.T) {
	t.Parallel()

	s, ft := newTestStrategy(t, Options[string]{MinThreshold: 50, MaxThreshold: 150})

	hot := &entryContext{size: 100}
	hot.used.Store(true)
	perm := &entryContext{size: 100, permanent: true}
	perm.used.Store(true)
	ft.put("hot", hot)
	ft.put("perm", perm)
	s.total.Add(200)

	if got := s.sweep(); got != 1 {
		t.Fatalf("second pass must reclaim the used entry, got %d", got)
	}
	if ft.has("hot") {
		t.Fatal("used entry must fall to the second pass")
	}
	if !ft.has("perm") {
		t.Fatal("permanent entry must never be pressure-evicted")
	}
	if got := s.TotalBytes(); got != 100 {
		t.Fatalf("total after sweep: %d", got)
	}

	// Explicit invalidation is the only pressure-independent exit.
	if n := s.Invalidate(func(k string) bool { return k == "perm" }); n != 1 {
		t.Fatalf("invalidate permanent: %d", n)
	}
	if got := s.TotalBytes(); got != 0 {
		t.Fatalf("invalidation must refund bytes, total=%d", got)
	}
}

// Expiry beats permanence: an expired permanent entry reads invalid and is
// collectible by GarbageCollect.
func TestExpiryBeatsPermanence(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s, ft := newTestStrategy(t, Options[string]{
		MinThreshold: 1 << 10,
		MaxThreshold: 2 << 10,
		SizeOf:       func(string) int64 { return 100 },
		Clock:        clk,
	})

	sc := s.OnCache("k", "v", strategy.EntryOptions{ExpiresIn: 10 * time.Millisecond, Permanent: true})
	ft.put("k", sc)
	if !s.OnRead("k", "v", sc) {
		t.Fatal("fresh permanent entry must be valid")
	}

	clk.add(50 * time.Millisecond)
	if s.OnRead("k", "v", sc) {
		t.Fatal("expired permanent entry must read invalid")
	}
	if n := s.GarbageCollect(); n != 1 {
		t.Fatalf("GC must collect the expired permanent entry, got %d", n)
	}
	if got := s.TotalBytes(); got != 0 {
		t.Fatalf("total after GC: %d", got)
	}
}

// OnRead re-arms the used bit cleared by a sweep.
func TestOnRead_MarksUsed(t *testing.T) {
	t.Parallel()

	s, _ := newTestStrategy(t, Options[string]{MinThreshold: 50, MaxThreshold: 100})

	c := &entryContext{size: 10}
	if !s.OnRead("k", "v", c) {
		t.Fatal("no-deadline entry must be valid")
	}
	if !c.used.Load() {
		t.Fatal("OnRead must set the used bit")
	}
}

func TestEstimateSize(t *testing.T) {
	t.Parallel()

	if got := EstimateSize("hello"); got != 5+entryOverhead {
		t.Fatalf("string size: %d", got)
	}
	if got := EstimateSize(make([]byte, 1000)); got != 1000+entryOverhead {
		t.Fatalf("bytes size: %d", got)
	}
	type payload struct {
		A string
		B []int
	}
	if got := EstimateSize(payload{A: "x", B: []int{1, 2, 3}}); got <= entryOverhead {
		t.Fatalf("struct must be charged its encoded length, got %d", got)
	}
	// Unencodable values are charged a flat fallback, never zero.
	if got := EstimateSize(make(chan int)); got != unencodableSize+entryOverhead {
		t.Fatalf("unencodable fallback: %d", got)
	}
}
