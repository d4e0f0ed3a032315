package feed

import (
	"testing"

	"rebcore/internal/coreerr"
	"rebcore/internal/value"
)

func intCell(n int64) value.Cell {
	var c value.Cell
	c.InitInteger(n)
	return c
}

func TestArrayFeedFetchAndLookback(t *testing.T) {
	arr := value.NewArray([]value.Cell{intCell(1), intCell(2), intCell(3)})
	f := NewArrayFeed(arr, nil)

	if f.IsEnd() {
		t.Fatal("freshly primed feed over a non-empty array should not be at end")
	}
	if got := f.Current.AsInteger(); got != 1 {
		t.Fatalf("Current = %d, want 1", got)
	}

	first := f.FetchNext(true)
	if first.AsInteger() != 1 {
		t.Fatalf("FetchNext returned %d, want 1 (the pre-fetch value)", first.AsInteger())
	}
	if f.Current.AsInteger() != 2 {
		t.Fatalf("Current after one fetch = %d, want 2", f.Current.AsInteger())
	}
	lb, ok := f.Lookback()
	if !ok || lb.AsInteger() != 1 {
		t.Fatalf("Lookback() = (%v, %v), want (1, true)", lb, ok)
	}

	f.FetchNext(false)
	if _, ok := f.Lookback(); ok {
		t.Fatal("Lookback should be unavailable after a non-preserving fetch")
	}

	last := f.FetchNext(true)
	if last.AsInteger() != 3 {
		t.Fatalf("third fetch returned %d, want 3", last.AsInteger())
	}
	if !f.IsEnd() {
		t.Fatal("feed should be at end after exhausting a 3-element array")
	}
}

func TestVariadicFeedCellItems(t *testing.T) {
	items := []Item{CellItem(intCell(10)), CellItem(intCell(20))}
	f := NewVariadicFeed(items, nil, nil, nil)

	if f.Current.AsInteger() != 10 {
		t.Fatalf("Current = %d, want 10", f.Current.AsInteger())
	}
	f.FetchNext(false)
	if f.Current.AsInteger() != 20 {
		t.Fatalf("Current after one fetch = %d, want 20", f.Current.AsInteger())
	}
	f.FetchNext(false)
	if !f.IsEnd() {
		t.Fatal("variadic feed should be at end after its last cell item")
	}
}

func TestVariadicFeedSplicesArrayItem(t *testing.T) {
	spliced := value.NewArray([]value.Cell{intCell(2), intCell(3)})
	items := []Item{CellItem(intCell(1)), ArrayItem(spliced), CellItem(intCell(4))}
	f := NewVariadicFeed(items, nil, nil, nil)

	var got []int64
	for !f.IsEnd() {
		got = append(got, f.Current.AsInteger())
		f.FetchNext(false)
	}
	want := []int64{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestVariadicFeedSplicesScannedText(t *testing.T) {
	tab := value.NewSymbolTable()
	items := []Item{CellItem(intCell(1)), TextItem("2 3"), CellItem(intCell(4))}
	f := NewVariadicFeed(items, tab, nil, nil)

	var got []int64
	for !f.IsEnd() {
		got = append(got, f.Current.AsInteger())
		f.FetchNext(false)
	}
	want := []int64{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestEmptyVariadicItemActsAsEnd(t *testing.T) {
	items := []Item{CellItem(intCell(1)), {}, CellItem(intCell(2))}
	f := NewVariadicFeed(items, nil, nil, nil)
	f.FetchNext(false)
	if !f.IsEnd() {
		t.Fatal("an explicitly empty item should exhaust the feed, not skip to the next item")
	}
}

func TestGottenCacheInvalidation(t *testing.T) {
	arr := value.NewArray([]value.Cell{intCell(1)})
	f := NewArrayFeed(arr, nil)

	var word value.Cell
	word.InitWord(value.KindWord, nil, value.Unbound)
	resolved := intCell(99)

	f.SetGotten(&word, &resolved)
	got, ok := f.Gotten(&word)
	if !ok || got != &resolved {
		t.Fatal("Gotten should return the cached resolution for the same word cell identity")
	}

	f.InvalidateGotten()
	if _, ok := f.Gotten(&word); ok {
		t.Fatal("InvalidateGotten should drop the cache")
	}

	f.SetGotten(&word, &resolved)
	var other value.Cell
	other.InitWord(value.KindWord, nil, value.Unbound)
	if _, ok := f.Gotten(&other); ok {
		t.Fatal("Gotten must only hit for the exact word cell identity it was set for")
	}
}

func TestBarrierBlocksArgumentGather(t *testing.T) {
	f := NewArrayFeed(value.NewArray(nil), nil)
	f.RequireNotBarrier() // no barrier yet: must not panic/error

	f.HitBarrier()
	err := coreerr.Trap(func() { f.RequireNotBarrier() })
	if err == nil {
		t.Fatal("RequireNotBarrier should raise once the feed has hit a barrier")
	}
}

// TestBarrierIsTransientOnceCleared confirms BarrierHit is an ordinary field
// an owner can reset once a barrier has done its job, rather than a
// one-way latch for the rest of the feed's lifetime (spec §4.5: a barrier
// blocks only the argument-gather immediately abutting it). The evaluator
// (internal/eval) is the one that actually clears it, at the start of each
// new top-level expression; this just pins the field-level contract it
// relies on.
func TestBarrierIsTransientOnceCleared(t *testing.T) {
	f := NewArrayFeed(value.NewArray(nil), nil)
	f.HitBarrier()
	if err := coreerr.Trap(func() { f.RequireNotBarrier() }); err == nil {
		t.Fatal("RequireNotBarrier should raise right after HitBarrier")
	}

	f.BarrierHit = false
	if err := coreerr.Trap(func() { f.RequireNotBarrier() }); err != nil {
		t.Fatalf("RequireNotBarrier after the barrier was cleared = %v, want nil", err)
	}
}
