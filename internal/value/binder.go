package value

import "rebcore/internal/coreerr"

// Binder is the scoped, non-reentrant installer of spec §4.1: a bind pass
// can stamp an integer index onto any symbol it touches for an O(1) "does
// this symbol live in this context" query, using one of the two transient
// slots every Symbol carries. high picks which of the two slots this
// binder owns, so at most two binders may be live across the whole process
// at once (spec §4.1: "the core specified here supports two").
type Binder struct {
	high bool
	set  []*Symbol // every symbol this binder has written to, for the leak check
}

// NewBinder allocates a Binder bound to slot high. Mirrors spec §4.1's
// "init zeroes it": the returned Binder has touched nothing yet.
func NewBinder(high bool) *Binder {
	return &Binder{high: high}
}

func (b *Binder) slot(s *Symbol) *int {
	if b.high {
		return &s.bindIndexHigh
	}
	return &s.bindIndexLow
}

// TryAdd writes index into this binder's slot on s iff that slot is
// currently zero (absent), returning whether the write happened.
func (b *Binder) TryAdd(s *Symbol, index int) bool {
	if index == 0 {
		panic("value: Binder.TryAdd with reserved index 0")
	}
	slot := b.slot(s)
	if *slot != 0 {
		return false
	}
	*slot = index
	b.set = append(b.set, s)
	return true
}

// GetElseZero returns the slot's current value, zero meaning absent.
func (b *Binder) GetElseZero(s *Symbol) int {
	return *b.slot(s)
}

// RemoveElseZero returns the previous value and zeroes the slot.
func (b *Binder) RemoveElseZero(s *Symbol) int {
	slot := b.slot(s)
	prev := *slot
	*slot = 0
	return prev
}

// Shutdown asserts the binder's set-count is zero: every symbol touched via
// TryAdd must have been explicitly removed (via RemoveElseZero) before the
// binder's dynamic scope ends. A nonzero leftover is the "partial
// teardown... fatal invariant violation detected in debug" spec §4.1
// describes; here it's a hard coreerr.Fail rather than a silent debug
// assertion, since nothing else in this port distinguishes debug builds.
func (b *Binder) Shutdown() {
	var leaked []string
	for _, s := range b.set {
		if *b.slot(s) != 0 {
			leaked = append(leaked, s.Text())
		}
	}
	if len(leaked) > 0 {
		coreerr.Fail(coreerr.BinderLeak, "binder torn down with symbols still bound", leaked)
	}
}

// ReleaseAll zeroes every slot this binder touched without checking for
// leaks, the normal way a bind pass ends: it walks its own word list and
// zeroes each slot directly (the same effect as RemoveElseZero), then
// forgets the list. Tests
// that want the leak check call Shutdown directly instead.
func (b *Binder) ReleaseAll() {
	for _, s := range b.set {
		*b.slot(s) = 0
	}
	b.set = b.set[:0]
}
