// Package feed implements the abstract cell-producing input stream of
// spec §4.4: the sole source of cells for an evaluator frame, unifying
// array iteration, host-language variadic argument lists, and on-demand
// scanned text behind one fetch_next(preserve_lookback) call with exactly
// one unit of lookback.
package feed

import (
	"rebcore/internal/coreerr"
	"rebcore/internal/scan"
	"rebcore/internal/value"
)

// Item is one element a variadic source can hand the feed: either an
// already-built Cell, raw source text to scan on demand, or a nested Array
// to splice in directly. This stands in for spec §4.4's "polymorphic
// detection step [that] inspects the first byte of each incoming pointer"
// — Go gives us a real sum type for this instead of a tagged byte, so
// Item is just that.
type Item struct {
	Cell  *value.Cell
	Text  string
	Array *value.Array
	isSet bool
}

func CellItem(c value.Cell) Item  { return Item{Cell: &c, isSet: true} }
func TextItem(s string) Item      { return Item{Text: s, isSet: true} }
func ArrayItem(a *value.Array) Item { return Item{Array: a, isSet: true} }

type sourceKind byte

const (
	sourceArray sourceKind = iota
	sourceVariadic
)

// Feed is spec §4.4's Feed. Current is never nil; it holds an End cell
// once the feed is exhausted.
type Feed struct {
	Current  value.Cell
	lookback value.Cell
	fetched  value.Cell
	havePrev bool

	kind sourceKind

	// array source
	array *value.Array
	index int

	// variadic source
	items []Item
	vidx  int

	Pending        *value.Cell
	gottenWord     *value.Cell
	gotten         *value.Cell
	Quoting        byte
	BarrierHit     bool
	NoLookahead    bool
	NextArgFromOut bool
	Const          bool

	symbols *value.SymbolTable
	binder  *value.Binder
	bindCtx *value.Context
}

// NewArrayFeed creates a Feed reading array starting at index 0. An array
// feed never scans text, so it carries no binder or bind context.
func NewArrayFeed(array *value.Array, symbols *value.SymbolTable) *Feed {
	f := &Feed{kind: sourceArray, array: array, symbols: symbols}
	f.primeCurrent()
	return f
}

// NewVariadicFeed creates a Feed over a host-supplied item list (spec
// §4.4's "variadic pointer" / "packed pointer array" sources, unified
// here into one Go slice since Go doesn't need two separate
// representations for them).
func NewVariadicFeed(items []Item, symbols *value.SymbolTable, binder *value.Binder, bindCtx *value.Context) *Feed {
	f := &Feed{kind: sourceVariadic, items: items, symbols: symbols, binder: binder, bindCtx: bindCtx}
	f.primeCurrent()
	return f
}

func endCell() value.Cell {
	var c value.Cell
	c.Init(value.KindEnd, value.KindEnd)
	return c
}

func (f *Feed) primeCurrent() {
	f.Current = endCell()
	f.advanceRaw()
}

// advanceRaw pulls the next raw element from whichever source is active,
// scanning text lazily and splicing arrays as it goes (spec §4.4), and
// installs it as Current. It is the mechanics FetchNext delegates to after
// handling lookback bookkeeping.
func (f *Feed) advanceRaw() {
	switch f.kind {
	case sourceArray:
		if f.index >= f.array.Len() {
			f.Current = endCell()
			return
		}
		f.Current = *f.array.At(f.index)
		f.index++
	case sourceVariadic:
		f.advanceVariadic()
	}
}

func (f *Feed) advanceVariadic() {
	for {
		if f.vidx >= len(f.items) {
			f.Current = endCell()
			return
		}
		item := f.items[f.vidx]
		f.vidx++
		switch {
		case item.Cell != nil:
			c := *item.Cell
			for i := 0; i < int(f.Quoting); i++ {
				c.Quote()
			}
			f.Current = c
			return
		case item.Array != nil:
			// splice the array's cells into the remaining item stream by
			// rewriting this Feed's variadic source in place.
			spliced := make([]Item, 0, item.Array.Len()+len(f.items)-f.vidx)
			for i := 0; i < item.Array.Len(); i++ {
				cc := *item.Array.At(i)
				spliced = append(spliced, Item{Cell: &cc, isSet: true})
			}
			spliced = append(spliced, f.items[f.vidx:]...)
			f.items = spliced
			f.vidx = 0
			continue
		case item.Text != "":
			arr, err := scan.New(item.Text, f.symbols, f.binder, f.bindCtx).Scan()
			if err != nil {
				panic(err)
			}
			spliced := make([]Item, 0, arr.Len()+len(f.items)-f.vidx)
			for i := 0; i < arr.Len(); i++ {
				cc := *arr.At(i)
				spliced = append(spliced, Item{Cell: &cc, isSet: true})
			}
			spliced = append(spliced, f.items[f.vidx:]...)
			f.items = spliced
			f.vidx = 0
			continue
		default:
			// an explicitly empty item classifies as End (spec §4.4: "End
			// (exhaust the feed)").
			f.Current = endCell()
			return
		}
	}
}

// FetchNext advances the feed by one cell. If preserve is true, the
// current (pre-fetch) value becomes available via Lookback until the next
// FetchNext call, however that call requests preservation (spec §4.4:
// "exactly one unit of lookback... made available as lookback until the
// next fetch that requests preservation").
func (f *Feed) FetchNext(preserve bool) value.Cell {
	old := f.Current
	if preserve {
		f.lookback = old
		f.havePrev = true
	} else {
		f.havePrev = false
	}
	f.gottenWord = nil
	f.gotten = nil
	f.advanceRaw()
	return old
}

// Lookback returns the previously-fetched cell, valid only immediately
// after a FetchNext(true) and before any FetchNext call that passes false.
func (f *Feed) Lookback() (value.Cell, bool) {
	return f.lookback, f.havePrev
}

func (f *Feed) IsEnd() bool { return f.Current.IsEnd() }

// Gotten returns a cached pre-resolved value for word if word is the same
// cell identity the cache was populated for (spec §4.4: "the feed owns a
// gotten cache... invalidated on any Action invocation or any array
// expansion that could relocate the referenced context storage").
func (f *Feed) Gotten(word *value.Cell) (*value.Cell, bool) {
	if f.gottenWord == word {
		return f.gotten, true
	}
	return nil, false
}

func (f *Feed) SetGotten(word *value.Cell, resolved *value.Cell) {
	f.gottenWord = word
	f.gotten = resolved
}

// InvalidateGotten drops the gotten cache; called on action invocation or
// context growth.
func (f *Feed) InvalidateGotten() {
	f.gottenWord = nil
	f.gotten = nil
}

// HitBarrier transitions the feed into barrier-hit state (spec §4.5):
// consumed by a bar token or an empty group.
func (f *Feed) HitBarrier() {
	f.BarrierHit = true
}

// RequireNotBarrier is the check an argument gather makes before consuming
// a value; it raises MissingArgument cleanly per spec §4.5 even though the
// feed has already advanced past the barrier.
func (f *Feed) RequireNotBarrier() {
	if f.BarrierHit {
		coreerr.Fail(coreerr.MissingArgument, "argument gather met a barrier")
	}
}
