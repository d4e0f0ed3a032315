// Package eval is the Frame/Evaluator component of spec §4.5–§4.6: a
// single prefetching evaluation step driven off a feed.Feed, with enfix
// deferral, invisibility, argument fulfillment (including out-of-order
// refinement pickups), and a path-dispatch sub-mode.
package eval

import (
	"rebcore/internal/coreerr"
	"rebcore/internal/feed"
	"rebcore/internal/value"
)

// State is the frame's coarse evaluator state (spec §3: "flags (state byte
// 8..15 for coarse evaluator state)"). The numeric range named in spec is
// an implementation detail of the packed-header source; what matters here
// is the same closed set of states.
type State byte

const (
	StateInitialEntry State = iota
	StateLookingAhead
	StateReevaluating
	StateFulfillingArg
	StatePickups
)

// argSlot tracks one parameter's fulfillment progress during an action
// invocation.
type argSlot struct {
	param   value.Param
	value   value.Cell
	filled  bool
	pending bool // encountered out of declaration order; revisit in pickups
}

// Frame is spec §4.5/§3's per-invocation evaluator state.
type Frame struct {
	State State
	Feed  *feed.Feed
	Spare value.Cell

	Prior *Frame

	// DataStack is the frame's scratch/data stack. Nothing in this package
	// pushes to it; path dispatch collects refinement words in
	// PendingRefinements instead.
	DataStack []value.Cell

	Out *value.Cell

	Specifier value.Specifier

	Action        *value.Action
	ActionVarlist *value.Context
	Label         *value.Symbol

	args          []argSlot
	cursor        int
	fulfillingArg bool

	// PendingRefinements is the canonized-word scratch stack spec §4.6
	// describes path dispatch pushing to as it walks an action path's
	// refinement steps, consumed by fulfillArgs' pickups pass in push
	// order, which is the order the callsite wrote the refinements.
	PendingRefinements []*value.Symbol

	cacheNoLookahead bool

	// Symbol table threaded through for actions that need to
	// extend a context while running (e.g. collecting set-words).
	Symbols *value.SymbolTable
}

// New creates a top-level Frame reading from f under specifier, writing
// results into out.
func New(f *feed.Feed, specifier value.Specifier, out *value.Cell, symbols *value.SymbolTable) *Frame {
	return &Frame{Feed: f, Specifier: specifier, Out: out, Symbols: symbols}
}

// Push creates a nested Frame sharing this frame's feed (spec §5: "A
// subframe inherits the parent's feed; advancing the feed in the subframe
// advances it for the parent"), writing into its own spare cell by
// default.
func (f *Frame) Push() *Frame {
	child := &Frame{
		Feed:      f.Feed,
		Specifier: f.Specifier,
		Prior:     f,
		Symbols:   f.Symbols,
	}
	child.Out = &child.Spare
	return child
}

// ArgCell, NumArgs, OutCell, and Spec implement value.Frame, the narrow
// interface a native Dispatcher sees instead of the full Frame type (to
// avoid an import cycle between package value and package eval).
func (f *Frame) ArgCell(index int) *value.Cell { return &f.args[index-1].value }
func (f *Frame) NumArgs() int                  { return len(f.args) }
func (f *Frame) OutCell() *value.Cell          { return f.Out }
func (f *Frame) Spec() value.Specifier         { return f.Specifier }

// MarkArgs exposes every argument slot — filled or not — for a GC's mark
// pass during a pickups run (spec §4.5: "During pickups, the GC must mark
// all argument slots, not only those below the current cursor"). This is
// the explicit accessor SPEC_FULL.md commits to rather than leaving the
// contract implicit.
func (f *Frame) MarkArgs() []*value.Cell {
	out := make([]*value.Cell, len(f.args))
	for i := range f.args {
		out[i] = &f.args[i].value
	}
	return out
}

// checkDepth is the frame-depth guard; this is as close to spec §7's
// Stack-overflow condition as a Go port gets without inspecting the real
// OS stack pointer (out of scope here — Go manages its own growable
// goroutine stacks).
const maxFrameDepth = 4000

func (f *Frame) depth() int {
	n := 0
	for cur := f; cur != nil; cur = cur.Prior {
		n++
	}
	return n
}

func (f *Frame) checkDepth() {
	if f.depth() > maxFrameDepth {
		coreerr.Fail(coreerr.StackOverflow, "evaluator frame depth exceeded")
	}
}
