package eval

import (
	"rebcore/internal/coreerr"
	"rebcore/internal/feed"
	"rebcore/internal/value"
)

// Run drives a fresh top-level Frame over fd to completion, returning the
// last visible result (spec §4.5: successive expressions overwrite Out;
// an invisible expression leaves it untouched). Non-local errors raised
// anywhere during evaluation are trapped here, matching the teacher's
// panic-for-fatal-conditions idiom turned back into an error return at the
// API boundary.
func Run(fd *feed.Feed, specifier value.Specifier, symbols *value.SymbolTable) (result value.Cell, err error) {
	err = coreerr.Trap(func() {
		var out value.Cell
		out.InitNull()
		fr := New(fd, specifier, &out, symbols)
		for !fd.IsEnd() {
			fr.stepOnce()
		}
		result = out
	})
	return
}

// stepOnce runs spec §4.5's evaluator step to completion: it produces
// exactly one visible result in f.Out, silently absorbing any number of
// leading invisible expressions (comments, barriers, invisible actions)
// along the way, and performs enfix lookahead once a visible result is in
// hand.
func (f *Frame) stepOnce() {
	f.checkDepth()
	for {
		if f.fulfillingArg {
			// An argument gather that ran into a bar or an empty group
			// reports the argument as missing.
			f.Feed.RequireNotBarrier()
		}
		if f.Feed.IsEnd() {
			return
		}
		if f.Feed.Current.Kind() == value.KindBar {
			f.Feed.FetchNext(false)
			f.Feed.HitBarrier()
			continue
		}

		// A barrier only blocks the argument-gather immediately abutting it
		// (spec §4.5); once control reaches here it is about to dispatch a
		// brand new expression, so any barrier already consumed has done its
		// job and must not leak into gathers deeper in that new expression.
		f.Feed.BarrierHit = false

		f.Out.SetFlag(value.FlagOutStale)
		visible := f.dispatchOne()
		if !visible {
			// Invisible step: Out is left exactly as dispatchOne found it
			// (spec §4.5: "the evaluator preserves whatever value the
			// output cell held before the step and continues"), and
			// lookahead after an invisible step is suppressed the same
			// way a barrier suppresses it.
			f.Feed.NoLookahead = true
			continue
		}
		f.Out.ClearFlag(value.FlagOutStale)
		f.maybeEnfixLookahead()
		return
	}
}

// dispatchOne classifies the current feed cell and evaluates it, reporting
// whether it produced a visible result. The "looking-ahead" state exists so
// an inert fast path still performs the same post-result enfix check as an
// evaluated one; this port folds that into dispatchOne always returning
// before stepOnce's single maybeEnfixLookahead call rather than keeping a
// separate looking-ahead re-entry, since Go doesn't need the goto-style
// state resumption the teacher's switch-based interpreter loop uses.
func (f *Frame) dispatchOne() bool {
	cur := f.Feed.Current
	k := cur.Kind()

	switch {
	case k == value.KindSetWord || k == value.KindSetPath:
		return f.evalSetWord()
	case value.IsAnyWord(k):
		return f.evalWord()
	case k == value.KindGroup:
		return f.evalGroup()
	case value.IsAnyPath(k):
		return f.evalPath()
	default:
		return f.evalInert()
	}
}

// evalInert implements spec §4.5's initial-entry inert fast path: copy the
// cell to Out (derelativized) and advance.
func (f *Frame) evalInert() bool {
	c := f.Feed.FetchNext(true)
	value.Derelativize(f.Out, &c, f.Specifier)
	return true
}

// evalWord resolves a word, invoking it if it names an action, otherwise
// copying its value.
func (f *Frame) evalWord() bool {
	wordCell := f.Feed.FetchNext(true)
	resolved := value.LookupWordMayFail(&wordCell, f.Specifier)

	if resolved.Kind() == value.KindAction {
		return f.invokeWordAction(resolved.AsAction(), wordCell.Spelling(), nil)
	}

	value.Derelativize(f.Out, resolved, f.Specifier)
	return true
}

// evalSetWord evaluates the following expression and writes it into the
// set-word's or set-path's target slot, decaying any isotope on assignment
// (spec §4.5).
func (f *Frame) evalSetWord() bool {
	target := f.Feed.FetchNext(true)

	sub := f.Push()
	sub.stepOnce()
	result := *sub.Out
	result.Decay()

	if target.Kind() == value.KindSetPath {
		pathSpecifier := value.DeriveSpecifier(f.Specifier, &target)
		pokePath(&target, pathSpecifier, result)
	} else {
		slot := value.LookupMutableWordMayFail(&target, f.Specifier)
		*slot = result
	}

	value.Derelativize(f.Out, &result, f.Specifier)
	return true
}

// evalGroup runs a parenthesized subexpression to completion as its own
// nested evaluation (spec §4.5); an empty group is a barrier, matching
// spec's "Barriers: a bar token or an empty group."
func (f *Frame) evalGroup() bool {
	groupCell := f.Feed.FetchNext(true)
	arr := groupCell.AsArray()
	if arr.Len() == 0 {
		f.Feed.HitBarrier()
		return false
	}

	innerSpecifier := value.DeriveSpecifier(f.Specifier, &groupCell)
	innerFeed := feed.NewArrayFeed(arr, f.Symbols)
	result, err := Run(innerFeed, innerSpecifier, f.Symbols)
	if err != nil {
		panic(err)
	}
	*f.Out = result
	return true
}

// maybeEnfixLookahead implements spec §4.5's enfix discipline: after a
// visible result, peek at the next feed cell without consuming it unless it
// resolves to an enfix action, in which case that action runs with Out's
// current value supplied as its already-fulfilled first argument. It loops
// so a chain of several enfix ops in a row (`1 + 2 * 3`) keeps folding left
// to right rather than stopping after the first.
//
// A subframe that exists only to gather one argument for an enclosing call
// (fulfillingArg) never performs this lookahead itself: an enfix op found
// there is left unconsumed on the feed for the *enclosing* call's own
// post-dispatch lookahead to pick up against its already-accumulated
// result. That deferral is exactly what gives Rebol-family infix its
// no-precedence, strictly-left-to-right reading: `1 + 2 * 3` computes
// `1 + 2` first (the `*` is left alone while gathering `+`'s right
// argument), then the outer loop applies `* 3` to that sum, giving 9, not
// `1 + (2 * 3)`. An action marked NoDefer is the one case spec §4.5 point 3
// carves out as unable to defer at all; encountered inside an argument
// gather, there is nowhere sound left to bind it, so that's an error.
func (f *Frame) maybeEnfixLookahead() {
	for {
		if f.Feed.NoLookahead {
			f.Feed.NoLookahead = false
			return
		}
		if f.Feed.IsEnd() {
			return
		}
		nxt := f.Feed.Current
		if !value.IsAnyWord(nxt.Kind()) || value.IsSetWordKind(nxt.Kind()) {
			return
		}

		ctx, idx, ok := value.GetWordContext(&nxt, f.Specifier)
		if !ok {
			return
		}
		candidate := ctx.Slot(idx)
		if candidate.Kind() != value.KindAction {
			return
		}
		act := candidate.AsAction()
		if !act.Enfix {
			return
		}

		if f.fulfillingArg {
			if act.NoDefer {
				coreerr.Fail(coreerr.DeferredEnfixError, "enfix operator cannot bind across an argument boundary", act)
			}
			return
		}

		f.Feed.FetchNext(false)

		left := *f.Out
		f.invokeWordAction(act, nxt.Spelling(), &left)
	}
}

// invokeWordAction builds an invocation frame for act, gathers its
// arguments (fulfill.go), runs it, and writes the result to f.Out.
// firstArgPreset, when non-nil, supplies an already-evaluated left-hand
// argument for an enfix call instead of gathering the first parameter from
// the feed.
func (f *Frame) invokeWordAction(act *value.Action, label *value.Symbol, firstArgPreset *value.Cell) bool {
	f.Feed.InvalidateGotten()

	callFrame := f.Push()
	callFrame.Action = act
	callFrame.Label = label

	if err := callFrame.fulfillArgs(firstArgPreset); err != nil {
		panic(err)
	}

	keylist := value.NewKeylist(paramSymbols(act.Params), nil)
	ctx := value.NewContext(value.ArchFrame, keylist, len(act.Params))
	ctx.FrameAction = act
	for i, slot := range callFrame.args {
		*ctx.Slot(i + 1) = slot.value
	}
	callFrame.ActionVarlist = ctx

	var produced value.Cell
	callFrame.Out = &produced

	if act.Native != nil {
		if err := act.Native(callFrame); err != nil {
			raiseDispatchErr(err)
		}
	} else {
		bodySpecifier := value.FrameSpecifier(ctx)
		bodyFeed := feed.NewArrayFeed(act.Body, f.Symbols)
		result, err := Run(bodyFeed, bodySpecifier, f.Symbols)
		if err != nil {
			panic(err)
		}
		produced = result
	}

	// Invisible actions (spec §4.5) leave f.Out exactly as the caller found
	// it; only a visible action's result overwrites it.
	if act.Invisible() {
		return false
	}
	*f.Out = produced
	return true
}

func raiseDispatchErr(err error) {
	if ce, ok := err.(*coreerr.Error); ok {
		panic(ce)
	}
	panic(err)
}

func paramSymbols(params []value.Param) []*value.Symbol {
	out := make([]*value.Symbol, len(params))
	for i, p := range params {
		out[i] = p.Symbol
	}
	return out
}
