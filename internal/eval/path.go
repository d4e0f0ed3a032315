package eval

import (
	"rebcore/internal/coreerr"
	"rebcore/internal/feed"
	"rebcore/internal/value"
)

// evalPath implements spec §4.6's path-dispatch sub-mode for a plain path
// or get-path: the first step resolves to either an object/context (in
// which case later word steps are ordinary field pickers) or an action (in
// which case later word steps are refinement names, collected left to
// right and handed to the call as PendingRefinements, which fulfill.go's
// pickups pass walks in that same callsite order).
func (f *Frame) evalPath() bool {
	pathCell := f.Feed.FetchNext(true)
	steps := pathCell.AsArray()
	if steps.Len() == 0 {
		coreerr.Fail(coreerr.BadBranchType, "empty path")
	}
	pathSpecifier := value.DeriveSpecifier(f.Specifier, &pathCell)

	pvs, refinements := f.resolvePathHead(steps, pathSpecifier)

	if pvs.Kind() == value.KindAction {
		act := pvs.AsAction()
		sub := f.Push()
		sub.PendingRefinements = refinements
		sub.Out = f.Out
		return sub.invokeWordAction(act, pathLabel(steps, pathSpecifier), nil)
	}

	for i := 1; i < steps.Len(); i++ {
		picker := derelativizeStep(steps.At(i), pathSpecifier)
		pvs = pickOne(pvs, &picker)
	}
	value.Derelativize(f.Out, &pvs, value.Specified)
	return true
}

// resolvePathHead resolves only the path's first step: a group step is
// evaluated once and its result cached on the group cell, a word step is
// looked up through its binding, and anything else is derelativized. No
// later step is picked here; evalPath applies those to a non-action head.
// When the head resolves to an action, every later step must be a word and
// is collected as a refinement symbol, left to right; they are returned
// alongside the head value for the caller to hand to fulfillArgs.
func (f *Frame) resolvePathHead(steps *value.Array, specifier value.Specifier) (value.Cell, []*value.Symbol) {
	var head value.Cell
	var refinements []*value.Symbol

	first := steps.At(0)
	switch {
	case first.Kind() == value.KindGroup:
		if cached, ok := first.CachedPathGroupResult(); ok {
			head = cached
			break
		}
		inner := value.DeriveSpecifier(specifier, first)
		innerFeed := feed.NewArrayFeed(first.AsArray(), f.Symbols)
		result, err := Run(innerFeed, inner, f.Symbols)
		if err != nil {
			panic(err)
		}
		first.SetCachedPathGroupResult(result)
		head = result
	case value.IsAnyWord(first.Kind()):
		w := *first
		resolved := value.LookupWordMayFail(&w, specifier)
		value.Derelativize(&head, resolved, value.Specified)
	default:
		head = derelativizeStep(first, specifier)
	}

	if head.Kind() != value.KindAction {
		return head, nil
	}
	for i := 1; i < steps.Len(); i++ {
		step := steps.At(i)
		if !value.IsAnyWord(step.Kind()) {
			coreerr.Fail(coreerr.BadBranchType, "non-word refinement step in action path")
		}
		refinements = append(refinements, step.Spelling())
	}
	return head, refinements
}

func derelativizeStep(step *value.Cell, specifier value.Specifier) value.Cell {
	var c value.Cell
	value.Derelativize(&c, step, specifier)
	return c
}

// pickOne resolves one object/context field step against pvs, the
// path-frame value currently being picked from (spec §4.6's "pvs" name).
func pickOne(pvs value.Cell, picker *value.Cell) value.Cell {
	switch pvs.Kind() {
	case value.KindObject, value.KindFrame, value.KindModule, value.KindError:
		ctx := pvs.AsContext()
		if !value.IsAnyWord(picker.Kind()) {
			coreerr.Fail(coreerr.BadBranchType, "path step into a context must be a word")
		}
		idx := ctx.Keylist.IndexOf(picker.Spelling())
		if idx == 0 {
			coreerr.Fail(coreerr.UnboundWord, "no such field", picker.Spelling().Text())
		}
		return *ctx.Slot(idx)
	default:
		coreerr.Fail(coreerr.BadBranchType, "value does not support path picking")
		panic("unreachable")
	}
}

// pokePath resolves every step but the last as a picker chain, then writes
// newVal into the final step's slot (spec §4.6's set-path poke).
func pokePath(pathCell *value.Cell, specifier value.Specifier, newVal value.Cell) {
	steps := pathCell.AsArray()
	if steps.Len() == 0 {
		coreerr.Fail(coreerr.BadBranchType, "empty set-path")
	}

	first := steps.At(0)
	if !value.IsAnyWord(first.Kind()) {
		coreerr.Fail(coreerr.BadBranchType, "set-path head must be a word")
	}
	w := *first
	head := value.LookupMutableWordMayFail(&w, specifier)

	if steps.Len() == 1 {
		*head = newVal
		return
	}

	pvs := *head
	for i := 1; i < steps.Len()-1; i++ {
		picker := derelativizeStep(steps.At(i), specifier)
		pvs = pickOne(pvs, &picker)
	}

	lastPicker := derelativizeStep(steps.At(steps.Len()-1), specifier)
	if pvs.Kind() != value.KindObject && pvs.Kind() != value.KindFrame &&
		pvs.Kind() != value.KindModule && pvs.Kind() != value.KindError {
		coreerr.Fail(coreerr.BadBranchType, "value does not support path poking")
	}
	ctx := pvs.AsContext()
	idx := ctx.Keylist.IndexOf(lastPicker.Spelling())
	if idx == 0 {
		coreerr.Fail(coreerr.UnboundWord, "no such field", lastPicker.Spelling().Text())
	}
	*ctx.Slot(idx) = newVal
}

func pathLabel(steps *value.Array, specifier value.Specifier) *value.Symbol {
	first := steps.At(0)
	if value.IsAnyWord(first.Kind()) {
		return first.Spelling()
	}
	return nil
}
