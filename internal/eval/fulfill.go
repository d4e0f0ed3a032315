package eval

import (
	"rebcore/internal/coreerr"
	"rebcore/internal/value"
)

// fulfillArgs walks callFrame.Action's paramlist in declaration order,
// gathering one argument per parameter per spec §4.5: a normal parameter
// pushes a subframe to evaluate the next expression; a hard-quote
// parameter copies the next feed cell unevaluated; a soft-quote parameter
// evaluates only if the next cell is a group or get-word; local/output/
// return parameters are not read from the feed at all. Refinement
// parameters are resolved against callFrame.PendingRefinements, the
// canonized-word scratch stack path dispatch (path.go) pushes in §4.6.
//
// A parameter gated behind a refinement (Param.Gate) cannot be gathered
// during this first, declaration-order walk: its feed position depends on
// where the callsite placed that refinement, which need not match
// declaration order at all (`insert/part/only series value limit` gathers
// /part's "limit" before /only's zero args, even if /only is declared
// first). So the first pass only resolves which refinements are active and
// gathers every ungated parameter; every active gated parameter is left
// `pending` and picked up in a second pass, walking callFrame.PendingRefinements
// in the order the callsite actually specified them (spec §4.5's "pickup
// passes for out-of-order refinements").
func (callFrame *Frame) fulfillArgs(firstArgPreset *value.Cell) error {
	params := callFrame.Action.Params
	callFrame.args = make([]argSlot, len(params))

	used := make(map[*value.Symbol]bool, len(callFrame.PendingRefinements))
	for _, s := range callFrame.PendingRefinements {
		used[s.Canon()] = true
	}

	start := 0
	if firstArgPreset != nil {
		callFrame.args[0] = argSlot{param: params[0], value: *firstArgPreset, filled: true}
		start = 1
	}

	for i := start; i < len(params); i++ {
		p := params[i]
		callFrame.args[i].param = p

		switch {
		case p.Class == value.ParamLocal || p.Class == value.ParamOutput || p.Class == value.ParamReturn:
			var c value.Cell
			c.InitNull()
			callFrame.args[i].value = c
			callFrame.args[i].filled = true

		case p.Class == value.ParamRefinement:
			var c value.Cell
			c.InitLogic(used[p.Symbol.Canon()])
			callFrame.args[i].value = c
			callFrame.args[i].filled = true

		case p.Gate != nil:
			if !used[p.Gate.Canon()] {
				var c value.Cell
				c.InitNull()
				callFrame.args[i].value = c
				callFrame.args[i].filled = true
			} else {
				callFrame.args[i].pending = true
			}

		default:
			if err := callFrame.fulfillOneDataParam(i, p); err != nil {
				return err
			}
		}
	}

	return callFrame.runPickups(params, start)
}

// runPickups is fulfillArgs' second pass: for each refinement in the order
// the callsite actually wrote it, gather the data parameters gated behind
// that refinement, in their own declared order. A refinement with no
// pending gated parameters (no trailing data args) costs nothing here.
func (callFrame *Frame) runPickups(params []value.Param, start int) error {
	prevState := callFrame.State
	callFrame.State = StatePickups
	defer func() { callFrame.State = prevState }()

	for _, refSym := range callFrame.PendingRefinements {
		canon := refSym.Canon()
		for i := start; i < len(params); i++ {
			if !callFrame.args[i].pending || params[i].Gate.Canon() != canon {
				continue
			}
			if err := callFrame.fulfillOneDataParam(i, params[i]); err != nil {
				return err
			}
			callFrame.args[i].pending = false
		}
	}
	return nil
}

func (callFrame *Frame) fulfillOneDataParam(i int, p value.Param) error {
	callFrame.Feed.RequireNotBarrier()
	if callFrame.Feed.IsEnd() {
		coreerr.Fail(coreerr.MissingArgument, "action call ran out of arguments", p.Symbol.Text())
	}

	switch p.Class {
	case value.ParamHardQuote, value.ParamLiteral:
		c := callFrame.Feed.FetchNext(true)
		callFrame.args[i].value = c
		callFrame.args[i].filled = true
		return nil

	case value.ParamSoftQuote:
		cur := callFrame.Feed.Current
		if cur.Kind() == value.KindGroup || cur.Kind() == value.KindGetWord {
			v, err := callFrame.evalOneArgExpr()
			if err != nil {
				return err
			}
			callFrame.args[i].value = v
			callFrame.args[i].filled = true
			return nil
		}
		c := callFrame.Feed.FetchNext(true)
		callFrame.args[i].value = c
		callFrame.args[i].filled = true
		return nil

	default: // ParamNormal, ParamMediumQuote (treated as evaluated here)
		v, err := callFrame.evalOneArgExpr()
		if err != nil {
			return err
		}
		v.Decay()
		callFrame.args[i].value = v
		callFrame.args[i].filled = true
		return nil
	}
}

// evalOneArgExpr evaluates the next expression on the shared feed into a
// fresh subframe flagged fulfilling-arg, so that a left-quoting/deferred
// enfix operator encountered mid-gather can detect it (spec §4.5 point 3).
func (callFrame *Frame) evalOneArgExpr() (value.Cell, error) {
	sub := callFrame.Push()
	sub.fulfillingArg = true
	var result value.Cell
	var retErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if ce, ok := r.(*coreerr.Error); ok {
					retErr = ce
					return
				}
				panic(r)
			}
		}()
		sub.stepOnce()
		result = *sub.Out
	}()
	return result, retErr
}
