// Package coreerr defines the closed set of error kinds the binding and
// evaluation core can raise (spec §7) and the non-local propagation
// discipline used to surface them: every failure point calls Fail, which
// panics with a *Error; the one trap boundary the core exposes is Trap,
// which recovers a *Error into an ordinary error return and lets anything
// else (a genuine programmer bug) keep unwinding.
package coreerr

import (
	"fmt"
	"strings"
)

// Kind is the closed set of error kinds named in spec §7, plus two this
// port adds: IncompatiblePatch and BinderLeak. New kinds are not added
// casually — each one corresponds to a specific invariant violation
// the core itself can detect.
type Kind string

const (
	UnboundWord        Kind = "unbound-word"
	NoRelative         Kind = "no-relative"
	Protected          Kind = "protected"
	BadBranchType      Kind = "bad-branch-type"
	NeedNonVoid        Kind = "need-non-void"
	ApplyTooMany       Kind = "apply-too-many"
	MissingArgument    Kind = "missing-argument"
	DeferredEnfixError Kind = "deferred-enfix-error"
	OutOfMemory        Kind = "out-of-memory"
	StackOverflow      Kind = "stack-overflow"
	IncompatiblePatch  Kind = "incompatible-patch"
	BinderLeak         Kind = "binder-leak"
)

// Error is a first-class, re-raisable context: a kind code plus a reified
// argument list, matching spec §7 ("errors carry a kind code and a reified
// argument list; the error itself is a first-class context and may be
// re-raised").
type Error struct {
	Kind    Kind
	Message string
	Args    []any
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	for _, a := range e.Args {
		sb.WriteString(fmt.Sprintf(" %v", a))
	}
	return sb.String()
}

// New constructs an *Error without raising it.
func New(kind Kind, message string, args ...any) *Error {
	return &Error{Kind: kind, Message: message, Args: args}
}

// Fail raises kind as a non-local exit, unwinding every Go call frame
// between the caller and the nearest Trap. This mirrors the teacher's use
// of bare panic() for "this should never happen in a well-formed program"
// conditions (internal/vm/vm.go: panic("stack overflow"), panic("division
// by zero")) and spec §9's guidance to reserve unwinding for truly
// exceptional cases while giving every raised condition a typed payload.
func Fail(kind Kind, message string, args ...any) {
	panic(New(kind, message, args...))
}

// FailErr re-raises an already-constructed *Error.
func FailErr(e *Error) {
	panic(e)
}

// Trap runs fn and recovers a *Error panic into a normal error return.
// Any other panic (a bug, not a modeled failure) is not this package's to
// catch and is re-panicked — per spec §7, "inside the core, no error is
// caught; all propagate" except at trap boundaries the host installs, and
// Trap is the one such boundary this core ships.
func Trap(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*Error); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}

// TrapValue is Trap for functions that also produce a value.
func TrapValue[T any](fn func() T) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*Error); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()
	result = fn()
	return result, nil
}
