package value

import "rebcore/internal/coreerr"

// PatchKind distinguishes a patch that overrides every reference to the
// word it names from one (set-word patch) that only overrides set-word
// cells (spec §3: "encoding whether this layer overrides all references or
// only set-word references").
type PatchKind byte

const (
	PatchWord PatchKind = iota
	PatchSetWord
)

// patchTerminator is what a patch chain's Next may point to once it stops
// being another *Patch: either a *Context (a frame varlist resolving the
// chain) or nil (an open chain awaiting a frame).
type patchTerminator = *Context

// Patch is one virtual-binding overlay layer (spec §3): a singular Array
// (modeled here as just the fields a singular array would carry — see the
// series.go note on why Binding lives on cells, not arrays) whose "cell" is
// a word bound to Context at index Limit, with Next continuing the chain.
// Patches sharing the same Context are linked into a circular variants
// list (VariantNext) so that chains differing in only one layer can be
// de-duplicated by identity (spec §4.3).
type Patch struct {
	node Node

	Context *Context
	Limit   int // context length at patch-creation time (spec §3)
	Kind    PatchKind
	Next    *Patch          // continues the chain...
	Frame   patchTerminator // ...or this terminates it at a frame varlist
	Reused  bool

	// VariantNext threads this patch into context.mostRecentPatch's
	// circular variants ring.
	VariantNext *Patch
}

// MakeOrReusePatch implements spec §4.3's make_patch: it returns an
// existing variant of an existing patch where possible, allocating a new
// one only when no existing patch in context's variants ring matches.
func MakeOrReusePatch(context *Context, limit int, next *Patch, frame patchTerminator, kind PatchKind) *Patch {
	if limit == 0 {
		// "limit == 0 returns next unchanged (empty overlays are no-ops)."
		return next
	}
	if context.mostRecentPatch != nil {
		start := context.mostRecentPatch
		cur := start
		for {
			if cur.Next == next && cur.Frame == frame && cur.Context == context && cur.Limit == limit && cur.Kind == kind {
				cur.Reused = true
				return cur
			}
			cur = cur.VariantNext
			if cur == start {
				break
			}
		}
	}
	p := &Patch{
		node:    Node{IsNode: true, IsManaged: true},
		Context: context,
		Limit:   limit,
		Kind:    kind,
		Next:    next,
		Frame:   frame,
	}
	spliceVariant(context, p)
	context.mostRecentPatch = p
	return p
}

func spliceVariant(context *Context, p *Patch) {
	if context.mostRecentPatch == nil {
		p.VariantNext = p
		return
	}
	head := context.mostRecentPatch
	p.VariantNext = head.VariantNext
	head.VariantNext = p
}

// Terminator returns whatever this chain's Next ultimately bottoms out at:
// either a *Context (frame-resolved) or nil (still open), matching spec
// §4.3's invariant that "every reachable chain terminates at a frame
// varlist or at null."
func (p *Patch) Terminator() *Context {
	cur := p
	for cur.Next != nil {
		cur = cur.Next
	}
	return cur.Frame
}

// Compatible reports whether this patch's kind is allowed to resolve word,
// per spec §4.2: "a set-word patch only overrides a set-word cell."
func (p *Patch) Compatible(word *Cell) bool {
	if p.Kind == PatchSetWord {
		return IsSetWordKind(word.Kind())
	}
	return true
}

// errIncompatiblePatch, reported through coreerr, is the freshly-decided
// answer to spec §9 Open Question (a): attaching a chain whose terminator
// is already bound to a different frame than the one being attached is a
// hard error, not silent overwrite or an unreachable-code panic string.
func errIncompatiblePatch(have, want *Context) {
	coreerr.Fail(coreerr.IncompatiblePatch,
		"virtual-binding chain terminator already resolved to a different frame",
		have, want)
}
