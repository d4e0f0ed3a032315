package value

import "rebcore/internal/coreerr"

// GetWordContext implements spec §4.2's get_word_context: resolve word
// under specifier to a (context, 1-based slot index) pair, or report
// unbound. The four resolution steps run in the order spec §4.2 lists
// them; steps 1/2 (virtual cache hit, virtual linear search) only apply
// when specifier is a patch chain.
func GetWordContext(word *Cell, specifier Specifier) (ctx *Context, index int, ok bool) {
	if specifier.Kind == SpecPatch {
		if ctx, index, found := scanPatchChain(word, specifier.Patch); found {
			return ctx, index, true
		}
	}

	b := word.Binding()
	effFrame := specifier.effectiveFrame()

	switch b.Kind {
	case BindSpecific:
		ctx := b.Context
		if effFrame != nil && IsOverridingContext(ctx.Keylist, effFrame.Keylist) {
			ctx = effFrame
		}
		return ctx, b.Index, true

	case BindRelative:
		if effFrame == nil || effFrame.FrameAction == nil {
			return nil, 0, false
		}
		if effFrame.FrameAction != b.Action && !effFrame.FrameAction.IsUnderlyingDescendant(b.Action) {
			return nil, 0, false
		}
		return effFrame, b.Index, true

	default: // BindUnbound, BindVirtual-without-a-patch-specifier
		return nil, 0, false
	}
}

// scanPatchChain implements spec §4.2 steps 1 and 2: a cache check against
// word's own ⟨specifier-node, modular-index⟩ cache pair, falling back to a
// linear scan of chain that updates the cache (hit or miss) as it goes.
//
// The §9 Open Question (b) decision lives here: a patch whose target slot
// is marked "reuse" on its context is never consulted for, nor allowed to
// populate, the per-word cache — every lookup through a reuse slot is a
// fresh linear scan, so a stale cache entry from one enumeration iteration
// can never alias the next iteration's rebound variable.
func scanPatchChain(word *Cell, chain *Patch) (*Context, int, bool) {
	cache := word.virtualCache()
	if cache.specifier == chain {
		if cache.miss {
			return nil, 0, false
		}
		if cache.index != 0 && !chain.Context.IsReuseSlot(cache.index) {
			return resolveFromCache(word, chain, cache.index)
		}
	}

	spelling := word.Spelling()
	cur := chain
	cacheable := true
	for cur != nil {
		if cur.Compatible(word) {
			idx := cur.Context.Keylist.IndexOf(spelling)
			if idx != 0 && idx <= cur.Limit {
				if cur.Context.IsReuseSlot(idx) {
					// matched through a reuse slot: valid this lookup, but
					// not safe to cache (see doc comment above).
					cacheable = false
				} else if cacheable {
					cache.specifier = chain
					cache.index = idx
					cache.miss = false
				}
				return cur.Context, idx, true
			}
		}
		cur = cur.Next
	}
	if cacheable {
		cache.specifier = chain
		cache.index = 0
		cache.miss = true
	}
	return nil, 0, false
}

func resolveFromCache(word *Cell, chain *Patch, cachedIndex int) (*Context, int, bool) {
	// Re-walk to the patch that produced cachedIndex to recover its
	// Context pointer (the cache stores only the modular index, per spec
	// §4.2: "walk the cached patch chain from that modular index").
	for cur := chain; cur != nil; cur = cur.Next {
		if cur.Compatible(word) {
			idx := cur.Context.Keylist.IndexOf(word.Spelling())
			if idx == cachedIndex && idx <= cur.Limit {
				return cur.Context, idx, true
			}
		}
	}
	return nil, 0, false
}

// LookupWordMayFail resolves word and returns a read-only pointer to its
// slot, raising UnboundWord if resolution fails.
func LookupWordMayFail(word *Cell, specifier Specifier) *Cell {
	ctx, idx, ok := GetWordContext(word, specifier)
	if !ok {
		coreerr.Fail(coreerr.UnboundWord, "word has no binding", word.Spelling().Text())
	}
	return ctx.Slot(idx)
}

// LookupMutableWordMayFail additionally refuses a protected cell or a
// read-only-marked context slot.
func LookupMutableWordMayFail(word *Cell, specifier Specifier) *Cell {
	cell := LookupWordMayFail(word, specifier)
	if cell.IsProtected() {
		coreerr.Fail(coreerr.Protected, "cannot write a protected variable", word.Spelling().Text())
	}
	return cell
}

// GetWordMayFail dereferences word and errors on a void result (spec §4.2
// / §7: NeedNonVoid).
func GetWordMayFail(word *Cell, specifier Specifier) Cell {
	cell := LookupWordMayFail(word, specifier)
	if cell.IsEnd() {
		coreerr.Fail(coreerr.NeedNonVoid, "word resolved to no value", word.Spelling().Text())
	}
	return *cell
}

// VirtualBindPatchify attaches a single overlay layer to arrayCell in
// place (spec §6: "attaches an overlay to an array in place"), by
// reconstructing its binding as a patch chain with one new layer in front.
func VirtualBindPatchify(arrayCell *Cell, context *Context, kind PatchKind) {
	var base *Patch
	if arrayCell.Binding().Kind == BindVirtual {
		base = arrayCell.Binding().Patch
	}
	p := MakeOrReusePatch(context, context.Len(), base, base.terminatorOrNil(), kind)
	arrayCell.SetBinding(VirtualBinding(p))
}

func (p *Patch) terminatorOrNil() patchTerminator {
	if p == nil {
		return nil
	}
	return p.Terminator()
}

// Derelativize produces a fully specific cell from source plus specifier
// (spec §4.5/§6): it rewrites any relative or virtual binding into a
// specific one, eagerly resolving word lookups (so patch references don't
// spread) and, for arrays, attaching whatever patch chain DeriveSpecifier
// computes. Const-ness propagates: a source's own const flag survives
// copying, and a frame-derived const flag is added only if the cell was
// not explicitly marked mutable.
func Derelativize(dest *Cell, source *Cell, specifier Specifier) *Cell {
	*dest = *source

	if IsAnyWord(source.Kind()) {
		if ctx, idx, ok := GetWordContext(source, specifier); ok {
			dest.SetBinding(SpecificBinding(ctx, idx))
		} else {
			dest.SetBinding(Unbound)
		}
	} else if IsAnyArray(source.Kind()) || IsAnyPath(source.Kind()) {
		dest.SetBinding(specifierBindingFor(DeriveSpecifier(specifier, source)))
	}

	if specifier.Kind == SpecFrame && !dest.Flags().Has(FlagExplicitlyMutable) {
		dest.SetFlag(FlagConst)
	}
	return dest
}

func specifierBindingFor(s Specifier) Binding {
	switch s.Kind {
	case SpecFrame:
		return SpecificBinding(s.Frame, 0)
	case SpecPatch:
		return VirtualBinding(s.Patch)
	default:
		return Unbound
	}
}

// BindFlags control BindValuesCore's recursion and collection behavior
// (spec §6).
type BindFlags byte

const (
	BindDeep BindFlags = 1 << iota
	BindCollectSet
	BindCollectAny
)

// BindValuesCore is the traditional mutative bind of spec §6: for each
// any-word cell in cells whose spelling is in context's keylist, rewrite
// its binding to context directly (not via a virtual overlay). There is no
// per-kind filter beyond any-word. With BindDeep set, it recurses into
// nested arrays. A word whose spelling is not in context is left unchanged,
// unless BindCollectAny (any word) or BindCollectSet (set-words only) is
// set: then context grows a new slot for it, the word is bound there, and
// the new index is recorded on binder when binder is non-nil.
func BindValuesCore(cells []Cell, context *Context, flags BindFlags, binder *Binder) {
	for i := range cells {
		c := &cells[i]
		switch {
		case IsAnyWord(c.Kind()):
			bindOneWord(c, context, flags, binder)
		case IsAnyArray(c.Kind()) && flags&BindDeep != 0:
			if arr := c.AsArray(); arr != nil {
				BindValuesCore(arr.Cells, context, flags, binder)
			}
		}
	}
}

func bindOneWord(c *Cell, context *Context, flags BindFlags, binder *Binder) {
	spelling := c.Spelling()
	idx := context.Keylist.IndexOf(spelling)
	if idx == 0 {
		collect := flags&BindCollectAny != 0 || (flags&BindCollectSet != 0 && IsSetWordKind(c.Kind()))
		if !collect {
			return
		}
		idx = context.Grow(spelling)
		if binder != nil {
			binder.TryAdd(spelling, idx)
		}
	}
	c.SetBinding(SpecificBinding(context, idx))
}
