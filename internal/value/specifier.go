package value

// SpecifierKind is the three-way closed set spec §4.2 names: "specified",
// a patch chain, or a frame varlist.
type SpecifierKind byte

const (
	SpecSpecified SpecifierKind = iota
	SpecPatch
	SpecFrame
)

// Specifier accompanies a cell to resolve its relative/virtual bindings to
// a concrete context (spec glossary).
type Specifier struct {
	Kind  SpecifierKind
	Patch *Patch
	Frame *Context
}

// Specified is the "no overlay, nothing further to resolve" specifier.
var Specified = Specifier{Kind: SpecSpecified}

func PatchSpecifier(p *Patch) Specifier {
	if p == nil {
		return Specified
	}
	return Specifier{Kind: SpecPatch, Patch: p}
}

func FrameSpecifier(f *Context) Specifier {
	if f == nil {
		return Specified
	}
	return Specifier{Kind: SpecFrame, Frame: f}
}

// effectiveFrame derives the frame varlist a Specific/Relative binding
// resolution step should consider "in effect" (spec §4.2 steps 3 and 4):
// directly, if the specifier already names a frame, or by walking a patch
// chain's terminator, if it's a patch chain resolved against one.
func (s Specifier) effectiveFrame() *Context {
	switch s.Kind {
	case SpecFrame:
		return s.Frame
	case SpecPatch:
		return s.Patch.Terminator()
	default:
		return nil
	}
}

// DeriveSpecifier computes the specifier contents of arrayCell should be
// read under, given the ambient specifier parent coming in from the outer
// evaluation (spec §4.3). arrayCell must be an any-array or any-path kind.
func DeriveSpecifier(parent Specifier, arrayCell *Cell) Specifier {
	b := arrayCell.Binding()

	switch b.Kind {
	case BindUnbound:
		// unbound | specified -> specified; unbound | patch chain -> propagate
		return parent

	case BindSpecific:
		ctx := b.Context
		if parent.Kind == SpecSpecified {
			return FrameSpecifier(ctx)
		}
		if parent.Kind == SpecPatch {
			return attachFrameToChain(parent.Patch, ctx)
		}
		// varlist | frame varlist: the array's own binding wins (it's
		// already as specific as a binding can be); the ambient frame
		// specifier carries no further information for it.
		return FrameSpecifier(ctx)

	case BindRelative:
		// relative | frame for compatible action -> parent (frame carries
		// the resolution already).
		return parent

	case BindVirtual:
		switch parent.Kind {
		case SpecSpecified:
			return PatchSpecifier(b.Patch)
		case SpecFrame:
			return attachFrameToChain(b.Patch, parent.Frame)
		case SpecPatch:
			return PatchSpecifier(MergePatchesReused(parent.Patch, b.Patch))
		}
	}

	if equalSpecifier(parent, specifierOf(arrayCell)) {
		return parent
	}
	return parent
}

func specifierOf(c *Cell) Specifier {
	b := c.Binding()
	switch b.Kind {
	case BindSpecific:
		return FrameSpecifier(b.Context)
	case BindVirtual:
		return PatchSpecifier(b.Patch)
	default:
		return Specified
	}
}

func equalSpecifier(a, b Specifier) bool {
	return a.Kind == b.Kind && a.Patch == b.Patch && a.Frame == b.Frame
}

// attachFrameToChain attaches frame at chain's terminator slot if vacant;
// otherwise raises errIncompatiblePatch (spec §4.3 table row "patch chain |
// varlist or null -> attach parent's frame resolution at this chain's
// terminator, reuse via the variants list where possible").
func attachFrameToChain(chain *Patch, frame *Context) Specifier {
	if chain == nil {
		return FrameSpecifier(frame)
	}
	existing := chain.Terminator()
	if existing == nil {
		return PatchSpecifier(rebuildChainWithTerminator(chain, frame))
	}
	if existing != frame {
		errIncompatiblePatch(existing, frame)
	}
	return PatchSpecifier(chain)
}

// rebuildChainWithTerminator walks chain and, reusing variants where an
// identical patch already terminates at frame, returns a chain identical
// to the input but terminating at frame instead of nil.
func rebuildChainWithTerminator(chain *Patch, frame *Context) *Patch {
	if chain == nil {
		return nil
	}
	next := rebuildChainWithTerminator(chain.Next, frame)
	var newFrame patchTerminator = chain.Frame
	if chain.Next == nil {
		newFrame = frame
	}
	return MakeOrReusePatch(chain.Context, chain.Limit, next, newFrame, chain.Kind)
}

// MergePatchesReused merges a parent chain with a child chain per spec
// §4.3: walks parentChain; if childChain is already reachable, returns the
// existing prefix; at the terminator, either splices in childChain (if the
// terminator is vacant) or allocates a new patch copying the parent's cell
// with its next-link pointed at the recursively merged tail, interning the
// result into the parent's variants ring.
func MergePatchesReused(parentChain, childChain *Patch) *Patch {
	if parentChain == nil {
		return childChain
	}
	if reachable(parentChain, childChain) {
		return parentChain
	}
	var mergedNext *Patch
	var frame patchTerminator
	if parentChain.Next == nil {
		if parentChain.Frame == nil {
			mergedNext = childChain
			frame = nil
		} else {
			// terminator already a varlist: child chain must itself
			// terminate compatibly or we raise errIncompatiblePatch via
			// attachFrameToChain's sibling logic.
			if childChain != nil && childChain.Terminator() != nil && childChain.Terminator() != parentChain.Frame {
				errIncompatiblePatch(parentChain.Frame, childChain.Terminator())
			}
			mergedNext = childChain
			frame = parentChain.Frame
		}
	} else {
		mergedNext = MergePatchesReused(parentChain.Next, childChain)
		frame = parentChain.Frame
	}
	return MakeOrReusePatch(parentChain.Context, parentChain.Limit, mergedNext, frame, parentChain.Kind)
}

// reachable reports whether needle already appears somewhere in haystack's
// chain (by identity), the "child_chain is already reachable" check.
func reachable(haystack, needle *Patch) bool {
	for cur := haystack; cur != nil; cur = cur.Next {
		if cur == needle {
			return true
		}
	}
	return needle == nil && haystack == nil
}
