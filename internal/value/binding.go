package value

// BindingKind is the four-way tagged variant spec §9's design notes call
// for directly: "Binding = Unbound(Symbol) | Specific(ContextId) |
// Relative(ActionId, SlotIndex) | Virtual(PatchId)". Go has no sum types,
// so this is the idiomatic stand-in: one kind tag plus the union of fields
// any variant might use, with accessors that panic if asked for the wrong
// variant's data (a programming error, never a core.Error).
type BindingKind byte

const (
	BindUnbound BindingKind = iota
	BindSpecific
	BindRelative
	BindVirtual
)

// Binding is a cell's Extra-slot binding reference (spec §3).
type Binding struct {
	Kind BindingKind

	// BindUnbound: no extra data: word.Spelling() alone names it.
	// BindSpecific: Context + Index name the slot directly.
	Context *Context
	Index   int

	// BindRelative: Action + Index name the slot within whatever frame the
	// specifier supplies at resolution time.
	Action *Action

	// BindVirtual: Patch heads the overlay chain.
	Patch *Patch
}

// Unbound is the zero-value binding: every brand-new word cell starts
// here.
var Unbound = Binding{Kind: BindUnbound}

func SpecificBinding(ctx *Context, index int) Binding {
	return Binding{Kind: BindSpecific, Context: ctx, Index: index}
}

func RelativeBinding(a *Action, index int) Binding {
	return Binding{Kind: BindRelative, Action: a, Index: index}
}

func VirtualBinding(p *Patch) Binding {
	return Binding{Kind: BindVirtual, Patch: p}
}

func (b Binding) IsUnbound() bool { return b.Kind == BindUnbound }
