package value

// Kind is the cell kind-byte (spec §3). Values 1..62 are base types; 0 is
// the end-marker; 63 (KindQuoted) is reserved to mean "quoted more than
// three times, indirect through Cell.quotedShared for the real kind and
// remaining quote count." The declaration order below groups kinds into
// the any-word / any-array / any-path / inert ranges spec §9's design
// notes call out ("the kind-byte ordering encodes the inert/evaluative and
// any-word/any-array/any-path categorizations, so grouping in the enum
// declaration order must preserve those ranges") — IsAnyWord etc. below are
// pure range checks over this ordering, not per-kind tables.
type Kind byte

const (
	KindEnd Kind = 0

	// any-word range: 1..4
	KindWord Kind = iota
	KindSetWord
	KindGetWord
	KindLitWord

	// any-array range: 5..6
	KindBlock
	KindGroup

	// any-path range: 7..9
	KindPath
	KindSetPath
	KindGetPath

	// inert literal range: 10..15
	KindInteger
	KindDecimal
	KindString
	KindChar
	KindLogic
	KindNull

	// context/action range: 16..20
	KindObject
	KindFrame
	KindAction
	KindModule
	KindError

	// control-flow inert: bar token that triggers a feed barrier (§4.5)
	KindBar
)

const (
	// KindQuoted is the reserved sentinel kind-byte (63) denoting deeper
	// quoting than the three levels a kind-byte can encode inline.
	KindQuoted Kind = 63

	quoteUnit      = 64
	maxInlineQuote = 3
)

func init() {
	if KindBar >= KindQuoted {
		panic("value: base kind range collides with the reserved KindQuoted sentinel")
	}
}

// MakeKindByte packs a base kind and an inline quote level (0..3) into one
// byte per spec §3's "64·q+k" encoding. Callers needing quote > 3 must use
// KindQuoted directly and stash the real kind/quote-remainder on
// Cell.quotedShared instead of calling this.
func MakeKindByte(base Kind, quote int) byte {
	if quote < 0 || quote > maxInlineQuote {
		panic("value: inline quote level out of range, use KindQuoted indirection")
	}
	return byte(base) + byte(quote*quoteUnit)
}

// SplitKindByte is the inverse of MakeKindByte for any byte not equal to
// KindQuoted.
func SplitKindByte(kb byte) (base Kind, quote int) {
	return Kind(int(kb) % quoteUnit), int(kb) / quoteUnit
}

func IsAnyWord(k Kind) bool  { return k >= KindWord && k <= KindLitWord }
func IsAnyArray(k Kind) bool { return k >= KindBlock && k <= KindGroup }
func IsAnyPath(k Kind) bool  { return k >= KindPath && k <= KindGetPath }
func IsAnyInert(k Kind) bool {
	return k == KindBlock || (k >= KindInteger && k <= KindNull)
}
func IsSetWordKind(k Kind) bool { return k == KindSetWord || k == KindSetPath }

// Flags are the per-cell flags of spec §3's fourth header byte.
type Flags uint8

const (
	FlagProtected Flags = 1 << iota
	FlagConst
	FlagNewlineBefore
	FlagUnevaluated
	FlagIsotope
	FlagExplicitlyMutable
	// FlagOutStale aliases the GC mark bit on output cells (spec §4.5):
	// "The output cell carries an out-marked-stale flag (aliased to the
	// GC-marked bit, since output cells are never themselves marked by the
	// GC)." It is modeled as an ordinary flag bit here rather than literally
	// reusing Node.Marked, since nothing in this Go port ever mark-sweeps a
	// Cell directly; the aliasing is a memory-layout trick the source
	// achieves for free and this port does not need.
	FlagOutStale
)

func (f Flags) Has(bit Flags) bool   { return f&bit != 0 }
func (f *Flags) Set(bit Flags)       { *f |= bit }
func (f *Flags) Clear(bit Flags)     { *f &^= bit }
func (f *Flags) SetTo(bit Flags, v bool) {
	if v {
		f.Set(bit)
	} else {
		f.Clear(bit)
	}
}

// wordVirtualCache is the per-word-cell cache pair ⟨specifier-node,
// modular-index⟩ of spec §4.2 resolution step 1. cachedMiss distinguishes
// a cached "no such patch overrides this word" result from "never looked
// up against this specifier."
type wordVirtualCache struct {
	specifier *Patch
	index     int
	miss      bool
}

// Cell is the uniform value representation of spec §3. Go gives every
// value its own heap object rather than four packed machine words, so the
// header/kind-byte/heart-byte/flags split is kept as named fields instead
// of packed bits — the fields are the same, the packing is not, because
// packing buys nothing here and only the contract (what each field means
// and when it may be touched) matters for the rest of the core.
type Cell struct {
	node Node

	kindByte  byte
	heartByte byte
	flags     Flags

	binding Binding

	// payload is the two-sub-slot payload of spec §3. Which concrete field
	// is live depends on heartByte; see the Is*/As* accessors below.
	integer  int64
	decimal  float64
	text     string
	logic    bool
	array    *Array
	ctx      *Context
	action   *Action

	// spelling is the word's own name, present on any-word and any-path
	// kinds. It is independent of binding: a word's spelling never changes
	// no matter how it resolves.
	spelling *Symbol
	vcache   *wordVirtualCache

	// quotedShared indirects to a shared cell when kindByte == KindQuoted,
	// carrying the real kind and any quote depth beyond what one kind-byte
	// can encode inline (spec §3).
	quotedShared *Cell
	quoteDepth   int

	// pathGroupCache holds a path's leading group step's one-time evaluation
	// result (spec §4.6: "Path groups are evaluated once and cached on the
	// path so that default-style operations that read then write do not
	// re-execute side effects."). Only ever populated on a cell of Kind
	// Group sitting as a path's step 0; nil means "not evaluated yet."
	pathGroupCache *Cell
}

// Init (re)initializes dest as a live cell of the given kind/heart. Cells
// are born trash per spec §3's lifecycle note; Init is what ends that
// trash period.
func (c *Cell) Init(kind Kind, heart Kind) *Cell {
	*c = Cell{}
	c.node = Node{IsNode: true, IsCell: true}
	c.kindByte = byte(kind)
	c.heartByte = byte(heart)
	return c
}

func (c *Cell) Kind() Kind {
	if Kind(c.kindByte) == KindQuoted {
		return KindQuoted
	}
	base, _ := SplitKindByte(c.kindByte)
	return base
}

func (c *Cell) Heart() Kind { return Kind(c.heartByte) }

func (c *Cell) QuoteLevel() int {
	if Kind(c.kindByte) == KindQuoted {
		return c.quoteDepth
	}
	_, q := SplitKindByte(c.kindByte)
	return q
}

// Quote increases this cell's quoting level by one, indirecting through
// quotedShared once the inline encoding (q<=3) is exhausted.
func (c *Cell) Quote() {
	if Kind(c.kindByte) == KindQuoted {
		c.quoteDepth++
		return
	}
	base, q := SplitKindByte(c.kindByte)
	if q < maxInlineQuote {
		c.kindByte = MakeKindByte(base, q+1)
		return
	}
	shared := new(Cell)
	*shared = *c
	shared.kindByte = MakeKindByte(base, maxInlineQuote)
	c.quotedShared = shared
	c.quoteDepth = maxInlineQuote + 1
	c.kindByte = byte(KindQuoted)
}

// Unquote decreases the quoting level by one. Panics (a programmer error,
// not a modeled core.Error) if the cell is not quoted.
func (c *Cell) Unquote() {
	if Kind(c.kindByte) == KindQuoted {
		c.quoteDepth--
		if c.quoteDepth <= maxInlineQuote {
			*c = *c.quotedShared
		}
		return
	}
	base, q := SplitKindByte(c.kindByte)
	if q == 0 {
		panic("value: Unquote on an unquoted cell")
	}
	c.kindByte = MakeKindByte(base, q-1)
}

func (c *Cell) IsEnd() bool { return c.kindByte == 0 }

func (c *Cell) IsNulled() bool { return c.Heart() == KindNull }

func (c *Cell) IsIsotope() bool { return c.flags.Has(FlagIsotope) }

// MakeIsotope marks a null cell as a "heavy" isotope (spec §4.5): a
// branch-taking construct's null result that must not retrigger a
// subsequent `else`.
func (c *Cell) MakeIsotope() { c.flags.Set(FlagIsotope) }

// Decay strips the isotope bit. The evaluator applies it when assigning to
// a variable and when gathering a normal argument; reading a variable does
// not decay.
func (c *Cell) Decay() { c.flags.Clear(FlagIsotope) }

func (c *Cell) Flags() Flags      { return c.flags }
func (c *Cell) SetFlag(f Flags)   { c.flags.Set(f) }
func (c *Cell) ClearFlag(f Flags) { c.flags.Clear(f) }

func (c *Cell) IsProtected() bool { return c.flags.Has(FlagProtected) }

// --- payload accessors -----------------------------------------------

func (c *Cell) InitInteger(v int64) *Cell {
	c.Init(KindInteger, KindInteger)
	c.integer = v
	return c
}
func (c *Cell) AsInteger() int64 { return c.integer }

func (c *Cell) InitDecimal(v float64) *Cell {
	c.Init(KindDecimal, KindDecimal)
	c.decimal = v
	return c
}
func (c *Cell) AsDecimal() float64 { return c.decimal }

func (c *Cell) InitString(v string) *Cell {
	c.Init(KindString, KindString)
	c.text = v
	return c
}
func (c *Cell) AsString() string { return c.text }

func (c *Cell) InitLogic(v bool) *Cell {
	c.Init(KindLogic, KindLogic)
	c.logic = v
	return c
}
func (c *Cell) AsLogic() bool { return c.logic }

func (c *Cell) InitNull() *Cell {
	c.Init(KindNull, KindNull)
	return c
}

func (c *Cell) InitBar() *Cell {
	c.Init(KindBar, KindBar)
	return c
}

// InitArray initializes dest as a block or group bound to binding (use
// Unbound for a fully specified/unbound literal).
func (c *Cell) InitArray(kind Kind, arr *Array, binding Binding) *Cell {
	c.Init(kind, kind)
	c.array = arr
	c.binding = binding
	return c
}
func (c *Cell) AsArray() *Array { return c.array }

// InitPath initializes dest as a path/set-path/get-path: spec §3 stores a
// path's steps the same way an array stores elements, so this reuses the
// array payload slot rather than giving paths a separate representation.
func (c *Cell) InitPath(kind Kind, arr *Array, binding Binding) *Cell {
	c.Init(kind, kind)
	c.array = arr
	c.binding = binding
	return c
}

// InitWord initializes dest as a word of the given sub-kind (word, set-word,
// get-word, lit-word) carrying spelling and binding.
func (c *Cell) InitWord(kind Kind, spelling *Symbol, binding Binding) *Cell {
	c.Init(kind, kind)
	c.spelling = spelling
	c.binding = binding
	return c
}
func (c *Cell) Spelling() *Symbol { return c.spelling }
func (c *Cell) Binding() Binding  { return c.binding }
func (c *Cell) SetBinding(b Binding) { c.binding = b }

func (c *Cell) InitObject(ctx *Context) *Cell {
	c.Init(KindObject, KindObject)
	c.ctx = ctx
	return c
}
func (c *Cell) InitFrame(ctx *Context) *Cell {
	c.Init(KindFrame, KindFrame)
	c.ctx = ctx
	return c
}
func (c *Cell) AsContext() *Context { return c.ctx }

func (c *Cell) InitAction(a *Action) *Cell {
	c.Init(KindAction, KindAction)
	c.action = a
	return c
}
func (c *Cell) AsAction() *Action { return c.action }

// virtualCache exposes the word-cell cache slot to the bind package logic
// living alongside it in this package (spec §4.2 resolution step 1).
func (c *Cell) virtualCache() *wordVirtualCache {
	if c.vcache == nil {
		c.vcache = &wordVirtualCache{}
	}
	return c.vcache
}

// CachedPathGroupResult returns a path's leading group step's previously
// cached evaluation, if any (spec §4.6).
func (c *Cell) CachedPathGroupResult() (Cell, bool) {
	if c.pathGroupCache == nil {
		return Cell{}, false
	}
	return *c.pathGroupCache, true
}

// SetCachedPathGroupResult records result as this group step's one-time
// evaluation, reused by every later resolution of the same path.
func (c *Cell) SetCachedPathGroupResult(result Cell) {
	c.pathGroupCache = &result
}
