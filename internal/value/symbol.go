package value

// Symbol is an interned, read-only name (spec §3). Case variants of the
// same spelling ("Foo", "foo", "FOO") are linked into a circular synonym
// ring; any member can reach the canon by walking Next until it returns to
// itself or to the member it started from. The two bind-index slots are
// the only mutable fields on an otherwise read-only object, reserved for
// transient use by a Binder (spec §4.1).
type Symbol struct {
	text    string
	next    *Symbol // synonym ring, always non-nil; self-loop if alone
	isCanon bool    // owns the canonical casing for this ring

	// bindIndexLow/High are the two transient binder slots. Index zero
	// means "absent" (spec §4.1: "Index zero is reserved to mean absent").
	bindIndexLow  int
	bindIndexHigh int
}

func (s *Symbol) Text() string { return s.text }

// Canon walks the synonym ring to the canonical (first-interned) member.
func (s *Symbol) Canon() *Symbol {
	cur := s
	for {
		if cur.isCanon {
			return cur
		}
		cur = cur.next
		if cur == s {
			return s // defensive: ring with no marked canon, shouldn't happen
		}
	}
}

type symbolTableKey = string

// SymbolTable is the process-wide intern table (spec §4.1: "Symbols are
// interned by UTF-8 content in a single process-wide hash table"). Per
// spec §5 the evaluator itself is single-threaded cooperative, so this
// table carries no locking; a host embedding multiple cores concurrently
// is out of this core's scope.
type SymbolTable struct {
	exact map[symbolTableKey]*Symbol      // case-exact spelling -> symbol
	canon map[string]*Symbol              // case-folded spelling -> canon symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		exact: make(map[string]*Symbol),
		canon: make(map[string]*Symbol),
	}
}

// Intern returns the Symbol for text, creating it (and, if text's
// case-folded form is new, a fresh canon) if needed. Every insertion
// yields the canon form's ring membership per spec §4.1: "creating a new
// casing inserts the new symbol into the canon's synonym ring."
func (t *SymbolTable) Intern(text string) *Symbol {
	if s, ok := t.exact[text]; ok {
		return s
	}
	folded := foldCase(text)
	canon, ok := t.canon[folded]
	if !ok {
		s := &Symbol{text: text, isCanon: true}
		s.next = s
		t.canon[folded] = s
		t.exact[text] = s
		return s
	}
	s := &Symbol{text: text}
	// splice s into canon's ring, right after canon.
	s.next = canon.next
	canon.next = s
	t.exact[text] = s
	return s
}

func foldCase(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}
