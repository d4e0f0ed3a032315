package scan

import (
	"testing"

	"rebcore/internal/value"
)

func scanString(t *testing.T, src string) *value.Array {
	t.Helper()
	tab := value.NewSymbolTable()
	arr, err := New(src, tab, nil, nil).Scan()
	if err != nil {
		t.Fatalf("scan %q: unexpected error %v", src, err)
	}
	return arr
}

func TestScanLiterals(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantKind value.Kind
	}{
		{"integer", "42", value.KindInteger},
		{"negative integer", "-7", value.KindInteger},
		{"decimal", "3.5", value.KindDecimal},
		{"string", `"hello"`, value.KindString},
		{"true literal", "true", value.KindLogic},
		{"false literal", "false", value.KindLogic},
		{"null literal", "null", value.KindNull},
		{"bar token", "|", value.KindBar},
		{"word", "foo", value.KindWord},
		{"set-word", "foo:", value.KindSetWord},
		{"get-word", ":foo", value.KindGetWord},
		{"lit-word", "'foo", value.KindLitWord},
		{"block", "[1 2]", value.KindBlock},
		{"group", "(1 2)", value.KindGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := scanString(t, tt.src)
			if arr.Len() != 1 {
				t.Fatalf("expected exactly one scanned cell, got %d", arr.Len())
			}
			if got := arr.At(0).Kind(); got != tt.wantKind {
				t.Fatalf("scan(%q) kind = %v, want %v", tt.src, got, tt.wantKind)
			}
		})
	}
}

func TestScanNumberThenSlashIsAPath(t *testing.T) {
	arr := scanString(t, "1/2")
	if arr.Len() != 1 {
		t.Fatalf("expected one cell, got %d", arr.Len())
	}
	cell := arr.At(0)
	if !value.IsAnyPath(cell.Kind()) {
		t.Fatalf("1/2 should scan as a path, got kind %v", cell.Kind())
	}
	steps := cell.AsArray()
	if steps.Len() != 2 {
		t.Fatalf("expected 2 path steps, got %d", steps.Len())
	}
	if steps.At(0).Kind() != value.KindInteger || steps.At(0).AsInteger() != 1 {
		t.Fatalf("first path step should be integer 1")
	}
	if steps.At(1).Kind() != value.KindInteger || steps.At(1).AsInteger() != 2 {
		t.Fatalf("second path step should be integer 2")
	}
}

func TestScanWordPath(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		wantKind   value.Kind
		wantSteps  int
		lastIsWord bool
	}{
		{"plain path", "obj/field", value.KindPath, 2, true},
		{"set-path", "obj/field:", value.KindSetPath, 2, true},
		{"get-path", ":obj/field", value.KindGetPath, 2, true},
		{"three step path", "a/b/c", value.KindPath, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := scanString(t, tt.src)
			if arr.Len() != 1 {
				t.Fatalf("expected one cell, got %d", arr.Len())
			}
			cell := arr.At(0)
			if cell.Kind() != tt.wantKind {
				t.Fatalf("scan(%q) kind = %v, want %v", tt.src, cell.Kind(), tt.wantKind)
			}
			steps := cell.AsArray()
			if steps.Len() != tt.wantSteps {
				t.Fatalf("scan(%q) has %d steps, want %d", tt.src, steps.Len(), tt.wantSteps)
			}
			last := steps.At(steps.Len() - 1)
			if value.IsAnyWord(last.Kind()) != tt.lastIsWord {
				t.Fatalf("scan(%q) last step word-ness = %v, want %v", tt.src, value.IsAnyWord(last.Kind()), tt.lastIsWord)
			}
			// a set-path's last step is normalized back to a plain word, not
			// left as a set-word, even though the source wrote it with a
			// trailing colon.
			if tt.wantKind == value.KindSetPath && last.Kind() != value.KindWord {
				t.Fatalf("set-path's last step should be a plain word, got %v", last.Kind())
			}
		})
	}
}

func TestScanBlockNesting(t *testing.T) {
	arr := scanString(t, "[1 [2 3] 4]")
	if arr.Len() != 1 || arr.At(0).Kind() != value.KindBlock {
		t.Fatalf("expected one top-level block, got %d cells", arr.Len())
	}
	outer := arr.At(0).AsArray()
	if outer.Len() != 3 {
		t.Fatalf("expected 3 cells in the outer block, got %d", outer.Len())
	}
	inner := outer.At(1)
	if inner.Kind() != value.KindBlock {
		t.Fatalf("middle element should be a block, got %v", inner.Kind())
	}
	if inner.AsArray().Len() != 2 {
		t.Fatalf("nested block should have 2 cells, got %d", inner.AsArray().Len())
	}
}

func TestScanBindsWordsWhenBinderAndContextGiven(t *testing.T) {
	tab := value.NewSymbolTable()
	xSym := tab.Intern("x")
	keylist := value.NewKeylist([]*value.Symbol{xSym}, nil)
	ctx := value.NewContext(value.ArchObject, keylist, 1)

	binder := value.NewBinder(false)
	arr, err := New("x", tab, binder, ctx).Scan()
	if err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	word := arr.At(0)
	b := word.Binding()
	if b.Kind != value.BindSpecific || b.Context != ctx || b.Index != 1 {
		t.Fatalf("expected word bound specifically to (ctx, 1), got %+v", b)
	}
	binder.ReleaseAll()
}

func TestScanUnboundWithoutBinder(t *testing.T) {
	arr := scanString(t, "x")
	word := arr.At(0)
	if !word.Binding().IsUnbound() {
		t.Fatal("a word scanned with no binder/context should stay unbound")
	}
}
