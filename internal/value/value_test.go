package value

import (
	"testing"

	"rebcore/internal/coreerr"
)

func TestSymbolTableInternAndCanon(t *testing.T) {
	tests := []struct {
		name       string
		spellings  []string
		wantCanons int // distinct canon rings expected
	}{
		{"single spelling", []string{"foo"}, 1},
		{"case variants share a ring", []string{"foo", "Foo", "FOO"}, 1},
		{"distinct words get distinct rings", []string{"foo", "bar"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tab := NewSymbolTable()
			canons := make(map[*Symbol]bool)
			for _, sp := range tt.spellings {
				s := tab.Intern(sp)
				if s.Text() != sp {
					t.Fatalf("Intern(%q).Text() = %q", sp, s.Text())
				}
				canons[s.Canon()] = true
			}
			if len(canons) != tt.wantCanons {
				t.Fatalf("got %d distinct canons, want %d", len(canons), tt.wantCanons)
			}
			// interning the same spelling twice must return the same Symbol.
			for _, sp := range tt.spellings {
				if tab.Intern(sp) != tab.Intern(sp) {
					t.Fatalf("Intern(%q) not stable across calls", sp)
				}
			}
		})
	}
}

func TestBinderTryAddAndShutdown(t *testing.T) {
	tab := NewSymbolTable()
	foo := tab.Intern("foo")
	bar := tab.Intern("bar")

	b := NewBinder(false)
	if !b.TryAdd(foo, 1) {
		t.Fatal("first TryAdd on a fresh symbol should succeed")
	}
	if b.TryAdd(foo, 2) {
		t.Fatal("second TryAdd on an already-bound symbol should fail")
	}
	if got := b.GetElseZero(foo); got != 1 {
		t.Fatalf("GetElseZero(foo) = %d, want 1", got)
	}
	if got := b.GetElseZero(bar); got != 0 {
		t.Fatalf("GetElseZero(bar) = %d, want 0 (untouched)", got)
	}

	// a binder shut down with a leftover bound symbol is a leak.
	err := coreerr.Trap(func() { b.Shutdown() })
	if err == nil {
		t.Fatal("Shutdown with a leaked symbol should raise an error")
	}
	ce, ok := err.(*coreerr.Error)
	if !ok || ce.Kind != coreerr.BinderLeak {
		t.Fatalf("expected BinderLeak, got %v", err)
	}

	b.ReleaseAll()
	if err := coreerr.Trap(func() { b.Shutdown() }); err != nil {
		t.Fatalf("Shutdown after ReleaseAll should be clean, got %v", err)
	}
}

func TestMakeOrReusePatchDedup(t *testing.T) {
	tab := NewSymbolTable()
	keylist := NewKeylist([]*Symbol{tab.Intern("x")}, nil)
	ctx := NewContext(ArchObject, keylist, 1)

	p1 := MakeOrReusePatch(ctx, 1, nil, nil, PatchWord)
	p2 := MakeOrReusePatch(ctx, 1, nil, nil, PatchWord)
	if p1 != p2 {
		t.Fatal("two patches built with identical (context, limit, next, frame, kind) should be the same variant")
	}

	p3 := MakeOrReusePatch(ctx, 1, nil, nil, PatchSetWord)
	if p3 == p1 {
		t.Fatal("a different patch kind must not be deduplicated with an incompatible one")
	}

	if got := MakeOrReusePatch(ctx, 0, p1, nil, PatchWord); got != p1 {
		t.Fatal("limit == 0 must return next unchanged")
	}
}

func TestGetWordContextSpecificOverride(t *testing.T) {
	tab := NewSymbolTable()
	xSym := tab.Intern("x")

	baseKeylist := NewKeylist([]*Symbol{xSym}, nil)
	base := NewContext(ArchObject, baseKeylist, 1)
	*base.Slot(1) = *new(Cell).InitInteger(1)

	derivedKeylist := NewKeylist([]*Symbol{xSym}, baseKeylist)
	derived := NewContext(ArchObject, derivedKeylist, 1)
	*derived.Slot(1) = *new(Cell).InitInteger(2)

	var word Cell
	word.InitWord(KindWord, xSym, SpecificBinding(base, 1))

	// resolving with no ambient frame: the word's own stored context wins.
	ctx, idx, ok := GetWordContext(&word, Specified)
	if !ok || ctx != base || idx != 1 {
		t.Fatalf("expected (base, 1, true), got (%v, %d, %v)", ctx, idx, ok)
	}

	// resolving under a derived frame whose keylist overrides the stored
	// one: spec §4.2's "method body sees the derived instance" rule.
	ctx, idx, ok = GetWordContext(&word, FrameSpecifier(derived))
	if !ok || ctx != derived || idx != 1 {
		t.Fatalf("expected override to (derived, 1, true), got (%v, %d, %v)", ctx, idx, ok)
	}
}

func TestGetWordContextRelative(t *testing.T) {
	tab := NewSymbolTable()
	nSym := tab.Intern("n")

	act := &Action{}
	otherAct := &Action{}

	var word Cell
	word.InitWord(KindWord, nSym, RelativeBinding(act, 1))

	paramKeylist := NewKeylist([]*Symbol{nSym}, nil)
	frame := NewContext(ArchFrame, paramKeylist, 1)
	frame.FrameAction = act
	*frame.Slot(1) = *new(Cell).InitInteger(42)

	ctx, idx, ok := GetWordContext(&word, FrameSpecifier(frame))
	if !ok || ctx != frame || idx != 1 {
		t.Fatalf("expected (frame, 1, true), got (%v, %d, %v)", ctx, idx, ok)
	}

	// a frame for an unrelated action must not resolve a relative binding.
	otherFrame := NewContext(ArchFrame, paramKeylist, 1)
	otherFrame.FrameAction = otherAct
	if _, _, ok := GetWordContext(&word, FrameSpecifier(otherFrame)); ok {
		t.Fatal("relative binding resolved against an unrelated action's frame")
	}

	// no frame in the specifier at all: unresolved.
	if _, _, ok := GetWordContext(&word, Specified); ok {
		t.Fatal("relative binding resolved with no frame specifier present")
	}
}

func TestIsOverridingContext(t *testing.T) {
	base := NewKeylist(nil, nil)
	derived := NewKeylist(nil, base)
	unrelated := NewKeylist(nil, nil)

	if !IsOverridingContext(base, derived) {
		t.Fatal("derived keylist should be reported as overriding its ancestor")
	}
	if IsOverridingContext(base, base) {
		t.Fatal("identical keylist is not an override of itself")
	}
	if IsOverridingContext(base, unrelated) {
		t.Fatal("unrelated keylist falsely reported as an override")
	}
}

func TestVirtualBindPatchifyThenResolve(t *testing.T) {
	tab := NewSymbolTable()
	ySym := tab.Intern("y")

	keylist := NewKeylist([]*Symbol{ySym}, nil)
	overlay := NewContext(ArchObject, keylist, 1)
	*overlay.Slot(1) = *new(Cell).InitInteger(7)

	var word Cell
	word.InitWord(KindWord, ySym, Unbound)
	block := NewArray([]Cell{word})

	var blockCell Cell
	blockCell.InitArray(KindBlock, block, Unbound)

	VirtualBindPatchify(&blockCell, overlay, PatchWord)

	specifier := DeriveSpecifier(Specified, &blockCell)
	resolved := block.At(0)
	ctx, idx, ok := GetWordContext(resolved, specifier)
	if !ok || ctx != overlay || idx != 1 {
		t.Fatalf("expected virtual binding to resolve to (overlay, 1), got (%v, %d, %v)", ctx, idx, ok)
	}
}
