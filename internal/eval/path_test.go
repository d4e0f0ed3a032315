package eval

import (
	"testing"

	"rebcore/internal/value"
)

// TestResolvePathHeadCachesGroupEvaluation pins spec §4.6: "Path groups are
// evaluated once and cached on the path so that default-style operations
// that read then write do not re-execute side effects." The group body
// below increments a counter variable as its side effect; resolving the
// same steps array's head twice must only run that increment once, with
// the second resolution simply replaying the cached result.
func TestResolvePathHeadCachesGroupEvaluation(t *testing.T) {
	env := newTestEnv(t)

	counterSym := env.tab.Intern("counter")
	counterIdx := env.ctx.Grow(counterSym)
	env.ctx.Slot(counterIdx).InitInteger(0)

	plusSym := env.tab.Intern("+")
	plusIdx := env.ctx.Keylist.IndexOf(plusSym)

	var setCounter, readCounterForSum, plusWord, one, readCounterFinal value.Cell
	setCounter.InitWord(value.KindSetWord, counterSym, value.SpecificBinding(env.ctx, counterIdx))
	readCounterForSum.InitWord(value.KindWord, counterSym, value.SpecificBinding(env.ctx, counterIdx))
	plusWord.InitWord(value.KindWord, plusSym, value.SpecificBinding(env.ctx, plusIdx))
	one.InitInteger(1)
	readCounterFinal.InitWord(value.KindWord, counterSym, value.SpecificBinding(env.ctx, counterIdx))

	// Body: counter: counter + 1  counter
	groupBody := value.NewArray([]value.Cell{setCounter, readCounterForSum, plusWord, one, readCounterFinal})

	var groupStep value.Cell
	groupStep.InitArray(value.KindGroup, groupBody, value.Unbound)

	steps := value.NewArray([]value.Cell{groupStep})

	f := &Frame{Symbols: env.tab}

	head1, _ := f.resolvePathHead(steps, value.FrameSpecifier(env.ctx))
	if head1.Kind() != value.KindInteger || head1.AsInteger() != 1 {
		t.Fatalf("first resolution = %v, want integer 1", head1)
	}
	if got := env.ctx.Slot(counterIdx).AsInteger(); got != 1 {
		t.Fatalf("counter after first resolution = %d, want 1", got)
	}

	head2, _ := f.resolvePathHead(steps, value.FrameSpecifier(env.ctx))
	if head2.Kind() != value.KindInteger || head2.AsInteger() != 1 {
		t.Fatalf("second resolution = %v, want cached integer 1 (no re-increment)", head2)
	}
	if got := env.ctx.Slot(counterIdx).AsInteger(); got != 1 {
		t.Fatalf("counter after second resolution = %d, want still 1 (group must not re-run)", got)
	}
}
