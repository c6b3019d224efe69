package hir

import (
	"testing"

	"github.com/midenhir/compiler/internal/types"
	"github.com/stretchr/testify/require"
)

// buildSingleBlockLoop builds entry -> header -> {header (back edge), exit},
// the degenerate single-block self-loop called out as a boundary case in
// spec §8.
func buildSingleBlockLoop(t *testing.T) (f *Function, header, exit BlockID) {
	t.Helper()
	f = NewFunction("selfloop", Signature{})
	entry := f.Entry()
	header = f.CreateBlock()
	exit = f.CreateBlock()
	f.Br(entry, header, nil)
	cond := f.Const(header, types.ImmBool(false))
	f.CondBr(header, cond, BranchTarget{Block: header}, BranchTarget{Block: exit})
	f.Ret(exit, nil)
	return
}

func TestLoopsSingleBlockSelfLoop(t *testing.T) {
	f, header, exit := buildSingleBlockLoop(t)
	lf := f.Loops()

	require.True(t, f.IsLoopHeader(header))
	require.NotNil(t, lf.LoopFor(header))
	require.Equal(t, 1, lf.Level(header))
	require.Nil(t, lf.LoopFor(exit))
	require.Equal(t, 0, lf.Level(exit))
}

func TestLoopsNestedLevels(t *testing.T) {
	f := NewFunction("nested", Signature{})
	entry := f.Entry()
	outer := f.CreateBlock()
	inner := f.CreateBlock()
	innerLatch := f.CreateBlock()
	outerLatch := f.CreateBlock()
	exit := f.CreateBlock()

	f.Br(entry, outer, nil)
	f.Br(outer, inner, nil)
	condInner := f.Const(inner, types.ImmBool(false))
	f.CondBr(inner, condInner, BranchTarget{Block: innerLatch}, BranchTarget{Block: outerLatch})
	f.Br(innerLatch, inner, nil)
	condOuter := f.Const(outerLatch, types.ImmBool(false))
	f.CondBr(outerLatch, condOuter, BranchTarget{Block: outer}, BranchTarget{Block: exit})
	f.Ret(exit, nil)

	lf := f.Loops()
	require.True(t, f.IsLoopHeader(outer))
	require.True(t, f.IsLoopHeader(inner))
	require.Equal(t, 1, lf.Level(outer))
	require.Equal(t, 2, lf.Level(inner))
	require.Equal(t, 2, lf.Level(innerLatch))

	innerLoop := lf.LoopFor(inner)
	require.NotNil(t, innerLoop.Parent())
	require.Equal(t, outer, innerLoop.Parent().Header)
}
