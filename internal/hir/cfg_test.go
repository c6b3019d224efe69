package hir

import (
	"testing"

	"github.com/midenhir/compiler/internal/types"
	"github.com/stretchr/testify/require"
)

// buildDiamond builds entry -> {left, right} -> join, a textbook diamond
// CFG, and returns the block IDs.
func buildDiamond(t *testing.T) (f *Function, entry, left, right, join BlockID) {
	t.Helper()
	f = NewFunction("diamond", Signature{})
	entry = f.Entry()
	left = f.CreateBlock()
	right = f.CreateBlock()
	join = f.CreateBlock()

	cond := f.Const(entry, types.ImmBool(true))
	f.CondBr(entry, cond, BranchTarget{Block: left}, BranchTarget{Block: right})
	f.Br(left, join, nil)
	f.Br(right, join, nil)
	f.Ret(join, nil)
	return
}

func TestCFGPredsAndSuccs(t *testing.T) {
	f, entry, left, right, join := buildDiamond(t)
	cfg := f.CFG()

	require.ElementsMatch(t, []BlockID{left, right}, cfg.Succs(entry))
	require.Len(t, cfg.Preds(join), 2)
	var predBlocks []BlockID
	for _, e := range cfg.Preds(join) {
		predBlocks = append(predBlocks, e.Block)
	}
	require.ElementsMatch(t, []BlockID{left, right}, predBlocks)
}

func TestCFGCachedUntilInvalidated(t *testing.T) {
	f, _, _, _, _ := buildDiamond(t)
	first := f.CFG()
	second := f.CFG()
	require.Same(t, first, second)

	f.InvalidateCFG()
	third := f.CFG()
	require.NotSame(t, first, third)
}
