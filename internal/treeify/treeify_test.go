package treeify

import (
	"testing"

	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/types"
	"github.com/stretchr/testify/require"
)

// buildDiamondWithParam builds entry -> {left, right} -> join, where join
// takes one parameter fed a different constant from each arm, and join
// returns it. This is the textbook treeify candidate: a single
// non-header block with two predecessors disagreeing on a value.
func buildDiamondWithParam(t *testing.T) (f *hir.Function, entry, left, right, join hir.BlockID) {
	t.Helper()
	f = hir.NewFunction("diamond", hir.Signature{})
	entry = f.Entry()
	left = f.CreateBlock()
	right = f.CreateBlock()
	join = f.CreateBlock()

	param := f.AppendParam(join, types.Usize())

	cond := f.Const(entry, types.ImmBool(true))
	f.CondBr(entry, cond, hir.BranchTarget{Block: left}, hir.BranchTarget{Block: right})

	one := f.Const(left, types.ImmUsize(1))
	f.Br(left, join, []hir.ValueID{one})

	two := f.Const(right, types.ImmUsize(2))
	f.Br(right, join, []hir.ValueID{two})

	f.Ret(join, []hir.ValueID{param})
	return
}

func TestRunDuplicatesJoinPerPredecessor(t *testing.T) {
	f, entry, _, _, join := buildDiamondWithParam(t)

	require.NoError(t, Run(f))

	require.True(t, f.IsDetached(join), "original join must be detached once both predecessors have private copies")

	cfg := f.CFG()
	require.ElementsMatch(t, []hir.BlockID{}, cfg.Preds(join), "detached block keeps no live predecessor edges")

	succs := cfg.Succs(entry)
	require.Len(t, succs, 2)
	for _, s := range succs {
		require.NotEqual(t, join, s, "entry's arms must now target private clones, not the shared join")
		require.Len(t, cfg.Preds(s), 1, "each clone has exactly the one predecessor it was made for")
		require.Equal(t, hir.OpRet, f.Opcode(f.Terminator(s)))
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f, _, _, _, _ := buildDiamondWithParam(t)

	require.NoError(t, Run(f))
	after := len(f.BlockOrder())

	require.NoError(t, Run(f))
	require.Equal(t, after, len(f.BlockOrder()), "a second pass over an already-tree CFG must not create or detach anything further")
}

func TestRunRejectsCriticalSwitchEdge(t *testing.T) {
	f := hir.NewFunction("switchy", hir.Signature{})
	entry := f.Entry()
	shared := f.CreateBlock()
	other := f.CreateBlock()
	exit := f.CreateBlock()

	sel := f.Const(entry, types.ImmUsize(0))
	f.Switch(entry, sel,
		[]hir.SwitchCase{{Value: 0, Target: hir.BranchTarget{Block: shared}}},
		hir.BranchTarget{Block: other})

	// A second, independent predecessor into shared makes it a
	// multi-predecessor treeify candidate reached partly through a
	// switch arm that also has another successor (other) — a critical
	// edge by the switch's own multi-successor shape.
	f.Br(other, shared, nil)
	f.Br(shared, exit, nil)
	f.Ret(exit, nil)

	err := Run(f)
	require.Error(t, err)
}

// buildLoop builds entry -> header -> {body, exit}, body -> header (back
// edge), so header is a natural loop header with two predecessors
// (entry, body) that must never be duplicated by treeification.
func buildLoop(t *testing.T) (f *hir.Function, entry, header, body, exit hir.BlockID) {
	t.Helper()
	f = hir.NewFunction("loop", hir.Signature{})
	entry = f.Entry()
	header = f.CreateBlock()
	body = f.CreateBlock()
	exit = f.CreateBlock()

	f.Br(entry, header, nil)
	cond := f.Const(header, types.ImmBool(true))
	f.CondBr(header, cond, hir.BranchTarget{Block: body}, hir.BranchTarget{Block: exit})
	f.Br(body, header, nil)
	f.Ret(exit, nil)
	return
}

func TestRunPreservesLoopHeaders(t *testing.T) {
	f, _, header, _, _ := buildLoop(t)
	f.Loops() // mark header before Run, as the pipeline ordering guarantees

	require.NoError(t, Run(f))

	require.False(t, f.IsDetached(header), "a loop header must never be detached by treeification")
	cfg := f.CFG()
	require.Len(t, cfg.Preds(header), 2, "a loop header keeps every predecessor, duplicated or not")
}
