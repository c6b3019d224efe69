package hir

import (
	"testing"

	"github.com/midenhir/compiler/internal/types"
	"github.com/stretchr/testify/require"
)

// TestSSABuilderSingleDef covers the trivial case: a variable defined and
// read back within the same block never allocates a block parameter.
func TestSSABuilderSingleDef(t *testing.T) {
	f := NewFunction("single", Signature{})
	entry := f.Entry()
	b := NewBuilder(f)
	b.DeclareBlock(entry)

	const x Variable = 0
	b.DeclareVar(x, types.Usize())
	v := f.Const(entry, types.ImmUsize(7))
	b.DefVar(x, entry, v)

	got, effects := b.UseVar(x, entry)
	require.Equal(t, v, got)
	require.Empty(t, effects)
	require.Zero(t, f.NumParams(entry))
}

// TestSSABuilderDiamondMerge covers the classic diamond: x is defined
// differently on each arm, so the join block must gain exactly one
// parameter carrying the merged value, with both predecessors' branches
// supplying an argument for it.
func TestSSABuilderDiamondMerge(t *testing.T) {
	f := NewFunction("diamond", Signature{})
	entry := f.Entry()
	left := f.CreateBlock()
	right := f.CreateBlock()
	join := f.CreateBlock()

	b := NewBuilder(f)
	for _, blk := range []BlockID{entry, left, right, join} {
		b.DeclareBlock(blk)
	}

	const x Variable = 0
	b.DeclareVar(x, types.Usize())

	cond := f.Const(entry, types.ImmBool(true))
	br := f.CondBr(entry, cond, BranchTarget{Block: left}, BranchTarget{Block: right})
	b.DeclareBlockPredecessor(left, br)
	b.DeclareBlockPredecessor(right, br)
	b.SealBlock(entry)

	lv := f.Const(left, types.ImmUsize(1))
	b.DefVar(x, left, lv)
	leftBr := f.Br(left, join, nil)
	b.DeclareBlockPredecessor(join, leftBr)
	b.SealBlock(left)

	rv := f.Const(right, types.ImmUsize(2))
	b.DefVar(x, right, rv)
	rightBr := f.Br(right, join, nil)
	b.DeclareBlockPredecessor(join, rightBr)
	b.SealBlock(right)

	b.SealBlock(join)
	got, _ := b.UseVar(x, join)

	require.Equal(t, 1, f.NumParams(join))
	require.Equal(t, f.Param(join, 0), got)

	leftArgs := f.Aux(leftBr).(BranchTarget).Args
	rightArgs := f.Aux(rightBr).(BranchTarget).Args
	require.Equal(t, []ValueID{lv}, leftArgs)
	require.Equal(t, []ValueID{rv}, rightArgs)
}

// TestSSABuilderLinearChainNoParam covers a straight-line chain: a
// variable defined before a run of single-predecessor blocks must resolve
// to the original value with no block parameter inserted anywhere, since
// every intermediate param is trivial.
func TestSSABuilderLinearChainNoParam(t *testing.T) {
	f := NewFunction("chain", Signature{})
	entry := f.Entry()
	mid := f.CreateBlock()
	tail := f.CreateBlock()

	b := NewBuilder(f)
	b.DeclareBlock(entry)
	b.DeclareBlock(mid)
	b.DeclareBlock(tail)

	const x Variable = 0
	b.DeclareVar(x, types.Usize())

	v := f.Const(entry, types.ImmUsize(42))
	b.DefVar(x, entry, v)
	br1 := f.Br(entry, mid, nil)
	b.DeclareBlockPredecessor(mid, br1)
	b.SealBlock(entry)

	br2 := f.Br(mid, tail, nil)
	b.DeclareBlockPredecessor(tail, br2)
	b.SealBlock(mid)
	b.SealBlock(tail)

	got, _ := b.UseVar(x, tail)
	require.Equal(t, v, got)
	require.Zero(t, f.NumParams(mid))
	require.Zero(t, f.NumParams(tail))
}

// TestSSABuilderUnsealedThenSealed covers a variable read in a block
// before it is sealed (the common case for a loop header read before its
// back edge exists): the read returns a provisional parameter immediately,
// and sealing later resolves it.
func TestSSABuilderUnsealedThenSealed(t *testing.T) {
	f := NewFunction("loop", Signature{})
	entry := f.Entry()
	header := f.CreateBlock()
	latch := f.CreateBlock()
	exit := f.CreateBlock()

	b := NewBuilder(f)
	for _, blk := range []BlockID{entry, header, latch, exit} {
		b.DeclareBlock(blk)
	}

	const x Variable = 0
	b.DeclareVar(x, types.Usize())

	initVal := f.Const(entry, types.ImmUsize(0))
	b.DefVar(x, entry, initVal)
	br0 := f.Br(entry, header, nil)
	b.DeclareBlockPredecessor(header, br0)
	b.SealBlock(entry)

	// header is not sealed yet: its own predecessor set (entry, latch) is
	// incomplete until the latch's back edge is declared below.
	provisional, _ := b.UseVar(x, header)
	require.Equal(t, 1, f.NumParams(header), "unsealed read must install a provisional parameter")

	cond := f.Const(header, types.ImmBool(false))
	headerBr := f.CondBr(header, cond, BranchTarget{Block: latch}, BranchTarget{Block: exit})
	b.DeclareBlockPredecessor(latch, headerBr)
	b.DeclareBlockPredecessor(exit, headerBr)

	b.DefVar(x, latch, provisional)
	latchBr := f.Br(latch, header, nil)
	b.DeclareBlockPredecessor(header, latchBr)
	b.SealBlock(latch)

	effects := b.SealBlock(header)
	_ = effects
	b.SealBlock(exit)

	got, _ := b.UseVar(x, exit)
	require.Equal(t, initVal, got, "the loop never redefines x, so the merge collapses to the init value")
}
