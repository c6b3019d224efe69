package fold

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/types"
)

func TestBlockFoldsConstantOperands(t *testing.T) {
	f := hir.NewFunction("addconst", hir.Signature{})
	entry := f.Entry()
	a := f.Const(entry, types.ImmUnsigned(32, 2))
	c := f.Const(entry, types.ImmUnsigned(32, 3))
	sum := f.BinOp(entry, hir.OpAdd, types.UnsignedInt(32), hir.Unchecked, a, c)[0]
	f.Ret(entry, []hir.ValueID{sum})

	res := Block(f, entry)
	require.Equal(t, 1, res.Folded)

	term := f.Terminator(entry)
	retArgs := f.Args(term)
	require.Len(t, retArgs, 1)

	newResult := retArgs[0]
	_, _, _, defInst, _ := f.ValueDef(newResult)
	require.Equal(t, hir.OpImmU32, f.Opcode(defInst))
	imm := f.Aux(defInst).(types.Immediate)
	v, ok := imm.AsU64()
	require.True(t, ok)
	require.Equal(t, uint64(5), v)
}

func TestBlockFoldsAddZeroIdentity(t *testing.T) {
	f := hir.NewFunction("addzero", hir.Signature{Params: []types.Type{types.UnsignedInt(32)}})
	entry := f.Entry()
	p := f.AppendParam(entry, types.UnsignedInt(32))
	zero := f.Const(entry, types.ImmUnsigned(32, 0))
	sum := f.BinOp(entry, hir.OpAdd, types.UnsignedInt(32), hir.Unchecked, p, zero)[0]
	f.Ret(entry, []hir.ValueID{sum})

	res := Block(f, entry)
	require.Equal(t, 1, res.Folded)

	term := f.Terminator(entry)
	retArgs := f.Args(term)
	require.Equal(t, p, retArgs[0], "x+0 must rewire directly onto x, with no new instruction")
}

func TestBlockFoldsMulZeroIdentity(t *testing.T) {
	f := hir.NewFunction("mulzero", hir.Signature{Params: []types.Type{types.UnsignedInt(32)}})
	entry := f.Entry()
	p := f.AppendParam(entry, types.UnsignedInt(32))
	zero := f.Const(entry, types.ImmUnsigned(32, 0))
	prod := f.BinOp(entry, hir.OpMul, types.UnsignedInt(32), hir.Unchecked, p, zero)[0]
	f.Ret(entry, []hir.ValueID{prod})

	res := Block(f, entry)
	require.Equal(t, 1, res.Folded)

	term := f.Terminator(entry)
	retArgs := f.Args(term)
	_, _, _, defInst, _ := f.ValueDef(retArgs[0])
	imm := f.Aux(defInst).(types.Immediate)
	v, ok := imm.AsU64()
	require.True(t, ok)
	require.Equal(t, uint64(0), v)
}

func TestBlockLeavesNonFoldableUntouched(t *testing.T) {
	f := hir.NewFunction("nofold", hir.Signature{Params: []types.Type{types.UnsignedInt(32), types.UnsignedInt(32)}})
	entry := f.Entry()
	p0 := f.AppendParam(entry, types.UnsignedInt(32))
	p1 := f.AppendParam(entry, types.UnsignedInt(32))
	sum := f.BinOp(entry, hir.OpAdd, types.UnsignedInt(32), hir.Unchecked, p0, p1)[0]
	f.Ret(entry, []hir.ValueID{sum})

	res := Block(f, entry)
	require.Equal(t, 0, res.Folded, "two non-constant operands must not be touched")
}
