package component

import (
	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/types"
)

// lowerString emits the canonical ABI's string-lowering sequence into
// block: allocate length bytes of the callee's linear memory via its
// realloc export, then copy length bytes from srcPtr (the caller's
// representation) into the freshly allocated destination, byte by byte,
// using a counted while.true-shaped loop (frontend-wasm's ssa.rs and
// component/translator.rs in original_source ground this as a plain
// loop over core memory ops, not a bulk-memory intrinsic, since §1
// declares bulk-memory operators out of scope). Returns the destination
// pointer the core function call should receive in place of srcPtr.
func lowerString(b *hir.Builder, f *hir.Function, block hir.BlockID, realloc string, srcPtr, length hir.ValueID) (hir.ValueID, hir.BlockID) {
	u32 := types.UnsignedInt(32)
	zero := f.Const(block, types.ImmUnsigned(32, 0))
	one := f.Const(block, types.ImmUnsigned(32, 1))
	align := f.Const(block, types.ImmUnsigned(32, 1))

	_, res := f.Call(block, realloc, false, []hir.ValueID{zero, zero, align, length}, []types.Type{u32})
	dst := res[0]

	idxVar := hir.Variable(0)
	b.DeclareVar(idxVar, u32)
	b.DefVar(idxVar, block, zero)

	header := f.CreateBlock()
	b.DeclareBlock(header)
	f.SetLoopHeader(header, true)
	headerEntry := f.Br(block, header, nil)
	b.DeclareBlockPredecessor(header, headerEntry)

	idx, _ := b.UseVar(idxVar, header)
	cond := f.BinOp(header, hir.OpLt, u32, hir.Unchecked, idx, length)[0]

	body := f.CreateBlock()
	b.DeclareBlock(body)
	after := f.CreateBlock()
	b.DeclareBlock(after)

	condBr := f.CondBr(header, cond, hir.BranchTarget{Block: body}, hir.BranchTarget{Block: after})
	b.DeclareBlockPredecessor(body, condBr)
	b.DeclareBlockPredecessor(after, condBr)
	b.SealBlock(header)

	srcAddr := f.BinOp(body, hir.OpAdd, u32, hir.Unchecked, srcPtr, idx)[0]
	dstAddr := f.BinOp(body, hir.OpAdd, u32, hir.Unchecked, dst, idx)[0]
	byteVal := f.Load(body, srcAddr, types.UnsignedInt(8))
	f.Store(body, dstAddr, byteVal)
	nextIdx := f.BinOp(body, hir.OpAdd, u32, hir.Unchecked, idx, one)[0]
	b.DefVar(idxVar, body, nextIdx)

	backEdge := f.Br(body, header, nil)
	b.DeclareBlockPredecessor(header, backEdge)
	b.SealBlock(body)
	b.SealBlock(after)

	return dst, after
}
