package stackify

import (
	"fmt"
	"math"

	"github.com/midenhir/compiler/internal/depgraph"
	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/masm"
	"github.com/midenhir/compiler/internal/types"
)

// emitter holds the mutable state of one block's stackification: the
// physical stack model, the emitted instruction sequence, and the
// bookkeeping needed to decide dup vs. move at each use (§4.6 step 2).
type emitter struct {
	f     *hir.Function
	block hir.BlockID

	owner map[hir.ValueID]depgraph.Node

	stack     []slot
	remaining map[depgraph.Node]int
	ops       []masm.Op

	// openLoops tracks which loop headers are currently being walked, so
	// enterChild can tell a first entry into a header from a back edge to
	// one already on the call stack (function.go).
	openLoops map[hir.BlockID]bool
}

// enterBlock moves the emitter's bookkeeping onto block b, registering its
// parameters and instructions as dependency-graph nodes against dg (b's
// own local consumer counts), then either seeds b's parameters onto a
// fresh stack (fresh, true at function entry) or relabels the physical
// slots the predecessor's terminator already positioned under b's own
// parameter identities (the "rename-on-transfer" handling of cross-block
// values: a predecessor's operand positioning already placed the right
// values at the top of the stack in parameter order, so entering the
// successor is purely a renaming of already-present slots, never a
// re-materialization).
func (e *emitter) enterBlock(b hir.BlockID, dg *depgraph.Graph, fresh bool) {
	e.block = b
	if e.owner == nil {
		e.owner = make(map[hir.ValueID]depgraph.Node)
		e.remaining = make(map[depgraph.Node]int)
	}

	params := e.f.Params(b)
	for _, p := range params {
		n := depgraph.Node{Kind: depgraph.NodeParam, Param: p}
		e.owner[p] = n
		e.remaining[n] = len(dg.Consumers(n))
	}
	for _, inst := range e.f.Instructions(b) {
		n := depgraph.Node{Kind: depgraph.NodeInst, Inst: inst}
		for _, r := range e.f.Results(inst) {
			e.owner[r] = n
		}
		e.remaining[n] = len(dg.Consumers(n))
	}

	if fresh {
		for i := len(params) - 1; i >= 0; i-- {
			e.seedParam(params[i])
		}
		return
	}
	e.renameParams(params)
}

// seedParam records that b's parameter p is already present on the
// physical stack, without emitting any instruction — true at function
// entry, where the caller placed the arguments.
func (e *emitter) seedParam(p hir.ValueID) {
	n := e.owner[p]
	t := e.f.ValueType(p)
	w := int(t.StackWidth())
	for limb := w - 1; limb >= 0; limb-- {
		e.stack = append(e.stack, slot{node: n, limb: limb})
	}
}

// renameParams relabels the physical slots a predecessor's terminator just
// positioned (param 0's limbs topmost, in the same convention seedParam
// and positionValues both use) under b's own parameter node identities,
// without emitting anything: the values are already there, only their
// owning identity changes.
func (e *emitter) renameParams(params []hir.ValueID) {
	idx := len(e.stack) - 1
	for _, p := range params {
		n := e.owner[p]
		w := int(e.f.ValueType(p).StackWidth())
		for limb := 0; limb < w; limb++ {
			e.stack[idx] = slot{node: n, limb: limb}
			idx--
		}
	}
}

func (e *emitter) present(n depgraph.Node) bool {
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i].node == n {
			return true
		}
	}
	return false
}

func (e *emitter) findSlot(n depgraph.Node, limb int) int {
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i].node == n && e.stack[i].limb == limb {
			return i
		}
	}
	panic(fmt.Sprintf("stackify: slot for %v limb %d not found on stack", n, limb))
}

// bringToTop establishes the next use of n's width-many limbs at the top
// of the stack, duplicating it if other static consumers remain or moving
// it (swap/movup, or nothing if already on top) if this is its last use
// (§4.6 step 2's dup-vs-move decision).
func (e *emitter) bringToTop(n depgraph.Node, width int) {
	willReuse := e.remaining[n] > 1
	e.remaining[n]--
	for limb := width - 1; limb >= 0; limb-- {
		idx := e.findSlot(n, limb)
		depth := len(e.stack) - 1 - idx
		if willReuse {
			e.ops = append(e.ops, masm.Dup(uint64(depth)))
			e.stack = append(e.stack, e.stack[idx])
			continue
		}
		switch depth {
		case 0:
			// Already on top.
		case 1:
			e.ops = append(e.ops, masm.Swap())
			e.stack[idx], e.stack[len(e.stack)-1] = e.stack[len(e.stack)-1], e.stack[idx]
		default:
			e.ops = append(e.ops, masm.Movup(uint64(depth)))
			elem := e.stack[idx]
			e.stack = append(e.stack[:idx], e.stack[idx+1:]...)
			e.stack = append(e.stack, elem)
		}
	}
}

// useValue ensures n's value is computed (recursing into its defining
// instruction on first use, the within-tree descent of §4.6 step 1) and
// positions it at the top of the stack for immediate consumption,
// decrementing its remaining static-use count.
func (e *emitter) useValue(n depgraph.Node, width int) {
	if !e.present(n) {
		e.computeNode(n)
	}
	e.bringToTop(n, width)
}

// resolveOperand maps a ValueID to its defining dependency-graph node and
// stack width. Every operand consumed within a block is assumed to be
// either that block's own parameter or the result of an instruction
// earlier in the same block: the Braun-style SSA builder (internal/hir's
// ssabuilder.go) always introduces a block parameter for a value that is
// live across a block boundary, so a value from an ancestor block is
// never read directly — it arrives renamed as this block's own parameter
// (see function.go's block-boundary handling).
func (e *emitter) resolveOperand(v hir.ValueID) (depgraph.Node, int) {
	n, ok := e.owner[v]
	if !ok {
		panic(fmt.Sprintf("stackify: value %v has no definition in block %v (missing block parameter)", v, e.block))
	}
	return n, int(e.f.ValueType(v).StackWidth())
}

func sumWidths(f *hir.Function, vs []hir.ValueID) int {
	total := 0
	for _, v := range vs {
		total += int(f.ValueType(v).StackWidth())
	}
	return total
}

// positionValues establishes vs at the top of the stack in order (vs[0]
// topmost), visiting them in LIFO (rightmost-first) order so that the
// last one positioned — vs[0] — ends up nearest the top (§4.6 step 2).
// Used both for an instruction's own operands and for a terminator's
// branch/return arguments.
func (e *emitter) positionValues(vs []hir.ValueID) {
	for i := len(vs) - 1; i >= 0; i-- {
		n, w := e.resolveOperand(vs[i])
		e.useValue(n, w)
	}
}

// ensurePresent computes n if it has not already been produced, without
// treating this as a use (no remaining-count decrement, no repositioning)
// — the entry point for materializing a tree-graph root for the first
// time, before any consumer actually reads it.
func (e *emitter) ensurePresent(n depgraph.Node) {
	if !e.present(n) {
		e.computeNode(n)
	}
}

// computeNode emits the instruction that defines n: it positions n's
// operands (recursing into any that are condensed into n's own tree and
// have not yet been produced), pops them, emits the primitive op(s), and
// pushes n's result(s).
func (e *emitter) computeNode(n depgraph.Node) {
	if n.Kind != depgraph.NodeInst {
		panic("stackify: cannot compute a block-parameter node; it must already be seeded")
	}
	inst := n.Inst
	e.positionValues(e.f.Args(inst))

	args := e.f.Args(inst)
	operandWidth := sumWidths(e.f, args)
	e.stack = e.stack[:len(e.stack)-operandWidth]

	e.emitOp(inst)

	results := e.f.Results(inst)
	resWidth := sumWidths(e.f, results)
	for limb := resWidth - 1; limb >= 0; limb-- {
		e.stack = append(e.stack, slot{node: n, limb: limb})
	}
}

func isImmOpcode(op hir.Opcode) bool {
	switch op {
	case hir.OpImmI1, hir.OpImmI8, hir.OpImmI16, hir.OpImmI32, hir.OpImmI64, hir.OpImmI128,
		hir.OpImmU8, hir.OpImmU16, hir.OpImmU32, hir.OpImmU64, hir.OpImmU128, hir.OpImmU256,
		hir.OpImmF64, hir.OpImmFelt:
		return true
	}
	return false
}

// emitImmediate pushes imm's stack representation, msb limb first so the
// least significant limb (limb 0) ends up on top, matching every other
// multi-limb value's convention.
func (e *emitter) emitImmediate(imm types.Immediate) {
	t := imm.Type()
	w := int(t.StackWidth())
	if w <= 1 {
		e.ops = append(e.ops, pushImmediate(imm))
		return
	}
	v, ok := imm.AsU64()
	if !ok {
		sv, _ := imm.AsI64()
		v = uint64(sv)
	}
	for limb := w - 1; limb >= 0; limb-- {
		part := uint32(v >> (uint(limb) * 32))
		e.ops = append(e.ops, masm.Push(uint64(part)))
	}
}

func pushImmediate(imm types.Immediate) masm.Op {
	if b, ok := imm.AsBool(); ok {
		if b {
			return masm.Push(1)
		}
		return masm.Push(0)
	}
	if f, ok := imm.AsF64(); ok && imm.Type().Kind == types.KindF64 {
		// F64 is only partially supported (§9 open question); its bit
		// pattern is pushed verbatim rather than a felt-domain float
		// encoding, which nothing downstream of this placeholder depends
		// on yet.
		return masm.Push(math.Float64bits(f))
	}
	v, ok := imm.AsU64()
	if !ok {
		// A negative signed value: push its two's-complement bit pattern
		// at the type's own width.
		sv, _ := imm.AsI64()
		v = uint64(sv) & (uint64(1)<<imm.Type().Width - 1)
	}
	return masm.Push(v)
}

func (e *emitter) emitOp(inst hir.InstID) {
	f := e.f
	op := f.Opcode(inst)
	ctrl := f.ControllingType(inst)
	ovf := f.OverflowMode(inst)

	switch {
	case isImmOpcode(op):
		e.emitImmediate(f.Aux(inst).(types.Immediate))
		return
	case op == hir.OpTrunc || op == hir.OpZext || op == hir.OpSext || op == hir.OpCast ||
		op == hir.OpPtrToInt || op == hir.OpIntToPtr:
		e.emitCast(op, ctrl, f.ValueType(f.Result0(inst)))
		return
	}

	switch op {
	case hir.OpAdd, hir.OpSub, hir.OpMul, hir.OpDiv, hir.OpMod, hir.OpAnd, hir.OpOr, hir.OpXor,
		hir.OpShl, hir.OpShr, hir.OpRotl, hir.OpRotr, hir.OpEq, hir.OpNeq, hir.OpGt, hir.OpGte,
		hir.OpLt, hir.OpLte, hir.OpMin, hir.OpMax, hir.OpExp:
		e.ops = append(e.ops, masm.Raw(binaryMnemonic(op, ctrl, ovf)))
	case hir.OpNeg, hir.OpNot, hir.OpPopcnt, hir.OpIsOdd, hir.OpIncr, hir.OpInv, hir.OpBnot, hir.OpPow2:
		e.ops = append(e.ops, masm.Raw(unaryMnemonic(op, ctrl)))
	case hir.OpAssert:
		e.ops = append(e.ops, masm.Assert())
	case hir.OpAssertz:
		e.ops = append(e.ops, masm.Assertz())
	case hir.OpAssertEq:
		e.ops = append(e.ops, masm.AssertEq())
	case hir.OpLoad:
		e.ops = append(e.ops, masm.Raw(typePrefix(f.ValueType(f.Result0(inst)))+".mem_load"))
	case hir.OpStore:
		e.ops = append(e.ops, masm.Raw("mem_store"))
	case hir.OpMemCpy:
		e.ops = append(e.ops, masm.Exec("intrinsics::mem::memcpy"))
	case hir.OpMemGrow:
		e.ops = append(e.ops, masm.Raw("mem_grow"))
	case hir.OpAlloca:
		e.ops = append(e.ops, masm.Exec("intrinsics::mem::alloca"))
	case hir.OpCall, hir.OpSyscall:
		aux := f.Aux(inst).(hir.CallAux)
		if aux.IsSyscall {
			e.ops = append(e.ops, masm.Syscall(aux.Callee))
		} else {
			e.ops = append(e.ops, masm.Exec(aux.Callee))
		}
	case hir.OpGlobalValue:
		aux := f.Aux(inst).(hir.GlobalValueAux)
		e.ops = append(e.ops, masm.Raw("push.#"+aux.Symbol))
	case hir.OpInlineAsm:
		aux := f.Aux(inst).(hir.InlineAsmAux)
		e.ops = append(e.ops, masm.Raw(aux.Text))
	case hir.OpTest:
		e.ops = append(e.ops, masm.Raw(typePrefix(ctrl)+".eqz"))
	default:
		panic("stackify: unhandled opcode " + op.String())
	}
}

// typePrefix returns the MASM type prefix for ctrl's primitive
// arithmetic/comparison ops: bare for Felt and I1 (the VM's native
// felt-domain ops need no qualifier), "u<width>"/"i<width>" for sized
// integers, and "i32"/"u32" for Isize/Usize (both are 32-bit machine
// words).
func typePrefix(t types.Type) string {
	switch t.Kind {
	case types.KindFelt, types.KindI1:
		return ""
	case types.KindIsize:
		return "i32"
	case types.KindUsize:
		return "u32"
	default:
		return t.String()
	}
}

var binOpName = map[hir.Opcode]string{
	hir.OpAdd: "add", hir.OpSub: "sub", hir.OpMul: "mul", hir.OpDiv: "div", hir.OpMod: "mod",
	hir.OpAnd: "and", hir.OpOr: "or", hir.OpXor: "xor", hir.OpShl: "shl", hir.OpShr: "shr",
	hir.OpRotl: "rotl", hir.OpRotr: "rotr", hir.OpEq: "eq", hir.OpNeq: "neq", hir.OpGt: "gt",
	hir.OpGte: "gte", hir.OpLt: "lt", hir.OpLte: "lte", hir.OpMin: "min", hir.OpMax: "max",
	hir.OpExp: "exp",
}

var unaryOpName = map[hir.Opcode]string{
	hir.OpNeg: "neg", hir.OpNot: "not", hir.OpPopcnt: "popcnt", hir.OpIsOdd: "is_odd",
	hir.OpIncr: "incr", hir.OpInv: "inv", hir.OpBnot: "bnot", hir.OpPow2: "pow2",
}

// binaryMnemonic names the MASM primitive for a two-operand instruction,
// combining ctrl's type prefix with the overflow-mode-qualified operator
// name (e.g. "u32.wrapping_add", "add" for Felt, which has no overflow
// variants since the VM's own field addition never overflows).
func binaryMnemonic(op hir.Opcode, ctrl types.Type, ovf hir.OverflowMode) string {
	name, ok := binOpName[op]
	if !ok {
		panic("stackify: no mnemonic for binary opcode " + op.String())
	}
	if ctrl.Kind != types.KindFelt {
		switch ovf {
		case hir.Checked:
			name = "checked_" + name
		case hir.Wrapping:
			name = "wrapping_" + name
		case hir.Overflowing:
			name = "overflowing_" + name
		}
	}
	prefix := typePrefix(ctrl)
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func unaryMnemonic(op hir.Opcode, ctrl types.Type) string {
	name, ok := unaryOpName[op]
	if !ok {
		panic("stackify: no mnemonic for unary opcode " + op.String())
	}
	prefix := typePrefix(ctrl)
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
