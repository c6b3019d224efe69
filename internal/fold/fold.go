package fold

import (
	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/types"
)

// Result summarizes one block's folding pass: Folded counts the
// instructions whose consumers were rewired.
type Result struct {
	Folded int
}

// foldableOps is matched with a Matcher so the recognized op set reads
// declaratively at the call site below, the way the original's Matcher
// combinators compose a rule rather than a bare switch.
var foldableOps = OneOf(
	func(op hir.Opcode) bool { return op == hir.OpAdd },
	func(op hir.Opcode) bool { return op == hir.OpSub },
	func(op hir.Opcode) bool { return op == hir.OpMul },
)

// Block runs the fold pass over one block, visiting its instructions in
// program order and, for every binary arithmetic instruction with at
// least one constant operand, replacing it with a materialized constant
// or an identity operand and rewiring every consumer via
// Function.ReplaceAllUses. Folded instructions are
// left in the block, unreachable from anything after rewiring — the
// same accepted dead-code simplification internal/stackify already
// documents, since nothing in this pre-pass removes instructions.
func Block(f *hir.Function, b hir.BlockID) Result {
	var folded int
	for _, inst := range f.Instructions(b) {
		if rewriteOne(f, b, inst) {
			folded++
		}
	}
	return Result{Folded: folded}
}

func rewriteOne(f *hir.Function, b hir.BlockID, inst hir.InstID) bool {
	op := f.Opcode(inst)
	if !foldableOps(op) {
		return false
	}
	args := f.Args(inst)
	if len(args) != 2 {
		return false
	}
	results := f.Results(inst)
	if len(results) != 1 {
		return false
	}
	result := results[0]
	ctrl := f.ValueType(result)

	lhs, lhsOK := constOperand(f, args[0])
	rhs, rhsOK := constOperand(f, args[1])

	if lhsOK && rhsOK {
		folded, ok := evalConst(op, lhs, rhs, ctrl)
		if !ok {
			return false
		}
		newVal := f.Const(b, folded)
		f.ReplaceAllUses(result, newVal)
		return true
	}

	switch op {
	case hir.OpAdd:
		if rhsOK && isZero(rhs) {
			f.ReplaceAllUses(result, args[0])
			return true
		}
		if lhsOK && isZero(lhs) {
			f.ReplaceAllUses(result, args[1])
			return true
		}
	case hir.OpSub:
		if rhsOK && isZero(rhs) {
			f.ReplaceAllUses(result, args[0])
			return true
		}
	case hir.OpMul:
		if rhsOK {
			if isOne(rhs) {
				f.ReplaceAllUses(result, args[0])
				return true
			}
			if isZero(rhs) {
				f.ReplaceAllUses(result, args[1])
				return true
			}
		}
		if lhsOK {
			if isOne(lhs) {
				f.ReplaceAllUses(result, args[1])
				return true
			}
			if isZero(lhs) {
				f.ReplaceAllUses(result, args[0])
				return true
			}
		}
	}
	return false
}

// constOperand reports v's constant value if v is defined by an
// immediate-materializing instruction in this same function, and false
// otherwise (a block parameter, or any non-constant instruction result).
func constOperand(f *hir.Function, v hir.ValueID) (types.Immediate, bool) {
	isParam, _, _, inst, _ := f.ValueDef(v)
	if isParam || !isImmOpcode(f.Opcode(inst)) {
		return types.Immediate{}, false
	}
	imm, ok := f.Aux(inst).(types.Immediate)
	return imm, ok
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

func isZero(im types.Immediate) bool {
	v, ok := im.AsI64()
	return ok && v == 0
}

func isOne(im types.Immediate) bool {
	v, ok := im.AsI64()
	return ok && v == 1
}

// evalConst computes op(a, b) under ctrl's width/signedness. Only the
// integer arithmetic op set registered in foldableOps reaches here, so
// both operands are known convertible to int64.
func evalConst(op hir.Opcode, a, b types.Immediate, ctrl types.Type) (types.Immediate, bool) {
	av, aok := a.AsI64()
	bv, bok := b.AsI64()
	if !aok || !bok {
		return types.Immediate{}, false
	}
	var r int64
	switch op {
	case hir.OpAdd:
		r = av + bv
	case hir.OpSub:
		r = av - bv
	case hir.OpMul:
		r = av * bv
	default:
		return types.Immediate{}, false
	}
	if ctrl.IsSigned() {
		return types.ImmSigned(ctrl.Width, r), true
	}
	return types.ImmUnsigned(ctrl.Width, uint64(r)), true
}
