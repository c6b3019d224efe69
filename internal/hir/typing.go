package hir

import "github.com/midenhir/compiler/internal/types"

// ResultType derives an instruction's result type from its opcode,
// controlling type, and (for casts) an explicit target type, per the
// per-opcode rule in §3. Instructions with more than one result (DivMod,
// Overflowing arithmetic) are handled by their callers, which is why this
// returns a single type; ResultTypes below builds the full list.
func ResultType(op Opcode, ctrl types.Type, target *types.Type) types.Type {
	switch op {
	case OpAdd, OpSub, OpMul, OpNeg, OpIncr, OpPow2, OpExp,
		OpNot, OpAnd, OpOr, OpXor, OpShl, OpShr, OpRotl, OpRotr, OpBnot,
		OpMin, OpMax, OpInv:
		return ctrl
	case OpDiv, OpMod:
		return ctrl
	case OpPopcnt, OpIsOdd:
		return types.I1()
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		return types.I1()
	case OpTrunc, OpZext, OpSext, OpCast:
		if target != nil {
			return *target
		}
		return ctrl
	case OpPtrToInt:
		if target != nil {
			return *target
		}
		return types.Usize()
	case OpIntToPtr:
		if target != nil {
			return *target
		}
		return types.Ptr(nil)
	case OpLoad:
		if target != nil {
			return *target
		}
		return ctrl
	case OpAlloca:
		return types.Ptr(&ctrl)
	case OpGlobalValue:
		return ctrl
	case OpMemGrow:
		return types.Isize()
	case OpTest:
		return types.I1()
	}
	return types.Unit()
}

// ResultTypes returns the full result-type list for an instruction whose
// overflow mode may add an extra boolean (Overflowing) or whose opcode
// inherently produces a pair (DivMod).
func ResultTypes(op Opcode, ctrl types.Type, overflow OverflowMode, target *types.Type) []types.Type {
	switch op {
	case OpDivMod:
		return []types.Type{ctrl, ctrl}
	case OpUnreachable, OpBr, OpCondBr, OpSwitch, OpRet, OpStore, OpMemCpy,
		OpAssert, OpAssertz, OpAssertEq:
		return nil
	}
	base := ResultType(op, ctrl, target)
	switch op {
	case OpAdd, OpSub, OpMul, OpNeg, OpIncr, OpShl, OpShr:
		if overflow == Overflowing {
			return []types.Type{base, types.I1()}
		}
	}
	return []types.Type{base}
}
