package hir

import "github.com/midenhir/compiler/internal/types"

// Const materializes a pure-constant opcode for imm's type and returns the
// resulting value. The instruction is appended to block, unless block
// already ends in a terminator; then it is placed at the head of block,
// ahead of every instruction that could use it.
func (f *Function) Const(block BlockID, imm types.Immediate) ValueID {
	op := constOpcodeFor(imm.Type())
	if last := f.blocks[block].lastInst; last != InvalidInst && f.insts[last].op.IsTerminator() {
		if f.frozen {
			panic("hir: Emit on a frozen function")
		}
		_, results := f.prependInst(block, instBuilder{op: op, overflow: Unchecked, ctrlType: imm.Type(), aux: imm}, []types.Type{imm.Type()})
		return results[0]
	}
	_, results := f.Emit(block, op, imm.Type(), Unchecked, nil, []types.Type{imm.Type()}, imm)
	return results[0]
}

func constOpcodeFor(t types.Type) Opcode {
	switch t.Kind {
	case types.KindI1:
		return OpImmI1
	case types.KindF64:
		return OpImmF64
	case types.KindFelt:
		return OpImmFelt
	case types.KindSignedInt:
		switch t.Width {
		case 8:
			return OpImmI8
		case 16:
			return OpImmI16
		case 32:
			return OpImmI32
		case 64:
			return OpImmI64
		default:
			return OpImmI128
		}
	case types.KindUnsignedInt, types.KindUsize, types.KindIsize:
		switch t.Width {
		case 8:
			return OpImmU8
		case 16:
			return OpImmU16
		case 32:
			return OpImmU32
		case 64:
			return OpImmU64
		case 128:
			return OpImmU128
		default:
			return OpImmU256
		}
	}
	return OpImmU32
}

// BinOp emits a two-operand arithmetic/bitwise/comparison instruction
// under controlling type ctrl and overflow mode ovf, returning its primary
// result (and, for Overflowing mode, the trailing boolean flag).
func (f *Function) BinOp(block BlockID, op Opcode, ctrl types.Type, ovf OverflowMode, a, b ValueID) []ValueID {
	rt := ResultTypes(op, ctrl, ovf, nil)
	_, results := f.Emit(block, op, ctrl, ovf, []ValueID{a, b}, rt, nil)
	return results
}

// UnOp emits a single-operand instruction under controlling type ctrl.
func (f *Function) UnOp(block BlockID, op Opcode, ctrl types.Type, v ValueID) ValueID {
	rt := ResultTypes(op, ctrl, Unchecked, nil)
	_, results := f.Emit(block, op, ctrl, Unchecked, []ValueID{v}, rt, nil)
	return results[0]
}

// Cast emits a Trunc/Zext/Sext/Cast/PtrToInt/IntToPtr instruction
// converting v (of type from) to target.
func (f *Function) Cast(block BlockID, op Opcode, from, target types.Type, v ValueID) ValueID {
	_, results := f.Emit(block, op, from, Unchecked, []ValueID{v}, []types.Type{target}, nil)
	return results[0]
}

// Load emits a memory load of type result from address addr.
func (f *Function) Load(block BlockID, addr ValueID, result types.Type) ValueID {
	_, results := f.Emit(block, OpLoad, result, Unchecked, []ValueID{addr}, []types.Type{result}, nil)
	return results[0]
}

// Store emits a memory store of val to addr.
func (f *Function) Store(block BlockID, addr, val ValueID) InstID {
	id, _ := f.Emit(block, OpStore, types.Unit(), Unchecked, []ValueID{addr, val}, nil, nil)
	return id
}

// Alloca emits a stack allocation of elemType, returning a pointer value.
func (f *Function) Alloca(block BlockID, elemType types.Type, count ValueID) ValueID {
	_, results := f.Emit(block, OpAlloca, elemType, Unchecked, []ValueID{count}, []types.Type{types.Ptr(&elemType)}, nil)
	return results[0]
}

// GlobalValue emits a reference to the named global, typed t.
func (f *Function) GlobalValue(block BlockID, symbol string, t types.Type) ValueID {
	_, results := f.Emit(block, OpGlobalValue, t, Unchecked, nil, []types.Type{t}, GlobalValueAux{Symbol: symbol})
	return results[0]
}

// Call emits a call (or, if isSyscall, a Miden syscall) to callee with
// args, producing results of the given types.
func (f *Function) Call(block BlockID, callee string, isSyscall bool, args []ValueID, resultTypes []types.Type) (InstID, []ValueID) {
	op := OpCall
	if isSyscall {
		op = OpSyscall
	}
	return f.Emit(block, op, types.Unit(), Unchecked, args, resultTypes, CallAux{Callee: callee, IsSyscall: isSyscall})
}

// Assert/Assertz/AssertEq emit the corresponding trap-on-failure checks.
func (f *Function) Assert(block BlockID, cond ValueID) InstID {
	id, _ := f.Emit(block, OpAssert, types.I1(), Unchecked, []ValueID{cond}, nil, nil)
	return id
}

func (f *Function) Assertz(block BlockID, cond ValueID) InstID {
	id, _ := f.Emit(block, OpAssertz, types.I1(), Unchecked, []ValueID{cond}, nil, nil)
	return id
}

func (f *Function) AssertEq(block BlockID, a, b ValueID) InstID {
	id, _ := f.Emit(block, OpAssertEq, types.Unit(), Unchecked, []ValueID{a, b}, nil, nil)
	return id
}

// Br terminates block with an unconditional jump to target carrying args.
// The argument list lives solely in Aux (see Args), since SSA construction
// appends to it lazily as block parameters in target resolve (§4.1).
func (f *Function) Br(block BlockID, target BlockID, args []ValueID) InstID {
	id, _ := f.Emit(block, OpBr, types.Unit(), Unchecked, nil, nil, BranchTarget{Block: target, Args: append([]ValueID{}, args...)})
	return id
}

// CondBr terminates block by branching to then or els depending on cond.
func (f *Function) CondBr(block BlockID, cond ValueID, then, els BranchTarget) InstID {
	id, _ := f.Emit(block, OpCondBr, types.I1(), Unchecked, []ValueID{cond}, nil, CondBrAux{Then: then, Else: els})
	return id
}

// Switch terminates block by dispatching on sel to one of cases or
// dflt.
func (f *Function) Switch(block BlockID, sel ValueID, cases []SwitchCase, dflt BranchTarget) InstID {
	id, _ := f.Emit(block, OpSwitch, types.Unit(), Unchecked, []ValueID{sel}, nil, SwitchAux{Cases: cases, Default: dflt})
	return id
}

// Ret terminates block by returning vs.
func (f *Function) Ret(block BlockID, vs []ValueID) InstID {
	id, _ := f.Emit(block, OpRet, types.Unit(), Unchecked, vs, nil, nil)
	return id
}

// Unreachable terminates block, asserting this point is never executed.
func (f *Function) Unreachable(block BlockID) InstID {
	id, _ := f.Emit(block, OpUnreachable, types.Unit(), Unchecked, nil, nil, nil)
	return id
}

// InlineAsm emits a raw MASM fragment taking and producing the given
// typed operands/results.
func (f *Function) InlineAsm(block BlockID, text string, operands []ValueID, resultTypes []types.Type) (InstID, []ValueID) {
	return f.Emit(block, OpInlineAsm, types.Unit(), Unchecked, operands, resultTypes, InlineAsmAux{Text: text})
}
