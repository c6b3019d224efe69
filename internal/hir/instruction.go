package hir

import "github.com/midenhir/compiler/internal/types"

// BranchTarget names a destination block and the values passed as that
// block's parameters, the HIR analogue of a phi-function argument list.
type BranchTarget struct {
	Block BlockID
	Args  []ValueID
}

// SwitchCase is one arm of a Switch instruction.
type SwitchCase struct {
	Value  int64
	Target BranchTarget
}

// CondBrAux is the Aux payload of a CondBr instruction.
type CondBrAux struct {
	Then BranchTarget
	Else BranchTarget
}

// SwitchAux is the Aux payload of a Switch instruction.
type SwitchAux struct {
	Cases   []SwitchCase
	Default BranchTarget
}

// CallAux is the Aux payload of Call/Syscall instructions.
type CallAux struct {
	Callee    string
	IsSyscall bool
}

// GlobalValueAux is the Aux payload of a GlobalValue instruction.
type GlobalValueAux struct {
	Symbol string
}

// InlineAsmAux is the Aux payload of an InlineAsm instruction.
type InlineAsmAux struct {
	Text string
}

// instData is the arena entry for an instruction: its opcode, operand and
// result lists (indices into the function's shared operand pool),
// overflow mode where applicable, opcode-specific Aux data, and intrusive
// list links within its owning block.
type instData struct {
	op       Opcode
	overflow OverflowMode
	ctrlType types.Type

	operandsStart int
	operandsLen   int
	resultsStart  int
	resultsLen    int

	aux interface{}

	block BlockID
	prev  InstID
	next  InstID
}

// Opcode returns the instruction's opcode.
func (f *Function) Opcode(id InstID) Opcode { return f.insts[id].op }

// OverflowMode returns the arithmetic overflow mode carried by id.
func (f *Function) OverflowMode(id InstID) OverflowMode { return f.insts[id].overflow }

// ControllingType returns the type that determined id's operand
// compatibility and result-type derivation (§3).
func (f *Function) ControllingType(id InstID) types.Type { return f.insts[id].ctrlType }

// Block returns the block that owns instruction id.
func (f *Function) Block(id InstID) BlockID { return f.insts[id].block }

// Aux returns the opcode-specific payload of id, or nil.
func (f *Function) Aux(id InstID) interface{} { return f.insts[id].aux }

// Args returns the operand values of instruction id, in order. Branch
// instructions (Br/CondBr/Switch) keep their per-target argument lists in
// Aux rather than the shared pool, since SSA construction lazily appends
// arguments to an already-emitted branch as block parameters are resolved
// (§4.1) — a pool range fixed at creation time cannot grow in place once
// later instructions have claimed the pool's tail. Args reassembles the
// full flattened list on demand: [selector?, ...arm args in target order].
func (f *Function) Args(id InstID) []ValueID {
	d := f.insts[id]
	switch d.op {
	case OpBr:
		bt := d.aux.(BranchTarget)
		return bt.Args
	case OpCondBr:
		aux := d.aux.(CondBrAux)
		out := make([]ValueID, 0, 1+len(aux.Then.Args)+len(aux.Else.Args))
		out = append(out, f.operandPool[d.operandsStart])
		out = append(out, aux.Then.Args...)
		out = append(out, aux.Else.Args...)
		return out
	case OpSwitch:
		aux := d.aux.(SwitchAux)
		out := []ValueID{f.operandPool[d.operandsStart]}
		for _, c := range aux.Cases {
			out = append(out, c.Target.Args...)
		}
		out = append(out, aux.Default.Args...)
		return out
	}
	return f.operandPool[d.operandsStart : d.operandsStart+d.operandsLen]
}

// RetargetArm rewrites the destination of one arm of a terminator
// instruction (Br/CondBr/Switch) in place, replacing both its target
// block and argument list. Used by treeification (§4.3) to redirect a
// predecessor's branch at its newly cloned private successor, carrying
// no arguments since the clone's block parameters were already
// substituted away during cloning.
func (f *Function) RetargetArm(id InstID, arm Arm, newTarget BlockID, newArgs []ValueID) {
	d := &f.insts[id]
	switch d.op {
	case OpBr:
		d.aux = BranchTarget{Block: newTarget, Args: newArgs}
	case OpCondBr:
		aux := d.aux.(CondBrAux)
		if arm == ArmElse {
			aux.Else = BranchTarget{Block: newTarget, Args: newArgs}
		} else {
			aux.Then = BranchTarget{Block: newTarget, Args: newArgs}
		}
		d.aux = aux
	case OpSwitch:
		aux := d.aux.(SwitchAux)
		if arm == ArmDefault {
			aux.Default = BranchTarget{Block: newTarget, Args: newArgs}
		} else {
			aux.Cases[int(arm)].Target = BranchTarget{Block: newTarget, Args: newArgs}
		}
		d.aux = aux
	}
}

// Results returns the result values of instruction id, in order.
func (f *Function) Results(id InstID) []ValueID {
	d := f.insts[id]
	return f.operandPool[d.resultsStart : d.resultsStart+d.resultsLen]
}

// Result0 returns the first (commonly only) result of id.
func (f *Function) Result0(id InstID) ValueID {
	r := f.Results(id)
	if len(r) == 0 {
		return InvalidValue
	}
	return r[0]
}

// instBuilder accumulates operands for an about-to-be-appended
// instruction; it exists so callers can build variadic operand lists
// without knowing the pool layout.
type instBuilder struct {
	op       Opcode
	overflow OverflowMode
	ctrlType types.Type
	operands []ValueID
	aux      interface{}
	numResults int
}

// poolAppend copies vs into the function's shared operand pool and
// returns the (start, len) slice descriptor, implementing the "variable
// length operand lists share a single pool" rule from §3.
func (f *Function) poolAppend(vs []ValueID) (start, length int) {
	start = len(f.operandPool)
	f.operandPool = append(f.operandPool, vs...)
	return start, len(vs)
}
