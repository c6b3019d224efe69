package hir

import "github.com/midenhir/compiler/internal/types"

// Signature is a function's parameter and result types.
type Signature struct {
	Params  []types.Type
	Results []types.Type
}

// Function owns a data-flow graph: blocks in an intrusive ordered list,
// each owning a list of instructions in program order and a list of block
// parameters, plus the value arena and operand pool shared by every
// instruction in the function (§3). Functions are built mutably; once
// Freeze is called, Emit refuses further instructions.
type Function struct {
	Name string
	Sig  Signature

	blocks      []blockData
	values      []valueData
	insts       []instData
	operandPool []ValueID

	firstBlock BlockID
	lastBlock  BlockID
	entry      BlockID

	frozen bool

	// analysis caches, invalidated by Invalidate (§5 ordering guarantees).
	cfg   *CFG
	dom   *DomTree
	loops *LoopForest
}

// NewFunction creates an empty function and its entry block, whose
// parameters are populated from sig.Params by the caller (typically the
// SSA builder, translating a WebAssembly function's declared locals).
func NewFunction(name string, sig Signature) *Function {
	f := &Function{
		Name:       name,
		Sig:        sig,
		firstBlock: InvalidBlock,
		lastBlock:  InvalidBlock,
	}
	f.entry = f.CreateBlock()
	return f
}

// Entry returns the function's entry block.
func (f *Function) Entry() BlockID { return f.entry }

// NumBlocks returns the number of blocks ever allocated (including
// detached ones); valid BlockIDs are exactly [0, NumBlocks).
func (f *Function) NumBlocks() int { return len(f.blocks) }

// NumValues returns the number of values ever allocated.
func (f *Function) NumValues() int { return len(f.values) }

// Freeze marks the function immutable: Emit (and Const) panic on a frozen
// function. Code generation does not check it.
func (f *Function) Freeze() { f.frozen = true }

// Frozen reports whether Freeze has been called.
func (f *Function) Frozen() bool { return f.frozen }

// appendInst links a freshly described instruction onto the tail of
// block's instruction list and allocates its result values.
func (f *Function) appendInst(block BlockID, b instBuilder, resultTypes []types.Type) (InstID, []ValueID) {
	opStart, opLen := f.poolAppend(b.operands)

	resStart := len(f.operandPool)
	results := make([]ValueID, len(resultTypes))
	for i, rt := range resultTypes {
		results[i] = f.newValue(rt)
	}
	f.operandPool = append(f.operandPool, results...)
	for i, rv := range results {
		f.values[rv].defKind = defInstResult
		f.values[rv].resultIdx = i
	}

	id := InstID(len(f.insts))
	f.insts = append(f.insts, instData{
		op:            b.op,
		overflow:      b.overflow,
		ctrlType:      b.ctrlType,
		operandsStart: opStart,
		operandsLen:   opLen,
		resultsStart:  resStart,
		resultsLen:    len(results),
		aux:           b.aux,
		block:         block,
		prev:          InvalidInst,
		next:          InvalidInst,
	})
	for _, rv := range results {
		f.values[rv].inst = id
	}

	bd := &f.blocks[block]
	if bd.lastInst == InvalidInst {
		bd.firstInst = id
		bd.lastInst = id
	} else {
		f.insts[bd.lastInst].next = id
		f.insts[id].prev = bd.lastInst
		bd.lastInst = id
	}
	return id, results
}

// prependInst links a freshly described instruction onto the *head* of
// block's instruction list. Used only by the SSA builder's zero
// materialization (§4.1), which must stand in for a missing definition
// before anything else in the block runs.
func (f *Function) prependInst(block BlockID, b instBuilder, resultTypes []types.Type) (InstID, []ValueID) {
	opStart, opLen := f.poolAppend(b.operands)

	resStart := len(f.operandPool)
	results := make([]ValueID, len(resultTypes))
	for i, rt := range resultTypes {
		results[i] = f.newValue(rt)
	}
	f.operandPool = append(f.operandPool, results...)
	for i, rv := range results {
		f.values[rv].defKind = defInstResult
		f.values[rv].resultIdx = i
	}

	id := InstID(len(f.insts))
	f.insts = append(f.insts, instData{
		op:            b.op,
		overflow:      b.overflow,
		ctrlType:      b.ctrlType,
		operandsStart: opStart,
		operandsLen:   opLen,
		resultsStart:  resStart,
		resultsLen:    len(results),
		aux:           b.aux,
		block:         block,
		prev:          InvalidInst,
		next:          InvalidInst,
	})
	for _, rv := range results {
		f.values[rv].inst = id
	}

	bd := &f.blocks[block]
	if bd.firstInst == InvalidInst {
		bd.firstInst = id
		bd.lastInst = id
	} else {
		f.insts[id].next = bd.firstInst
		f.insts[bd.firstInst].prev = id
		bd.firstInst = id
	}
	return id, results
}

// paramIndex returns the index of value param within block b's parameter
// list, or -1 if it is not (or is no longer) one of them.
func (f *Function) paramIndex(b BlockID, param ValueID) int {
	for i, p := range f.blocks[b].params {
		if p == param {
			return i
		}
	}
	return -1
}

// replaceAllUses rewrites every operand occurrence of old to new: each
// instruction's operand range in the shared pool and every branch
// instruction's argument lists. Result slots in the pool are left alone,
// so old may be a provisional block parameter found trivial at sealing
// time (§4.1) or a folded instruction's result. Variable bindings held by
// the SSA builder are not touched here; the builder records its own alias
// for old.
// ReplaceAllUses is the exported form of replaceAllUses, for passes
// outside this package (internal/fold's constant folder) that rewire a
// folded instruction's consumers onto a newly materialized constant.
func (f *Function) ReplaceAllUses(old, new ValueID) {
	f.replaceAllUses(old, new)
}

func (f *Function) replaceAllUses(old, new ValueID) {
	for i := range f.insts {
		d := &f.insts[i]
		replaceInSlice(f.operandPool[d.operandsStart:d.operandsStart+d.operandsLen], old, new)
		switch f.insts[i].op {
		case OpBr:
			bt := f.insts[i].aux.(BranchTarget)
			replaceInSlice(bt.Args, old, new)
		case OpCondBr:
			aux := f.insts[i].aux.(CondBrAux)
			replaceInSlice(aux.Then.Args, old, new)
			replaceInSlice(aux.Else.Args, old, new)
		case OpSwitch:
			aux := f.insts[i].aux.(SwitchAux)
			for _, c := range aux.Cases {
				replaceInSlice(c.Target.Args, old, new)
			}
			replaceInSlice(aux.Default.Args, old, new)
		}
	}
}

func replaceInSlice(vs []ValueID, old, new ValueID) {
	for i := range vs {
		if vs[i] == old {
			vs[i] = new
		}
	}
}

// Emit appends a new instruction of opcode op to block, with the given
// operands and controlling type, producing values of the given result
// types. It is the single entry point every opcode-specific helper
// (emit.go's wrappers, the SSA builder, treeification's cloning
// step) funnels through, so the operand pool invariant in §3 always
// holds.
func (f *Function) Emit(block BlockID, op Opcode, ctrlType types.Type, overflow OverflowMode, operands []ValueID, resultTypes []types.Type, aux interface{}) (InstID, []ValueID) {
	if f.frozen {
		panic("hir: Emit on a frozen function")
	}
	return f.appendInst(block, instBuilder{op: op, overflow: overflow, ctrlType: ctrlType, operands: operands, aux: aux}, resultTypes)
}

// Invalidate discards cached analyses. A transformation that mutates the
// CFG must call this (or the narrower per-analysis Invalidate*) before
// returning, per the ordering guarantee in §5: a transformation either
// reports "unchanged" and leaves caches alone, or invalidates what it
// touched.
func (f *Function) Invalidate() {
	f.cfg = nil
	f.dom = nil
	f.loops = nil
}
