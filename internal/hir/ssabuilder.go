package hir

import "github.com/midenhir/compiler/internal/types"

// Variable names a source-level local across the lifetime of one Builder;
// the WASM front end assigns one per local/stack slot it tracks and
// forgets the numbering once the function is built.
type Variable int32

// undefParam is a provisional block parameter awaiting resolution at
// seal time, because its block was not yet sealed when the variable was
// first read there (§4.1).
type undefParam struct {
	v     Variable
	param ValueID
}

// Builder implements the Braun, Buchwald, Hack, Leißa, Mallon & Zwinkau
// algorithm for incremental SSA construction directly on the HIR: callers
// declare blocks and their predecessor edges as they are discovered (which
// may be before the predecessor itself is fully emitted, for forward
// branches), write and read per-block-scoped variables, and seal each
// block once all of its predecessors are known. The builder never
// recurses directly — every lookup that must chase predecessors runs on
// an explicit work stack (§4.1's "recursion bound"), so pathologically
// deep single-entry chains can't blow the host stack.
type Builder struct {
	f        *Function
	varTypes map[Variable]types.Type

	defs   map[defKey]ValueID
	sealed map[BlockID]bool
	preds  map[BlockID][]predEdge
	undef  map[BlockID][]undefParam
	alias  map[ValueID]ValueID

	sideEffects []BlockID
}

type defKey struct {
	v     Variable
	block BlockID
}

// Arm selects which outgoing arm of a terminator a predecessor edge
// refers to: ArmThen/ArmElse for CondBr, a non-negative case index for
// Switch, or ArmDefault for a switch's default arm (Br has exactly one
// arm, always ArmThen). Exported so downstream passes (treeification)
// that need to know which argument list a given edge feeds can share the
// same vocabulary as the builder.
type Arm int

const (
	ArmThen    Arm = 0
	ArmElse    Arm = 1
	ArmDefault Arm = -1
)

type predEdge struct {
	block  BlockID
	branch InstID
	arm    Arm // case index (>=0) for Switch, ArmThen/ArmElse for CondBr
}

// NewBuilder starts SSA construction over f.
func NewBuilder(f *Function) *Builder {
	return &Builder{
		f:        f,
		varTypes: make(map[Variable]types.Type),
		defs:     make(map[defKey]ValueID),
		sealed:   make(map[BlockID]bool),
		preds:    make(map[BlockID][]predEdge),
		undef:    make(map[BlockID][]undefParam),
		alias:    make(map[ValueID]ValueID),
	}
}

// DeclareBlock registers b with the builder. Blocks must be declared
// before any DeclareVar/DefVar/UseVar call names them, but may be
// declared in any order relative to their eventual predecessors.
func (b *Builder) DeclareBlock(block BlockID) {
	if _, ok := b.preds[block]; !ok {
		b.preds[block] = nil
	}
}

// DeclareBlockPredecessor records that branchInst (already emitted in
// some predecessor block) targets block along one of its arms. The
// predecessor need not be sealed, or even finished being built beyond
// having emitted its terminator; the builder appends the correct argument
// to branchInst lazily, once the variable it resolves is known (§4.1).
func (b *Builder) DeclareBlockPredecessor(block BlockID, branchInst InstID) {
	from := b.f.Block(branchInst)
	arm := b.claimArm(branchInst, block)
	b.preds[block] = append(b.preds[block], predEdge{block: from, branch: branchInst, arm: arm})
}

// claimArm finds the next not-yet-claimed arm of branchInst that targets
// block (a branch can target the same block from two arms, e.g. a switch
// whose default coincides with one of its cases).
func (b *Builder) claimArm(branchInst InstID, target BlockID) Arm {
	claimed := 0
	for _, e := range b.preds[target] {
		if e.branch == branchInst {
			claimed++
		}
	}
	switch b.f.Opcode(branchInst) {
	case OpBr:
		return ArmThen
	case OpCondBr:
		aux := b.f.Aux(branchInst).(CondBrAux)
		arms := []Arm{}
		if aux.Then.Block == target {
			arms = append(arms, ArmThen)
		}
		if aux.Else.Block == target {
			arms = append(arms, ArmElse)
		}
		if claimed < len(arms) {
			return arms[claimed]
		}
		return ArmThen
	case OpSwitch:
		aux := b.f.Aux(branchInst).(SwitchAux)
		var arms []Arm
		for i, c := range aux.Cases {
			if c.Target.Block == target {
				arms = append(arms, Arm(i))
			}
		}
		if aux.Default.Block == target {
			arms = append(arms, ArmDefault)
		}
		if claimed < len(arms) {
			return arms[claimed]
		}
		return ArmDefault
	}
	return ArmThen
}

// RemoveBlockPredecessor undoes a previously declared edge, used when a
// transform redirects a branch away from block. It removes the
// most-recently-declared matching edge.
func (b *Builder) RemoveBlockPredecessor(block BlockID, branchInst InstID) {
	edges := b.preds[block]
	for i := len(edges) - 1; i >= 0; i-- {
		if edges[i].branch == branchInst {
			b.preds[block] = append(edges[:i], edges[i+1:]...)
			return
		}
	}
}

// DeclareVar registers a variable's type, once, before any DefVar/UseVar
// call names it.
func (b *Builder) DeclareVar(v Variable, t types.Type) {
	b.varTypes[v] = t
}

// DefVar records that block defines v as value.
func (b *Builder) DefVar(v Variable, block BlockID, value ValueID) {
	b.defs[defKey{v, block}] = b.resolveAlias(value)
}

// UseVar resolves the current value of v as observed at the end of block,
// inserting block parameters and, where required, a zero-materializing
// instruction to stand in for a variable never written on some reachable
// path. It returns the resolved value together with the blocks that
// gained a new instruction as a side effect of the resolution (callers
// use this to know an until-now-empty block is no longer empty).
func (b *Builder) UseVar(v Variable, block BlockID) (ValueID, []BlockID) {
	b.sideEffects = nil
	result := b.drive([]task{{kind: taskUseVar, v: v, block: block}})
	return result[0], b.sideEffects
}

// SealBlock declares that block's predecessor set is now complete: every
// variable read there before it was sealed gets its pending block
// parameter resolved against the final predecessor list.
func (b *Builder) SealBlock(block BlockID) []BlockID {
	b.sideEffects = nil
	b.sealed[block] = true
	pending := b.undef[block]
	delete(b.undef, block)
	for _, up := range pending {
		preds := b.preds[block]
		work := make([]task, 0, len(preds)+1)
		work = append(work, task{kind: taskFinishMulti, v: up.v, block: block, param: up.param, preds: preds})
		for i := len(preds) - 1; i >= 0; i-- {
			work = append(work, task{kind: taskUseVar, v: up.v, block: preds[i].block})
		}
		b.drive(work)
	}
	return b.sideEffects
}

type taskKind uint8

const (
	taskUseVar taskKind = iota
	taskFinishMulti
)

// task is one frame of the explicit work stack that replaces recursion in
// the Braun algorithm's mutually-recursive UseVar/FinishPredecessorsLookup
// calls (§4.1).
type task struct {
	kind  taskKind
	v     Variable
	block BlockID
	param ValueID
	preds []predEdge
}

// drive runs the work stack to completion, returning the accumulated
// result stack (one entry per net +1 contributed by each task type: a
// leaf taskUseVar contributes one value directly; a taskFinishMulti
// consumes the len(preds) values its sibling taskUseVar frames produced
// and replaces them with one).
func (b *Builder) drive(work []task) []ValueID {
	var results []ValueID
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]

		switch cur.kind {
		case taskUseVar:
			if val, ok := b.defs[defKey{cur.v, cur.block}]; ok {
				results = append(results, b.resolveAlias(val))
				continue
			}
			t := b.varTypes[cur.v]
			if !b.sealed[cur.block] {
				param := b.f.AppendParam(cur.block, t)
				b.defs[defKey{cur.v, cur.block}] = param
				b.undef[cur.block] = append(b.undef[cur.block], undefParam{v: cur.v, param: param})
				results = append(results, param)
				continue
			}
			preds := b.preds[cur.block]
			if len(preds) == 0 {
				zero := b.materializeZero(cur.block, t)
				b.defs[defKey{cur.v, cur.block}] = zero
				results = append(results, zero)
				continue
			}
			param := b.f.AppendParam(cur.block, t)
			b.defs[defKey{cur.v, cur.block}] = param
			work = append(work, task{kind: taskFinishMulti, v: cur.v, block: cur.block, param: param, preds: preds})
			for i := len(preds) - 1; i >= 0; i-- {
				work = append(work, task{kind: taskUseVar, v: cur.v, block: preds[i].block})
			}

		case taskFinishMulti:
			n := len(cur.preds)
			predVals := append([]ValueID{}, results[len(results)-n:]...)
			results = results[:len(results)-n]
			final := b.finishParam(cur.v, cur.block, cur.param, cur.preds, predVals)
			results = append(results, final)
		}
	}
	return results
}

// finishParam decides whether param is trivial (every predecessor agrees
// on one value, ignoring self-references along back edges) and either
// removes it, rewriting every existing use to the agreed value, or keeps
// it and grows each predecessor's branch argument list.
func (b *Builder) finishParam(v Variable, block BlockID, param ValueID, preds []predEdge, predVals []ValueID) ValueID {
	var unique ValueID = InvalidValue
	trivial := true
	for _, pv := range predVals {
		rv := b.resolveAlias(pv)
		if rv == param {
			continue
		}
		if unique == InvalidValue {
			unique = rv
		} else if unique != rv {
			trivial = false
		}
	}

	if trivial && unique != InvalidValue {
		idx := b.f.paramIndex(block, param)
		b.f.RemoveParam(block, idx)
		b.f.replaceAllUses(param, unique)
		b.alias[param] = unique
		b.defs[defKey{v, block}] = unique
		return unique
	}

	for i, e := range preds {
		b.appendBranchArg(e, b.resolveAlias(predVals[i]))
	}
	return param
}

// resolveAlias follows the chain left behind by trivial-param removal.
func (b *Builder) resolveAlias(v ValueID) ValueID {
	for {
		next, ok := b.alias[v]
		if !ok {
			return v
		}
		v = next
	}
}

// materializeZero inserts a zero-valued constant at the start of block,
// standing in for a variable used on a path that never writes it — the
// behavior spec.md §4.1 requires for a sealed, predecessor-less block
// (reachable only as, e.g., an unreachable landing pad the front end
// still emits a body for).
func (b *Builder) materializeZero(block BlockID, t types.Type) ValueID {
	imm, ok := types.ZeroImmediate(t)
	if !ok {
		imm = types.ImmUsize(0)
	}
	op := constOpcodeFor(t)
	id, results := b.f.prependInst(block, instBuilder{op: op, ctrlType: t, aux: imm}, []types.Type{t})
	b.sideEffects = append(b.sideEffects, block)
	_ = id
	return results[0]
}

// appendBranchArg grows the argument list of the arm e.arm of e.branch
// (which targets the block being resolved) by val.
func (b *Builder) appendBranchArg(e predEdge, val ValueID) {
	f := b.f
	d := &f.insts[e.branch]
	switch f.Opcode(e.branch) {
	case OpBr:
		bt := d.aux.(BranchTarget)
		bt.Args = append(bt.Args, val)
		d.aux = bt
	case OpCondBr:
		aux := d.aux.(CondBrAux)
		if e.arm == ArmElse {
			aux.Else.Args = append(aux.Else.Args, val)
		} else {
			aux.Then.Args = append(aux.Then.Args, val)
		}
		d.aux = aux
	case OpSwitch:
		aux := d.aux.(SwitchAux)
		if e.arm == ArmDefault {
			aux.Default.Args = append(aux.Default.Args, val)
		} else {
			aux.Cases[int(e.arm)].Target.Args = append(aux.Cases[int(e.arm)].Target.Args, val)
		}
		d.aux = aux
	}
}
