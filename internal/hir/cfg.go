package hir

// CFG is the control-flow graph over a function's (non-detached) blocks:
// for each block, its predecessors (with the instruction that branches to
// it) and successors, derived once from the terminator instructions and
// cached on Function until a mutating pass invalidates it (§4.2).
type CFG struct {
	preds map[BlockID][]PredEdge
	succs map[BlockID][]BlockID
	order []BlockID
}

// PredEdge names one incoming edge to a block: the predecessor block, the
// terminator instruction within it that targets the successor, and which
// arm of that terminator (Arm, shared with the SSA builder's own
// predecessor bookkeeping) supplies the edge.
type PredEdge struct {
	Block  BlockID
	Branch InstID
	Arm    Arm
}

// Preds returns b's predecessor edges, in the order its successors'
// branches were discovered during the walk that built the CFG.
func (c *CFG) Preds(b BlockID) []PredEdge { return c.preds[b] }

// Succs returns b's successor blocks, in terminator-arm order (then before
// else, cases before default).
func (c *CFG) Succs(b BlockID) []BlockID { return c.succs[b] }

// BlockOrder returns the blocks in the order the CFG walk visited them,
// which is the function's intrusive block order (§4.2 fixes this as the
// canonical order ties break against throughout the pipeline).
func (c *CFG) BlockOrder() []BlockID { return c.order }

// CFG computes (or returns the cached) control-flow graph for f.
func (f *Function) CFG() *CFG {
	if f.cfg != nil {
		return f.cfg
	}
	c := &CFG{
		preds: make(map[BlockID][]PredEdge),
		succs: make(map[BlockID][]BlockID),
	}
	for _, b := range f.BlockOrder() {
		c.order = append(c.order, b)
		term := f.Terminator(b)
		if term == InvalidInst {
			continue
		}
		for _, s := range f.successorsWithArm(term) {
			c.succs[b] = append(c.succs[b], s.block)
			c.preds[s.block] = append(c.preds[s.block], PredEdge{Block: b, Branch: term, Arm: s.arm})
		}
	}
	f.cfg = c
	return c
}

type armedSuccessor struct {
	block BlockID
	arm   Arm
}

// Successors returns the block targets of a terminator instruction, in
// arm order, without consulting the cached CFG — callers that mutate
// block layout mid-walk (treeification's detach step) need this live
// view rather than a snapshot that may be stale.
func (f *Function) Successors(term InstID) []BlockID {
	return f.successorsOf(term)
}

// successorsOf returns the block targets of a terminator instruction, in
// arm order.
func (f *Function) successorsOf(term InstID) []BlockID {
	var out []BlockID
	for _, s := range f.successorsWithArm(term) {
		out = append(out, s.block)
	}
	return out
}

// successorsWithArm is successorsOf with each target tagged by the arm
// that reaches it, so predecessor edges can later be told apart (needed
// when, e.g., a switch's default coincides with one of its cases).
func (f *Function) successorsWithArm(term InstID) []armedSuccessor {
	switch f.Opcode(term) {
	case OpBr:
		return []armedSuccessor{{f.Aux(term).(BranchTarget).Block, ArmThen}}
	case OpCondBr:
		aux := f.Aux(term).(CondBrAux)
		return []armedSuccessor{{aux.Then.Block, ArmThen}, {aux.Else.Block, ArmElse}}
	case OpSwitch:
		aux := f.Aux(term).(SwitchAux)
		out := make([]armedSuccessor, 0, len(aux.Cases)+1)
		for i, c := range aux.Cases {
			out = append(out, armedSuccessor{c.Target.Block, Arm(i)})
		}
		return append(out, armedSuccessor{aux.Default.Block, ArmDefault})
	}
	return nil
}

// InvalidateCFG discards the cached CFG and everything derived from it
// (dominators, loops), per the §5 ordering guarantee.
func (f *Function) InvalidateCFG() {
	f.cfg = nil
	f.dom = nil
	f.loops = nil
}
