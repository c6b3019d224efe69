package hir

import "github.com/midenhir/compiler/internal/types"

// blockData is the arena entry for a block: its parameters, the intrusive
// list of instructions it owns (in program order), and the intrusive
// list link to its neighbors in the function's block order.
type blockData struct {
	params []ValueID

	firstInst InstID
	lastInst  InstID

	prev BlockID
	next BlockID

	// detached marks a block removed from the function's block order by
	// treeification (§4.3); its arena slot is retained so existing
	// BlockIDs elsewhere (e.g. stale maps built during the rewrite) stay
	// valid handles, they simply no longer appear in iteration.
	detached bool

	// isLoopHeader is set by the loop analysis (§4.2) and consulted by
	// treeification (§4.3) to decide whether a multi-predecessor block
	// must be preserved rather than duplicated.
	isLoopHeader bool
}

// NumParams returns the number of parameters block b declares.
func (f *Function) NumParams(b BlockID) int { return len(f.blocks[b].params) }

// Param returns the i-th parameter value of block b.
func (f *Function) Param(b BlockID, i int) ValueID { return f.blocks[b].params[i] }

// Params returns block b's parameter values, in order.
func (f *Function) Params(b BlockID) []ValueID {
	return f.blocks[b].params
}

// AppendParam adds a new parameter of type typ to block b and returns its
// value. Used both by front-end translation (typed locals become the
// entry block's parameters) and by the SSA builder when it must insert a
// provisional parameter to break a lookup cycle (§4.1).
func (f *Function) AppendParam(b BlockID, typ types.Type) ValueID {
	v := f.newValue(typ)
	idx := len(f.blocks[b].params)
	f.values[v].defKind = defBlockParam
	f.values[v].block = b
	f.values[v].paramIdx = idx
	f.blocks[b].params = append(f.blocks[b].params, v)
	return v
}

// RemoveParam deletes block b's parameter at index i. Used when the SSA
// builder discovers, at sealing time, that a provisional parameter is
// unnecessary because all predecessors agree on one value (§4.1 step 3).
// Any parameter after i shifts down by one and its paramIdx is updated.
func (f *Function) RemoveParam(b BlockID, i int) {
	bd := &f.blocks[b]
	bd.params = append(bd.params[:i], bd.params[i+1:]...)
	for j := i; j < len(bd.params); j++ {
		f.values[bd.params[j]].paramIdx = j
	}
}

// IsEmpty reports whether block b has no instructions and no parameters
// (spec.md §8: such a block must survive the pipeline unchanged).
func (f *Function) IsEmpty(b BlockID) bool {
	bd := f.blocks[b]
	return bd.firstInst == InvalidInst && len(bd.params) == 0
}

// Instructions returns the instructions owned by block b, in program
// order.
func (f *Function) Instructions(b BlockID) []InstID {
	var out []InstID
	for id := f.blocks[b].firstInst; id != InvalidInst; id = f.insts[id].next {
		out = append(out, id)
	}
	return out
}

// Terminator returns the last instruction of block b, or InvalidInst if b
// has no instructions yet. By construction every fully-built block's
// terminator is one of Br/CondBr/Switch/Ret/Unreachable.
func (f *Function) Terminator(b BlockID) InstID {
	last := f.blocks[b].lastInst
	return last
}

// IsLoopHeader reports whether the loop analysis has marked b as a loop
// header (§4.2).
func (f *Function) IsLoopHeader(b BlockID) bool { return f.blocks[b].isLoopHeader }

// SetLoopHeader is called by the loop analysis to record its finding.
func (f *Function) SetLoopHeader(b BlockID, v bool) { f.blocks[b].isLoopHeader = v }

// IsDetached reports whether b has been removed from the function's block
// order (e.g. by treeification's subtree detach step).
func (f *Function) IsDetached(b BlockID) bool { return f.blocks[b].detached }

// CreateBlock allocates a new block and appends it to the function's
// block order (at the tail, as the teacher's own SSA builder does when a
// front end emits blocks in program order).
func (f *Function) CreateBlock() BlockID {
	id := BlockID(len(f.blocks))
	f.blocks = append(f.blocks, blockData{firstInst: InvalidInst, lastInst: InvalidInst, prev: InvalidBlock, next: InvalidBlock})
	if f.firstBlock == InvalidBlock {
		f.firstBlock = id
		f.lastBlock = id
	} else {
		f.blocks[f.lastBlock].next = id
		f.blocks[id].prev = f.lastBlock
		f.lastBlock = id
	}
	return id
}

// DetachBlock is the exported form of detachBlock, for passes outside
// this package (treeification) that need to remove a block from the
// function's order directly.
func (f *Function) DetachBlock(b BlockID) { f.detachBlock(b) }

// detachBlock removes b from the function's block order without freeing
// its arena slot (§4.3 step 3). Its instructions remain addressable (a
// stale value map built mid-rewrite may still reference them) but are no
// longer reachable by block iteration.
func (f *Function) detachBlock(b BlockID) {
	bd := &f.blocks[b]
	if bd.detached {
		return
	}
	bd.detached = true
	if bd.prev != InvalidBlock {
		f.blocks[bd.prev].next = bd.next
	} else {
		f.firstBlock = bd.next
	}
	if bd.next != InvalidBlock {
		f.blocks[bd.next].prev = bd.prev
	} else {
		f.lastBlock = bd.prev
	}
}

// BlockOrder returns the function's blocks in intrusive list order
// (creation order, as rewritten by any pass that detaches blocks).
func (f *Function) BlockOrder() []BlockID {
	var out []BlockID
	for id := f.firstBlock; id != InvalidBlock; id = f.blocks[id].next {
		out = append(out, id)
	}
	return out
}
