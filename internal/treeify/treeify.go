// Package treeify implements the CFG-to-tree transformation of spec.md
// §4.3: every non-loop-header block with more than one predecessor is
// duplicated once per predecessor, so stack-machine code generation can
// emit each block inline at its unique call site instead of managing
// block parameters as named stack slots across a join.
package treeify

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/types"
)

// Run rewrites f's CFG in place. It assumes f.Loops() has already been
// run (or will be run fresh afterward — Run invalidates the cached CFG,
// dominators, and loop forest once it makes any change, per the §5
// ordering guarantee) so loop headers are known and excluded from
// candidacy.
//
// It rejects a switch with a critical edge (a case or default target
// that also has other predecessors the switch doesn't dominate cleanly
// into its own private copy) by returning an error, per §4.3's
// "invariant violations that reject input" — treeification assumes prior
// elimination of critical edges in switches and must fail loudly rather
// than silently mis-duplicate one.
func Run(f *hir.Function) error {
	loops := f.Loops()
	isHeader := func(b hir.BlockID) bool { return f.IsLoopHeader(b) }

	cfg := f.CFG()
	postorder := reversed(cfg.BlockOrder())
	// postorder here approximates a CFG postorder well enough for
	// candidate selection: later blocks in the reverse of the function's
	// existing block order are revisited only if still multi-predecessor
	// after earlier (structurally deeper) candidates have already been
	// resolved, which is what determines whether cloning is still needed.
	_ = loops

	changed := false
	for _, b := range postorder {
		if f.IsDetached(b) {
			continue
		}
		preds := cfg.Preds(b)
		if len(preds) <= 1 || isHeader(b) {
			continue
		}
		if err := rejectCriticalSwitchEdges(f, preds); err != nil {
			return err
		}
		if err := treeifyOne(f, b, preds, isHeader); err != nil {
			return err
		}
		changed = true
		// Re-derive the CFG for subsequent candidates: earlier blocks in
		// postorder may have had their predecessor edges rewritten by
		// this step if they lay within b's duplicated subtree.
		f.InvalidateCFG()
		cfg = f.CFG()
	}

	if changed {
		logrus.WithField("function", f.Name).Debug("treeify: CFG rewritten")
	} else {
		logrus.WithField("function", f.Name).Debug("treeify: already a tree, no changes")
	}
	return nil
}

// rejectCriticalSwitchEdges fails loudly if any predecessor of a
// treeify candidate reaches it via a Switch whose case/default arm is a
// critical edge (the case target has other predecessors too) — §4.3
// requires these already eliminated before this pass runs.
func rejectCriticalSwitchEdges(f *hir.Function, preds []hir.PredEdge) error {
	for _, e := range preds {
		if f.Opcode(e.Branch) != hir.OpSwitch {
			continue
		}
		from := e.Block
		if len(f.CFG().Succs(from)) <= 1 {
			continue
		}
		return errors.Errorf("treeify: switch in block %d has a critical edge into a multi-predecessor, non-header target; eliminate it before treeification", from)
	}
	return nil
}

func reversed(bs []hir.BlockID) []hir.BlockID {
	out := make([]hir.BlockID, len(bs))
	for i, b := range bs {
		out[len(bs)-1-i] = b
	}
	return out
}

// treeifyOne duplicates b's successor subtree once per predecessor in
// preds (a snapshot taken before any rewriting begins, since b's own
// instructions are never mutated by this process — only its
// predecessors' terminators and the newly created clones are), then
// detaches the original subtree.
func treeifyOne(f *hir.Function, b hir.BlockID, preds []hir.PredEdge, isHeader func(hir.BlockID) bool) error {
	for _, e := range preds {
		valueMap := make(map[hir.ValueID]hir.ValueID)
		blockMap := make(map[hir.BlockID]hir.BlockID)

		args := armArgs(f, e)
		params := f.Params(b)
		if len(args) != len(params) {
			return errors.Errorf("treeify: block %d expects %d arguments, predecessor supplied %d", b, len(params), len(args))
		}
		for i, p := range params {
			valueMap[p] = args[i]
		}

		clone := cloneSubtree(f, b, valueMap, blockMap, isHeader)
		redirectPredecessor(f, e, clone)
	}

	detachSubtree(f, b, isHeader)
	return nil
}

// redirectPredecessor rewrites e's terminator so its e.Arm arm targets
// newTarget instead of the original candidate block, carrying no
// arguments — the candidate's parameters were already resolved into
// e's concrete argument values and baked into newTarget's cloned
// instructions by treeifyOne's valueMap, so the edge into it is now a
// plain jump (§4.3 step 2: "rewrite P's terminator to target B' with no
// arguments").
func redirectPredecessor(f *hir.Function, e hir.PredEdge, newTarget hir.BlockID) {
	f.RetargetArm(e.Branch, e.Arm, newTarget, nil)
}

// detachSubtree removes the original, now-unreachable subtree rooted at
// b from the function's block order, stopping at loop headers (which
// remain shared and reachable from whatever else still targets them)
// and at any block already detached by an earlier candidate's rewrite.
func detachSubtree(f *hir.Function, b hir.BlockID, isHeader func(hir.BlockID) bool) {
	if isHeader(b) || f.IsDetached(b) {
		return
	}
	term := f.Terminator(b)
	if term != hir.InvalidInst {
		for _, s := range f.Successors(term) {
			detachSubtree(f, s, isHeader)
		}
	}
	f.DetachBlock(b)
}

// armArgs returns the concrete argument values e.Branch passes along its
// e.Arm arm.
func armArgs(f *hir.Function, e hir.PredEdge) []hir.ValueID {
	switch f.Opcode(e.Branch) {
	case hir.OpBr:
		return f.Aux(e.Branch).(hir.BranchTarget).Args
	case hir.OpCondBr:
		aux := f.Aux(e.Branch).(hir.CondBrAux)
		if e.Arm == hir.ArmElse {
			return aux.Else.Args
		}
		return aux.Then.Args
	case hir.OpSwitch:
		aux := f.Aux(e.Branch).(hir.SwitchAux)
		if e.Arm == hir.ArmDefault {
			return aux.Default.Args
		}
		return aux.Cases[int(e.Arm)].Target.Args
	}
	return nil
}

// cloneSubtree recursively copies the blocks reachable from orig
// (stopping at loop headers, which are shared rather than duplicated —
// see the package doc in design notes for why this is a deliberate
// simplification of the literal per-predecessor header-sharing rule),
// rewriting operands through valueMap and targets through blockMap, and
// returns the root of the clone (or orig itself, unchanged, if orig is a
// loop header).
func cloneSubtree(f *hir.Function, orig hir.BlockID, valueMap map[hir.ValueID]hir.ValueID, blockMap map[hir.BlockID]hir.BlockID, isHeader func(hir.BlockID) bool) hir.BlockID {
	if isHeader(orig) {
		return orig
	}
	if existing, ok := blockMap[orig]; ok {
		return existing
	}

	dst := f.CreateBlock()
	blockMap[orig] = dst

	for _, inst := range f.Instructions(orig) {
		cloneInst(f, inst, dst, valueMap, blockMap, isHeader)
	}
	return dst
}

func mapValue(valueMap map[hir.ValueID]hir.ValueID, v hir.ValueID) hir.ValueID {
	if mv, ok := valueMap[v]; ok {
		return mv
	}
	return v
}

func mapArgs(valueMap map[hir.ValueID]hir.ValueID, args []hir.ValueID) []hir.ValueID {
	out := make([]hir.ValueID, len(args))
	for i, a := range args {
		out[i] = mapValue(valueMap, a)
	}
	return out
}

// cloneInst emits a copy of inst into dst, remapping its operands and,
// for a terminator, its successor targets (recursively cloning them)
// and their argument lists.
func cloneInst(f *hir.Function, inst hir.InstID, dst hir.BlockID, valueMap map[hir.ValueID]hir.ValueID, blockMap map[hir.BlockID]hir.BlockID, isHeader func(hir.BlockID) bool) {
	op := f.Opcode(inst)
	ctrl := f.ControllingType(inst)
	ovf := f.OverflowMode(inst)

	switch op {
	case hir.OpBr:
		bt := f.Aux(inst).(hir.BranchTarget)
		target := cloneSubtree(f, bt.Block, valueMap, blockMap, isHeader)
		f.Br(dst, target, mapArgs(valueMap, bt.Args))
		return
	case hir.OpCondBr:
		aux := f.Aux(inst).(hir.CondBrAux)
		cond := mapValue(valueMap, f.Args(inst)[0])
		thenTarget := cloneSubtree(f, aux.Then.Block, valueMap, blockMap, isHeader)
		elseTarget := cloneSubtree(f, aux.Else.Block, valueMap, blockMap, isHeader)
		f.CondBr(dst, cond,
			hir.BranchTarget{Block: thenTarget, Args: mapArgs(valueMap, aux.Then.Args)},
			hir.BranchTarget{Block: elseTarget, Args: mapArgs(valueMap, aux.Else.Args)})
		return
	case hir.OpSwitch:
		aux := f.Aux(inst).(hir.SwitchAux)
		sel := mapValue(valueMap, f.Args(inst)[0])
		cases := make([]hir.SwitchCase, len(aux.Cases))
		for i, c := range aux.Cases {
			t := cloneSubtree(f, c.Target.Block, valueMap, blockMap, isHeader)
			cases[i] = hir.SwitchCase{Value: c.Value, Target: hir.BranchTarget{Block: t, Args: mapArgs(valueMap, c.Target.Args)}}
		}
		dfltTarget := cloneSubtree(f, aux.Default.Block, valueMap, blockMap, isHeader)
		f.Switch(dst, sel, cases, hir.BranchTarget{Block: dfltTarget, Args: mapArgs(valueMap, aux.Default.Args)})
		return
	}

	newArgs := mapArgs(valueMap, f.Args(inst))
	origResults := f.Results(inst)
	resultTypes := make([]types.Type, len(origResults))
	for i, r := range origResults {
		resultTypes[i] = f.ValueType(r)
	}

	_, newResults := f.Emit(dst, op, ctrl, ovf, newArgs, resultTypes, f.Aux(inst))
	for i, r := range origResults {
		valueMap[r] = newResults[i]
	}
}
