package stackify

import (
	"fmt"

	"github.com/midenhir/compiler/internal/depgraph"
	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/masm"
	"github.com/midenhir/compiler/internal/treegraph"
	"github.com/midenhir/compiler/internal/types"
)

// EmitFunction stackifies every reachable block of f, in control-flow
// order, composing internal/treegraph's per-block trees into one
// flattened MASM procedure body: blocks with f's entry as their only
// predecessor are inlined in place, a CondBr whose arms diverge becomes a
// structured if.true/else, and a loop header (back-edge target) becomes a
// while.true wrapping its own body, per spec.md §4.6's loop-codegen
// paragraph. The function's own parameters are assumed already present on
// the stack when it is entered, parameter 0 on top through the last
// parameter deepest, the same convention used for every block's
// parameters.
func EmitFunction(f *hir.Function) []masm.Op {
	e := &emitter{f: f}
	e.walk(f.Entry(), true)
	return e.ops
}

// walk stackifies block b (claiming its already-delivered parameter
// values from the stack, or, when fresh, recording them as already
// present without emitting anything) and recurses into whatever blocks
// its terminator reaches.
func (e *emitter) walk(b hir.BlockID, fresh bool) {
	if e.f.IsLoopHeader(b) && !e.openLoops[b] {
		e.walkLoopHeader(b)
		return
	}

	dg, term := e.processRoots(b, fresh)
	op := e.f.Opcode(term)

	switch op {
	case hir.OpRet:
		e.positionValues(e.f.Args(term))
	case hir.OpUnreachable:
		e.ops = append(e.ops, masm.Raw("exec.intrinsics::panic::trap"))
	case hir.OpBr:
		bt := e.f.Aux(term).(hir.BranchTarget)
		e.positionValues(bt.Args)
		e.enterChild(bt.Block, false)
	case hir.OpCondBr:
		aux := e.f.Aux(term).(hir.CondBrAux)
		e.handleCondBr(term, aux)
	case hir.OpSwitch:
		aux := e.f.Aux(term).(hir.SwitchAux)
		e.handleSwitch(term, aux)
	default:
		panic(fmt.Sprintf("stackify: block %v ends in non-terminator opcode %s", b, op))
	}
	_ = dg
}

// processRoots builds b's dependency/tree graphs, claims or seeds its
// parameters, and materializes every non-terminator root in execution
// order, returning the block's terminator instruction for the caller to
// dispatch on.
func (e *emitter) processRoots(b hir.BlockID, fresh bool) (*depgraph.Graph, hir.InstID) {
	dg := depgraph.Build(e.f, b)
	e.enterBlock(b, dg, fresh)
	tg := treegraph.Build(e.f, b, dg)

	order, err := tg.Toposort()
	if err != nil {
		panic(err)
	}
	reverseNodes(order)

	term := e.f.Terminator(b)
	termNode := depgraph.Node{Kind: depgraph.NodeInst, Inst: term}
	for _, root := range order {
		if root == termNode {
			continue
		}
		e.ensurePresent(root)
	}
	return dg, term
}

// enterChild dispatches into a branch/jump target: a loop header reached
// for the first time gets wrapped in a while.true; a loop header reached
// again (a back edge) needs no further emission, since the positioning
// that ran just before this call already left the stack laid out for the
// next iteration; anything else is inlined in place.
func (e *emitter) enterChild(target hir.BlockID, fresh bool) {
	if e.f.IsLoopHeader(target) {
		if e.openLoops[target] {
			return
		}
		e.walkLoopHeader(target)
		return
	}
	e.walk(target, fresh)
}

// walkLoopHeader stackifies loop header h as a while.true: h's own body
// must end in a CondBr where one arm targets h itself (the continuation)
// and the other leaves the loop. The continuation arm's operand
// positioning re-establishes h's parameter layout for the next pass
// through the body, after which the (possibly negated) branch condition
// is brought back to the top as the while.true construct's own test.
func (e *emitter) walkLoopHeader(h hir.BlockID) {
	if e.openLoops == nil {
		e.openLoops = make(map[hir.BlockID]bool)
	}
	e.openLoops[h] = true
	defer delete(e.openLoops, h)

	_, term := e.processRoots(h, false)
	if e.f.Opcode(term) != hir.OpCondBr {
		panic(fmt.Sprintf("stackify: loop header %v must end in a conditional branch", h))
	}
	aux := e.f.Aux(term).(hir.CondBrAux)
	args := e.f.Args(term)
	selNode, selWidth := e.resolveOperand(args[0])
	e.useValue(selNode, selWidth)
	e.stack = e.stack[:len(e.stack)-selWidth]

	continueArm, breakArm := aux.Then, aux.Else
	invert := false
	if aux.Then.Block != h {
		continueArm, breakArm = aux.Else, aux.Then
		invert = true
	}

	preLoop := snapshotStack(e.stack)
	preRemain := cloneRemaining(e.remaining)

	bodyOps := e.captureOps(func() {
		e.positionValues(continueArm.Args)
		e.bringToTop(selNode, selWidth)
		if invert {
			e.ops = append(e.ops, masm.Raw(typePrefix(types.I1())+"not"))
		}
	})
	e.stack = e.stack[:len(e.stack)-selWidth]

	e.stack = snapshotStack(preLoop)
	e.remaining = cloneRemaining(preRemain)
	e.positionValues(breakArm.Args)

	e.ops = append(e.ops, masm.WhileTrue(bodyOps))
	e.enterChild(breakArm.Block, false)
}

// handleCondBr lowers a non-loop conditional branch to a structured
// if.true/else: both arms are stackified independently from the same
// pre-branch stack state, since this compiler's treeification duplicates
// any block both arms would otherwise reconverge on (spec.md §8 Scenario
// 2), so neither arm's continuation needs to be reconciled with the
// other's afterward.
func (e *emitter) handleCondBr(term hir.InstID, aux hir.CondBrAux) {
	args := e.f.Args(term)
	selNode, selWidth := e.resolveOperand(args[0])
	e.useValue(selNode, selWidth)
	e.stack = e.stack[:len(e.stack)-selWidth]

	stackSnap := snapshotStack(e.stack)
	remainSnap := cloneRemaining(e.remaining)

	thenOps := e.captureOps(func() {
		e.positionValues(aux.Then.Args)
		e.enterChild(aux.Then.Block, false)
	})

	e.stack = snapshotStack(stackSnap)
	e.remaining = cloneRemaining(remainSnap)

	elseOps := e.captureOps(func() {
		e.positionValues(aux.Else.Args)
		e.enterChild(aux.Else.Block, false)
	})

	e.ops = append(e.ops, masm.If(thenOps, elseOps))
}

// handleSwitch lowers a multi-way branch to a cascade of equality tests
// against a duplicated selector, not a jump table: spec.md's concrete
// scenarios never exercise Switch, so this scope is deliberately kept to
// the simplest correct construction rather than an optimized dispatch.
func (e *emitter) handleSwitch(term hir.InstID, aux hir.SwitchAux) {
	args := e.f.Args(term)
	selNode, selWidth := e.resolveOperand(args[0])
	e.useValue(selNode, selWidth)

	e.ops = append(e.ops, e.buildSwitchCascade(selNode, selWidth, aux.Cases, aux.Default)...)
}

func (e *emitter) buildSwitchCascade(selNode depgraph.Node, selWidth int, cases []hir.SwitchCase, dflt hir.BranchTarget) []masm.Op {
	if len(cases) == 0 {
		return e.captureOps(func() {
			e.dropTopSlots(selWidth)
			e.positionValues(dflt.Args)
			e.enterChild(dflt.Block, false)
		})
	}

	c := cases[0]
	stackSnap := snapshotStack(e.stack)
	remainSnap := cloneRemaining(e.remaining)

	thenOps := e.captureOps(func() {
		e.dropTopSlots(selWidth)
		e.positionValues(c.Target.Args)
		e.enterChild(c.Target.Block, false)
	})

	e.stack = snapshotStack(stackSnap)
	e.remaining = cloneRemaining(remainSnap)

	elseOps := e.buildSwitchCascade(selNode, selWidth, cases[1:], dflt)

	depth := len(e.stack) - 1 - e.findSlot(selNode, selWidth-1)
	testOps := []masm.Op{masm.Dup(uint64(depth)), masm.Push(uint64(c.Value)), masm.Raw("eq")}
	testOps = append(testOps, masm.If(thenOps, elseOps))
	return testOps
}

func (e *emitter) dropTopSlots(n int) {
	for i := 0; i < n; i++ {
		e.ops = append(e.ops, masm.Drop())
	}
	e.stack = e.stack[:len(e.stack)-n]
}

// captureOps runs fn with a fresh, empty instruction buffer and returns
// whatever it accumulated, restoring e.ops to what it held before the
// call — used to build each arm of a structured if/else or a loop body
// independently before splicing it into the enclosing Op.
func (e *emitter) captureOps(fn func()) []masm.Op {
	saved := e.ops
	e.ops = nil
	fn()
	captured := e.ops
	e.ops = saved
	return captured
}

func snapshotStack(s []slot) []slot {
	out := make([]slot, len(s))
	copy(out, s)
	return out
}

func cloneRemaining(m map[depgraph.Node]int) map[depgraph.Node]int {
	out := make(map[depgraph.Node]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func reverseNodes(ns []depgraph.Node) {
	for i, j := 0, len(ns)-1; i < j; i, j = i+1, j-1 {
		ns[i], ns[j] = ns[j], ns[i]
	}
}
