package treegraph

import (
	"testing"

	"github.com/midenhir/compiler/internal/depgraph"
	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/types"
	"github.com/stretchr/testify/require"
)

// buildMultiUse is scenario 5 from spec.md §8: v1 = mul v0, v0; v2 = add
// v1, v1; ret v2 — v1 is read twice, so it is a cut-set node and its own
// tree root, while add and ret (each consumed exactly once) condense into
// a single tree rooted at ret, the block's terminator.
func buildMultiUse(t *testing.T) (f *hir.Function, entry hir.BlockID, mul, add, ret hir.InstID) {
	t.Helper()
	f = hir.NewFunction("multiuse", hir.Signature{})
	entry = f.Entry()
	v0 := f.AppendParam(entry, types.UnsignedInt(32))

	var mulRes []hir.ValueID
	mul, mulRes = f.Emit(entry, hir.OpMul, types.UnsignedInt(32), hir.Unchecked, []hir.ValueID{v0, v0}, []types.Type{types.UnsignedInt(32)}, nil)
	v1 := mulRes[0]
	var addRes []hir.ValueID
	add, addRes = f.Emit(entry, hir.OpAdd, types.UnsignedInt(32), hir.Unchecked, []hir.ValueID{v1, v1}, []types.Type{types.UnsignedInt(32)}, nil)
	ret = f.Ret(entry, addRes)
	return
}

func TestBuildMultiUseCutsAtSharedValue(t *testing.T) {
	f, entry, mul, add, ret := buildMultiUse(t)
	dg := depgraph.Build(f, entry)
	tg := Build(f, entry, dg)

	mulNode := depgraph.Node{Kind: depgraph.NodeInst, Inst: mul}
	addNode := depgraph.Node{Kind: depgraph.NodeInst, Inst: add}
	retNode := depgraph.Node{Kind: depgraph.NodeInst, Inst: ret}

	require.True(t, tg.IsRoot(mulNode), "a value read twice must be its own tree root")
	require.True(t, tg.IsRoot(retNode), "the terminator has no consumer of its own, so it roots its tree")
	require.False(t, tg.IsRoot(addNode), "add is read exactly once (by ret), so it condenses into ret's tree")
	require.Equal(t, retNode, tg.Root(addNode))
	require.NotEqual(t, tg.Root(mulNode), tg.Root(addNode))

	// mul's tree is consumed (twice, but collapsed to one inter-tree
	// edge) by ret's tree.
	require.Contains(t, tg.Predecessors(mulNode), retNode)
	require.Contains(t, tg.Successors(retNode), mulNode)
}

func TestToposortOrdersConsumerBeforeProducer(t *testing.T) {
	f, entry, mul, _, ret := buildMultiUse(t)
	dg := depgraph.Build(f, entry)
	tg := Build(f, entry, dg)

	order, err := tg.Toposort()
	require.NoError(t, err)
	require.Len(t, order, len(tg.Roots()))

	mulNode := depgraph.Node{Kind: depgraph.NodeInst, Inst: mul}
	retNode := depgraph.Node{Kind: depgraph.NodeInst, Inst: ret}

	posOf := func(n depgraph.Node) int {
		for i, x := range order {
			if x == n {
				return i
			}
		}
		t.Fatalf("node not found in toposort output")
		return -1
	}
	require.Less(t, posOf(retNode), posOf(mulNode), "toposort emits the consumer (ret's tree) before the producer it depends on (mul's tree); stackify reverses this for execution order")
}

func TestNumDependentsCountsInterTreeEdges(t *testing.T) {
	f, entry, mul, _, _ := buildMultiUse(t)
	dg := depgraph.Build(f, entry)
	tg := Build(f, entry, dg)

	mulNode := depgraph.Node{Kind: depgraph.NodeInst, Inst: mul}
	require.Equal(t, 1, tg.NumDependents(mulNode), "mul is a root referenced by exactly one inter-tree edge (ret's tree), even though it's read twice within it")
}
