// Package depgraph builds the per-block dependency graph of spec.md §4.4:
// a directed graph over a block's instructions (plus implicit nodes for
// its parameters) whose edges encode data dependencies, the program order
// of side-effectful instructions, and a terminator anchor tying off any
// side effect the terminator does not otherwise consume. It is the input
// to the tree-graph condensation in internal/treegraph.
package depgraph

import "github.com/midenhir/compiler/internal/hir"

// NodeKind distinguishes the two node shapes a dependency graph carries:
// a concrete instruction, or a block parameter standing in for a value
// defined outside the block.
type NodeKind uint8

const (
	NodeInst NodeKind = iota
	NodeParam
)

// Node identifies one dependency-graph node. Exactly one of Inst/Param is
// meaningful, selected by Kind.
type Node struct {
	Kind  NodeKind
	Inst  hir.InstID
	Param hir.ValueID
}

func instNode(id hir.InstID) Node  { return Node{Kind: NodeInst, Inst: id} }
func paramNode(v hir.ValueID) Node { return Node{Kind: NodeParam, Param: v} }

// DependencyID indexes the graph's dependency table (spec.md §4.4: "each
// edge carries a DependencyId that indexes into a per-graph dependency
// table").
type DependencyID int

// edge is one row of the dependency table: dependent depends on
// dependency, and multiUse records whether dependency is the source of
// more than one edge in the whole graph (i.e. its result is consumed more
// than once — the signal the tree-graph condensation cuts on).
type edge struct {
	dependent  Node
	dependency Node
	multiUse   bool
}

// Graph is the dependency graph of one block.
type Graph struct {
	block hir.BlockID

	edges []edge

	// incoming/outgoing index dependency IDs by node: incoming[n] are the
	// edges where n is the dependent (n's operands); outgoing[n] are the
	// edges where n is the dependency (n's consumers).
	incoming map[Node][]DependencyID
	outgoing map[Node][]DependencyID
}

// Block returns the block this graph was built for.
func (g *Graph) Block() hir.BlockID { return g.block }

// Dependents returns the dependency IDs of n's operands (edges where n is
// the dependent side).
func (g *Graph) Dependents(n Node) []DependencyID { return g.incoming[n] }

// Consumers returns the dependency IDs of n's consumers (edges where n is
// the dependency side) — this is exactly the cut set's input: len > 1
// means n has more than one predecessor edge in treegraph terms.
func (g *Graph) Consumers(n Node) []DependencyID { return g.outgoing[n] }

// Edge returns the (dependent, dependency, multiUse) triple for id.
func (g *Graph) Edge(id DependencyID) (dependent, dependency Node, multiUse bool) {
	e := g.edges[id]
	return e.dependent, e.dependency, e.multiUse
}

// NumDependencies returns the size of the dependency table.
func (g *Graph) NumDependencies() int { return len(g.edges) }

// Build constructs the dependency graph for block b of f.
func Build(f *hir.Function, b hir.BlockID) *Graph {
	g := &Graph{
		block:    b,
		incoming: make(map[Node][]DependencyID),
		outgoing: make(map[Node][]DependencyID),
	}

	owner := make(map[hir.ValueID]Node)
	for _, p := range f.Params(b) {
		owner[p] = paramNode(p)
	}

	insts := f.Instructions(b)

	var add func(dependent, dependency Node)
	add = func(dependent, dependency Node) {
		id := DependencyID(len(g.edges))
		g.edges = append(g.edges, edge{dependent: dependent, dependency: dependency})
		g.incoming[dependent] = append(g.incoming[dependent], id)
		g.outgoing[dependency] = append(g.outgoing[dependency], id)
	}

	var lastSideEffect Node
	haveLastSideEffect := false

	for _, inst := range insts {
		n := instNode(inst)

		// Data edges: to the defining node of each operand that is
		// defined within this block (an operand defined elsewhere is a
		// cross-block SSA value the dependency graph does not model —
		// the stackifier consumes it as an already-materialized value).
		for _, v := range f.Args(inst) {
			if def, ok := owner[v]; ok {
				add(n, def)
			}
		}

		// Ordering edges: side-effectful instructions chain to the
		// previous one in program order, preserving load/store/call/
		// assert/global-mutation order through the condensation and
		// emission passes that follow.
		if f.Opcode(inst).HasSideEffects() {
			if haveLastSideEffect {
				add(n, lastSideEffect)
			}
			lastSideEffect = n
			haveLastSideEffect = true
		}

		for _, r := range f.Results(inst) {
			owner[r] = n
		}
	}

	// Terminator anchor: the terminator must execute after every
	// side-effectful instruction in the block, even one it never reads
	// an operand from. The ordering-edge chain above already threads
	// every side-effectful instruction to its predecessor, so anchoring
	// the terminator to the last one transitively anchors all of them.
	if len(insts) > 0 {
		term := insts[len(insts)-1]
		termNode := instNode(term)
		if haveLastSideEffect && lastSideEffect != termNode {
			add(termNode, lastSideEffect)
		}
	}

	for n, out := range g.outgoing {
		multi := len(out) > 1
		if !multi {
			continue
		}
		for _, id := range out {
			g.edges[id].multiUse = true
		}
		_ = n
	}

	return g
}
