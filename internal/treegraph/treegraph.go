// Package treegraph condenses a block's dependency graph (internal/depgraph)
// into expression trees, per spec.md §4.5: every node with more than one
// consumer becomes a cut point, the remaining single-consumer edges
// collapse into trees rooted at whichever node has no further consumer,
// and the cut edges are reinserted as inter-tree edges between roots. The
// stackifier (internal/stackify) walks this structure rather than the raw
// dependency graph.
package treegraph

import (
	"container/heap"

	"github.com/midenhir/compiler/internal/depgraph"
	"github.com/midenhir/compiler/internal/hir"
	"github.com/pkg/errors"
)

type interEdge struct {
	consumer, producer depgraph.Node
	deps               []depgraph.DependencyID
}

// Graph is the tree-graph condensation of one block's dependency graph.
type Graph struct {
	dg *depgraph.Graph

	condensed map[depgraph.Node]depgraph.Node
	roots     []depgraph.Node
	order     map[depgraph.Node]int // program-order index, for toposort tie-breaking

	// byConsumer/byProducer index inter-tree edges by each side's root,
	// so Predecessors/Successors/NumDependents need no linear scan.
	byConsumer map[depgraph.Node][]*interEdge
	byProducer map[depgraph.Node][]*interEdge
}

// IsRoot reports whether n is its own tree's root.
func (g *Graph) IsRoot(n depgraph.Node) bool { return g.condensed[n] == n }

// Root returns the root of the tree containing n (n itself, if n is a
// root).
func (g *Graph) Root(n depgraph.Node) depgraph.Node { return g.condensed[n] }

// Roots returns every tree root, in no particular order (use Toposort
// for an ordered walk).
func (g *Graph) Roots() []depgraph.Node { return g.roots }

// Predecessors returns the roots of trees that consume from root —
// i.e. the other end of every inter-tree edge where root is the
// dependency (the value root's tree produces is read elsewhere).
func (g *Graph) Predecessors(root depgraph.Node) []depgraph.Node {
	edges := g.byProducer[root]
	out := make([]depgraph.Node, len(edges))
	for i, e := range edges {
		out[i] = e.consumer
	}
	return out
}

// Successors returns the roots of trees consumed by root — root's own
// cross-tree dependencies.
func (g *Graph) Successors(root depgraph.Node) []depgraph.Node {
	edges := g.byConsumer[root]
	out := make([]depgraph.Node, len(edges))
	for i, e := range edges {
		out[i] = e.producer
	}
	return out
}

// NumDependents returns, for a root, the number of inter-tree edges
// referencing it as producer; for a node condensed into some other root,
// that same count plus one for its single intra-tree consumer (the
// parent edge that condensed it in the first place).
func (g *Graph) NumDependents(n depgraph.Node) int {
	root := g.condensed[n]
	count := len(g.byProducer[root])
	if n != root {
		count++
	}
	return count
}

// Build condenses block b's dependency graph dg into a tree graph.
func Build(f *hir.Function, b hir.BlockID, dg *depgraph.Graph) *Graph {
	g := &Graph{
		dg:         dg,
		condensed:  make(map[depgraph.Node]depgraph.Node),
		order:      make(map[depgraph.Node]int),
		byConsumer: make(map[depgraph.Node][]*interEdge),
		byProducer: make(map[depgraph.Node][]*interEdge),
	}

	idx := 0
	var nodes []depgraph.Node
	for _, p := range f.Params(b) {
		n := depgraph.Node{Kind: depgraph.NodeParam, Param: p}
		g.order[n] = idx
		idx++
		nodes = append(nodes, n)
	}
	for _, inst := range f.Instructions(b) {
		n := depgraph.Node{Kind: depgraph.NodeInst, Inst: inst}
		g.order[n] = idx
		idx++
		nodes = append(nodes, n)
	}

	// Condense: walk each node up through its single non-cut consumer
	// edge (if it has exactly one consumer, that edge cannot be
	// multi-use) until reaching a node with zero or multiple consumers —
	// that node is the tree's root by construction.
	rootOf := func(n depgraph.Node) depgraph.Node {
		cur := n
		for {
			out := dg.Consumers(cur)
			if len(out) != 1 {
				// Zero consumers: cur is a dead end, a root. More than
				// one: every edge here is multi-use by depgraph's own
				// invariant, so cur is a cut point and a root too.
				return cur
			}
			dependent, _, _ := dg.Edge(out[0])
			cur = dependent
		}
	}
	seenRoot := make(map[depgraph.Node]bool)
	for _, n := range nodes {
		r := rootOf(n)
		g.condensed[n] = r
		if !seenRoot[r] {
			seenRoot[r] = true
			g.roots = append(g.roots, r)
		}
	}

	// Reinsert the cut set (every multi-use edge) as inter-tree edges
	// between roots, aggregating the original dependency IDs each
	// (consumer-root, producer-root) pair carries.
	byPair := make(map[[2]depgraph.Node]*interEdge)
	for i := 0; i < dg.NumDependencies(); i++ {
		id := depgraph.DependencyID(i)
		dependent, dependency, multiUse := dg.Edge(id)
		if !multiUse {
			continue
		}
		cr, pr := g.condensed[dependent], g.condensed[dependency]
		key := [2]depgraph.Node{cr, pr}
		e, ok := byPair[key]
		if !ok {
			e = &interEdge{consumer: cr, producer: pr}
			byPair[key] = e
			g.byConsumer[cr] = append(g.byConsumer[cr], e)
			g.byProducer[pr] = append(g.byProducer[pr], e)
		}
		e.deps = append(e.deps, id)
	}

	return g
}

// toposortItem is one entry of the ready-heap, ordered by program
// position so ties among simultaneously-ready roots break in CFG
// program order of the root instruction (spec.md §4.5).
type toposortItem struct {
	node  depgraph.Node
	order int
}

type readyHeap []toposortItem

func (h readyHeap) Len() int           { return len(h) }
func (h readyHeap) Less(i, j int) bool  { return h[i].order < h[j].order }
func (h readyHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *readyHeap) Push(x interface{}) { *h = append(*h, x.(toposortItem)) }
func (h *readyHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Toposort runs Kahn's algorithm over the tree graph's roots, emitting a
// root only once every root that consumes from it has already been
// emitted (i.e. "reverse topological" relative to data flow — a root
// with no consumers, such as the block's terminator, is ready first).
// Ties among simultaneously-ready roots break by CFG program order of
// the root instruction. Fails if a cycle leaves roots un-emitted once the
// ready set runs dry — a bug in scheduling or an unexpected cycle in the
// dependency graph, per spec.md §4.6's failure modes.
func (g *Graph) Toposort() ([]depgraph.Node, error) {
	inDegree := make(map[depgraph.Node]int, len(g.roots))
	for _, r := range g.roots {
		inDegree[r] = len(g.byProducer[r])
	}

	ready := &readyHeap{}
	heap.Init(ready)
	for _, r := range g.roots {
		if inDegree[r] == 0 {
			heap.Push(ready, toposortItem{node: r, order: g.order[r]})
		}
	}

	var out []depgraph.Node
	for ready.Len() > 0 {
		item := heap.Pop(ready).(toposortItem)
		r := item.node
		out = append(out, r)
		for _, e := range g.byConsumer[r] {
			inDegree[e.producer]--
			if inDegree[e.producer] == 0 {
				heap.Push(ready, toposortItem{node: e.producer, order: g.order[e.producer]})
			}
		}
	}

	if len(out) != len(g.roots) {
		return nil, errors.Errorf("treegraph: toposort left %d of %d roots unresolved, indicating a cycle", len(g.roots)-len(out), len(g.roots))
	}
	return out, nil
}
