package hir

// DomTree is a function's dominator tree: for every block reachable from
// the entry, its immediate dominator, computed over the CFG's reverse
// postorder (§4.2). Unreachable blocks (never produced by a well-formed
// front end, but possible transiently mid-rewrite) have no entry, and
// Idom reports InvalidBlock for them.
//
// The construction follows the semidominator-free NCA formulation: a
// reverse-postorder numbering gives each block a rank, and the immediate
// dominator of b is the nearest-common-ancestor, under that rank, of all
// of b's already-processed predecessors — iterated to a fixpoint. This is
// the same fixpoint Semi-NCA's separate semidominator pass is designed to
// reach in one shot; for the block counts a single WebAssembly function
// produces the iterative form converges in a handful of passes and avoids
// a second auxiliary forest, so that is what is implemented here.
type DomTree struct {
	rpoNum map[BlockID]int
	rpo    []BlockID
	idom   map[BlockID]BlockID
	kids   map[BlockID][]BlockID
	entry  BlockID
}

// Idom returns b's immediate dominator, or InvalidBlock if b is
// unreachable from the entry.
func (d *DomTree) Idom(b BlockID) BlockID {
	if idom, ok := d.idom[b]; ok {
		return idom
	}
	return InvalidBlock
}

// Dominates reports whether a dominates b (every path from the entry to b
// passes through a). A block dominates itself.
func (d *DomTree) Dominates(a, b BlockID) bool {
	if _, ok := d.rpoNum[a]; !ok {
		return false
	}
	for cur := b; ; {
		if _, ok := d.rpoNum[cur]; !ok {
			return false
		}
		if cur == a {
			return true
		}
		if cur == d.entry {
			return cur == a
		}
		next := d.idom[cur]
		if next == cur {
			return false
		}
		cur = next
	}
}

// Children returns the blocks whose immediate dominator is b.
func (d *DomTree) Children(b BlockID) []BlockID { return d.kids[b] }

// ReversePostorder returns the CFG reverse-postorder used to number
// blocks for the dominance computation.
func (d *DomTree) ReversePostorder() []BlockID { return d.rpo }

// Dominators computes (or returns the cached) dominator tree for f.
func (f *Function) Dominators() *DomTree {
	if f.dom != nil {
		return f.dom
	}
	cfg := f.CFG()
	entry := f.Entry()

	rpo := reversePostorder(entry, cfg)
	rpoNum := make(map[BlockID]int, len(rpo))
	for i, b := range rpo {
		rpoNum[b] = i
	}

	idom := make(map[BlockID]BlockID, len(rpo))
	idom[entry] = entry

	intersect := func(a, b BlockID) BlockID {
		for a != b {
			for rpoNum[a] > rpoNum[b] {
				a = idom[a]
			}
			for rpoNum[b] > rpoNum[a] {
				b = idom[b]
			}
		}
		return a
	}

	for changed := true; changed; {
		changed = false
		for _, b := range rpo {
			if b == entry {
				continue
			}
			var newIdom BlockID = InvalidBlock
			for _, e := range cfg.Preds(b) {
				p := e.Block
				if _, ok := idom[p]; !ok {
					continue
				}
				if newIdom == InvalidBlock {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p)
			}
			if newIdom != InvalidBlock && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	kids := make(map[BlockID][]BlockID)
	for _, b := range rpo {
		if b == entry {
			continue
		}
		if p, ok := idom[b]; ok {
			kids[p] = append(kids[p], b)
		}
	}

	d := &DomTree{rpoNum: rpoNum, rpo: rpo, idom: idom, kids: kids, entry: entry}
	f.dom = d
	return d
}

// reversePostorder walks the CFG depth-first from entry and returns blocks
// in reverse postorder, the canonical order dominance and loop analysis
// both rely on (§4.2).
func reversePostorder(entry BlockID, cfg *CFG) []BlockID {
	visited := make(map[BlockID]bool)
	var post []BlockID

	type frame struct {
		b    BlockID
		next int
	}
	stack := []frame{{b: entry}}
	visited[entry] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := cfg.Succs(top.b)
		if top.next < len(succs) {
			s := succs[top.next]
			top.next++
			if !visited[s] {
				visited[s] = true
				stack = append(stack, frame{b: s})
			}
			continue
		}
		post = append(post, top.b)
		stack = stack[:len(stack)-1]
	}

	rpo := make([]BlockID, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}
