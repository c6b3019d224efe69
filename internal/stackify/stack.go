// Package stackify implements the stackifier emitter of spec.md §4.6: it
// walks internal/treegraph's condensed expression trees in reverse
// topological (execution) order and emits the internal/masm operations
// that realize each instruction's operands and results on Miden's operand
// stack, choosing dup vs. move based on how many static consumers a value
// still has.
//
// The operand stack is modeled at element (felt) granularity, per
// spec.md's own instruction to the emitter ("stack operations act on
// elements, not logical values"): a multi-limb value (§3's ReprSparse
// types) is tracked as several independently-positioned slots that always
// travel together, rather than as a single movable unit with dedicated
// word-wide instructions. This trades a little emitted-code density for a
// much simpler mover, matching the scope the retrieved sources actually
// ground (codegen/masm/src/stackify/emit/unary.rs resolves the cast
// width-pair table this package follows; it does not document a
// word-granularity mover, so none is invented here).
package stackify

import "github.com/midenhir/compiler/internal/depgraph"

// slot identifies one physical stack element: the dependency-graph node
// that produced it, and which limb of that node's (possibly multi-felt)
// logical value it holds. limb 0 is the least significant limb and is
// always the one nearest the top of a freshly produced value's group.
type slot struct {
	node depgraph.Node
	limb int
}
