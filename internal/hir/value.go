package hir

import "github.com/midenhir/compiler/internal/types"

// valueDefKind discriminates what produced a Value.
type valueDefKind uint8

const (
	defBlockParam valueDefKind = iota
	defInstResult
)

// valueData is the arena entry for a Value: its type and an explicit
// pointer back to its definition, kept separate from the definition site
// itself so queries don't need to scan blocks (§3).
type valueData struct {
	typ types.Type

	defKind valueDefKind

	// defKind == defBlockParam:
	block    BlockID
	paramIdx int

	// defKind == defInstResult:
	inst      InstID
	resultIdx int
}

// ValueType returns the declared type of v.
func (f *Function) ValueType(v ValueID) types.Type {
	return f.values[v].typ
}

// ValueDef reports how v was defined: either as the paramIdx'th parameter
// of block, or as the resultIdx'th result of inst. Exactly one of the two
// result pairs is meaningful, indicated by the returned bool isBlockParam.
func (f *Function) ValueDef(v ValueID) (isBlockParam bool, block BlockID, paramIdx int, inst InstID, resultIdx int) {
	vd := f.values[v]
	if vd.defKind == defBlockParam {
		return true, vd.block, vd.paramIdx, InvalidInst, 0
	}
	return false, InvalidBlock, 0, vd.inst, vd.resultIdx
}

// newValue allocates a new value in the function's arena.
func (f *Function) newValue(typ types.Type) ValueID {
	id := ValueID(len(f.values))
	f.values = append(f.values, valueData{typ: typ})
	return id
}
