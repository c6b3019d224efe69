package component

import (
	"github.com/pkg/errors"

	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/types"
	"github.com/midenhir/compiler/internal/wasmfront"
)

// ParamShape describes how one component-level parameter or result
// crosses the canonical ABI boundary.
type ParamShape int

const (
	// ShapeScalar passes through as a single core value, unchanged.
	ShapeScalar ParamShape = iota
	// ShapeString is a component-level string, represented at the core
	// level as a (ptr u32, len u32) pair (spec.md §6: UTF-8 only).
	ShapeString
)

// FuncShape annotates a core function's already-translated signature
// with which parameters/results are canonical-ABI strings, so WrapExport
// knows where to splice in lowering/lifting code. Scalar positions carry
// straight through.
type FuncShape struct {
	Params  []ParamShape
	Results []ParamShape
}

// coreWidth returns how many core values shape occupies.
func coreWidth(s ParamShape) int {
	if s == ShapeString {
		return 2
	}
	return 1
}

// WrapExport builds the export-side canonical ABI wrapper for core: a
// new HIR function whose own parameter list replaces every ShapeString
// position with a single (ptr, len) pair already resident in the
// caller's own linear memory, lowers each such string into the
// instance's memory via realloc before calling core, and — once core
// returns — calls the instance's post-return export (if configured)
// before handing the (possibly still-string-shaped) results on up.
//
// This mirrors component/translator.rs's split between a component's
// own instantiation and the core module it wraps (see DESIGN.md): the
// wrapper is itself ordinary HIR, built with the same SSA Builder
// internal/wasmfront uses, so internal/stackify and internal/masm need
// no component-specific code path at all.
func WrapExport(inst *Instance, core *wasmfront.Function, shape FuncShape) (*hir.Function, error) {
	if sum(shape.Params, coreWidth) != len(core.Sig.Params) {
		return nil, errors.Errorf("component: %s: shape/signature parameter count mismatch", core.Name)
	}

	var wrapperParams []types.Type
	for _, s := range shape.Params {
		if s == ShapeString {
			wrapperParams = append(wrapperParams, types.UnsignedInt(32), types.UnsignedInt(32))
		} else {
			wrapperParams = append(wrapperParams, types.UnsignedInt(32))
		}
	}
	var wrapperResults []types.Type
	for _, s := range shape.Results {
		if s == ShapeString {
			wrapperResults = append(wrapperResults, types.UnsignedInt(32), types.UnsignedInt(32))
		} else {
			wrapperResults = append(wrapperResults, types.UnsignedInt(32))
		}
	}

	name := core.Name + ".canon_lower"
	f := hir.NewFunction(name, hir.Signature{Params: wrapperParams, Results: wrapperResults})
	entry := f.Entry()
	b := hir.NewBuilder(f)
	b.DeclareBlock(entry)
	b.SealBlock(entry)

	entryParams := make([]hir.ValueID, len(wrapperParams))
	for i, t := range wrapperParams {
		entryParams[i] = f.AppendParam(entry, t)
	}

	pIdx := 0
	var callArgs []hir.ValueID
	block := entry
	for _, s := range shape.Params {
		switch s {
		case ShapeString:
			ptr := entryParams[pIdx]
			length := entryParams[pIdx+1]
			pIdx += 2
			dst, next := lowerString(b, f, block, inst.Opts.Realloc, ptr, length)
			block = next
			callArgs = append(callArgs, dst, length)
		default:
			callArgs = append(callArgs, entryParams[pIdx])
			pIdx++
		}
	}

	_, results := f.Call(block, core.Name, false, callArgs, core.Sig.Results)

	if inst.Opts.PostReturn != "" {
		f.Call(block, inst.Opts.PostReturn, false, results, nil)
	}

	f.Ret(block, results)
	return f, nil
}

func sum(ss []ParamShape, width func(ParamShape) int) int {
	total := 0
	for _, s := range ss {
		total += width(s)
	}
	return total
}
