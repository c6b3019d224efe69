// Package wasmfront wraps github.com/go-interpreter/wagon's core module
// decoder, re-expressing the typed event stream spec.md §1 declares a
// non-goal to reimplement: wagon does the binary parsing, this package
// decodes the result into the shape internal/hir's SSA builder consumes
// (a sequence of typed stack-machine operators per function, against a
// declared local-variable set).
package wasmfront

import (
	"fmt"
	"io"

	"github.com/go-interpreter/wagon/wasm"
	"github.com/pkg/errors"

	"github.com/midenhir/compiler/internal/types"
)

// Function is one decoded core-module function: its HIR-level signature,
// its declared locals (beyond the parameters, which occupy local indices
// 0..len(Params)), and its raw instruction bytes, left undecoded until
// Translate walks them (§4.1 wants the operator stream consumed
// incrementally against the SSA builder, not pre-expanded into a slice).
type Function struct {
	Name    string
	Sig     Signature
	Locals  []types.Type // additional locals past the parameters
	Code    []byte
	Exported bool
}

// Signature is a decoded WebAssembly function type, already translated to
// internal/types.
type Signature struct {
	Params  []types.Type
	Results []types.Type
}

// Module is a decoded core WebAssembly module, ready for per-function
// translation into HIR.
type Module struct {
	Functions []*Function
}

// Decode parses a core WebAssembly binary with wagon and re-expresses its
// function section as wasmfront.Functions. Only the subset of the module
// needed to build HIR is kept: the type/function/code sections and
// exported names (for the entry point's user-facing symbol); globals and
// table/element sections belong to internal/globals and
// internal/component respectively and are not decoded here.
func Decode(r io.Reader) (*Module, error) {
	raw, err := wasm.ReadModule(r, nil)
	if err != nil {
		return nil, errors.Wrap(err, "wasmfront: decoding core module")
	}

	exported := make(map[int]string)
	if raw.Export != nil {
		for name, entry := range raw.Export.Entries {
			if entry.Kind == wasm.ExternalFunction {
				exported[int(entry.Index)] = name
			}
		}
	}

	m := &Module{}
	for i, fn := range raw.FunctionIndexSpace {
		if fn.Body == nil {
			continue // imported function, no body to translate
		}
		sig, err := translateSig(fn.Sig)
		if err != nil {
			return nil, errors.Wrapf(err, "wasmfront: function %d signature", i)
		}
		locals, err := translateLocals(fn.Body.Locals)
		if err != nil {
			return nil, errors.Wrapf(err, "wasmfront: function %d locals", i)
		}
		name, ok := exported[i]
		if !ok {
			name = unnamedFunc(i)
		}
		m.Functions = append(m.Functions, &Function{
			Name:     name,
			Sig:      sig,
			Locals:   locals,
			Code:     fn.Body.Code,
			Exported: ok,
		})
	}
	return m, nil
}

func unnamedFunc(i int) string {
	return fmt.Sprintf("func$%d", i)
}

func translateSig(sig *wasm.FunctionSig) (Signature, error) {
	out := Signature{}
	for _, p := range sig.ParamTypes {
		t, err := translateValueType(p)
		if err != nil {
			return Signature{}, err
		}
		out.Params = append(out.Params, t)
	}
	for _, r := range sig.ReturnTypes {
		t, err := translateValueType(r)
		if err != nil {
			return Signature{}, err
		}
		out.Results = append(out.Results, t)
	}
	return out, nil
}

func translateLocals(entries []wasm.LocalEntry) ([]types.Type, error) {
	var out []types.Type
	for _, e := range entries {
		t, err := translateValueType(e.Type)
		if err != nil {
			return nil, err
		}
		for i := uint32(0); i < e.Count; i++ {
			out = append(out, t)
		}
	}
	return out, nil
}

// translateValueType maps a WASM value type to this compiler's type
// system. i32/i64 map to the signed integer of matching width (WASM
// itself is sign-agnostic at the bit-pattern level; the SSA translator
// picks signed vs. unsigned ops per opcode, not per local declaration).
// f32 has no first-class representation in this compiler's type system
// (§3 defines only F64); it is promoted to F64, a deliberate, documented
// simplification since nothing in spec.md's scope exercises f32
// precision loss.
func translateValueType(vt wasm.ValueType) (types.Type, error) {
	switch vt {
	case wasm.ValueTypeI32:
		return types.SignedInt(32), nil
	case wasm.ValueTypeI64:
		return types.SignedInt(64), nil
	case wasm.ValueTypeF32, wasm.ValueTypeF64:
		return types.F64(), nil
	default:
		return types.Type{}, errors.Errorf("wasmfront: unsupported value type %v", vt)
	}
}
