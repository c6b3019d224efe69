package component

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/types"
	"github.com/midenhir/compiler/internal/wasmfront"
)

func testOpts() CanonicalOptions {
	return CanonicalOptions{Realloc: "realloc", PostReturn: "cabi_post_greet", StringEncoding: UTF8}
}

func TestInstantiateRejectsSecondInstance(t *testing.T) {
	r := NewRegistry()
	mod := &wasmfront.Module{}

	_, err := r.Instantiate("greeter.wasm", mod, testOpts())
	require.NoError(t, err)

	_, err = r.Instantiate("greeter.wasm", mod, testOpts())
	require.Error(t, err, "spec.md §6 restricts a static module to a single instance")
}

func TestInstantiateRejectsNonUTF8(t *testing.T) {
	r := NewRegistry()
	opts := testOpts()
	opts.StringEncoding = StringEncoding(99)
	_, err := r.Instantiate("m.wasm", &wasmfront.Module{}, opts)
	require.Error(t, err)
}

func TestWrapExportLowersStringArgument(t *testing.T) {
	r := NewRegistry()
	mod := &wasmfront.Module{}
	inst, err := r.Instantiate("greeter.wasm", mod, testOpts())
	require.NoError(t, err)

	core := &wasmfront.Function{
		Name: "greet",
		Sig: wasmfront.Signature{
			Params:  []types.Type{types.UnsignedInt(32), types.UnsignedInt(32)},
			Results: []types.Type{types.UnsignedInt(32), types.UnsignedInt(32)},
		},
	}
	shape := FuncShape{
		Params:  []ParamShape{ShapeString},
		Results: []ParamShape{ShapeString},
	}

	wrapper, err := WrapExport(inst, core, shape)
	require.NoError(t, err)
	require.Equal(t, "greet.canon_lower", wrapper.Name)

	var sawRealloc, sawPostReturn, sawGreet, sawLoop bool
	for b := 0; b < wrapper.NumBlocks(); b++ {
		bid := hir.BlockID(b)
		if wrapper.IsLoopHeader(bid) {
			sawLoop = true
		}
		for _, inst := range wrapper.Instructions(bid) {
			if wrapper.Opcode(inst) != hir.OpCall {
				continue
			}
			switch wrapper.Aux(inst).(hir.CallAux).Callee {
			case "realloc":
				sawRealloc = true
			case "cabi_post_greet":
				sawPostReturn = true
			case "greet":
				sawGreet = true
			}
		}
	}
	require.True(t, sawRealloc, "a lowered string argument must realloc space in the callee's memory")
	require.True(t, sawLoop, "the byte copy must be emitted as a loop, not unrolled")
	require.True(t, sawGreet, "the wrapper must still call the wrapped core function")
	require.True(t, sawPostReturn, "a configured post-return export must be called once results are available")
}
