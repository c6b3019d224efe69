package wasmfront

import (
	"testing"

	"github.com/go-interpreter/wagon/wasm/operators"
	"github.com/stretchr/testify/require"

	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/types"
)

// TestTranslateAddOneReturnsSum builds the raw instruction stream for
// "local.get 0; i32.const 1; i32.add; return" (a WASM function adding 1 to
// its sole parameter) and checks the resulting HIR computes a sum of the
// parameter and a constant before returning it.
func TestTranslateAddOneReturnsSum(t *testing.T) {
	code := []byte{
		operators.GetLocal, 0x00,
		operators.I32Const, 0x01,
		operators.I32Add,
		operators.Return,
	}
	fn := &Function{
		Name: "addone",
		Sig:  Signature{Params: []types.Type{types.SignedInt(32)}, Results: []types.Type{types.SignedInt(32)}},
		Code: code,
	}

	f, err := Translate(fn)
	require.NoError(t, err)
	require.Equal(t, "addone", f.Name)

	entry := f.Entry()
	var sawAdd, sawRet bool
	for _, inst := range f.Instructions(entry) {
		switch f.Opcode(inst) {
		case hir.OpAdd:
			sawAdd = true
		case hir.OpRet:
			sawRet = true
		}
	}
	require.True(t, sawAdd, "i32.add must lower to an OpAdd instruction")
	require.True(t, sawRet, "return must lower to an OpRet terminator")
}

// TestTranslateIfElseProducesTwoArms checks that an if/else region opens
// two distinct HIR blocks reached by a CondBr from the entry block.
func TestTranslateIfElseProducesTwoArms(t *testing.T) {
	code := []byte{
		operators.GetLocal, 0x00,
		operators.If, 0x40, // blocktype: empty
		operators.I32Const, 0x01,
		operators.Drop,
		operators.Else,
		operators.I32Const, 0x02,
		operators.Drop,
		operators.End,
		operators.Return,
	}
	fn := &Function{
		Name: "branch",
		Sig:  Signature{Params: []types.Type{types.SignedInt(32)}},
		Code: code,
	}

	f, err := Translate(fn)
	require.NoError(t, err)
	require.Greater(t, f.NumBlocks(), 2, "if/else must allocate then/else/continuation blocks beyond entry")

	entry := f.Entry()
	term := f.Terminator(entry)
	require.Equal(t, hir.OpCondBr, f.Opcode(term), "entry must end in a conditional branch once the if is reached")
}
