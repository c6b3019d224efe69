package masm

import (
	"testing"

	"github.com/midenhir/compiler/internal/globals"
	"github.com/midenhir/compiler/internal/types"
	"github.com/stretchr/testify/require"
)

// TestDataSegmentInitScenario6 exercises spec.md §8 Scenario 6: a
// single 10-byte data segment "hello\0\0\0\0\0" at offset 0 must
// generate a commitment over 3 felts (12 bytes, zero-padded), word
// count 1, and the advice-input serializer must produce those same 3
// felts plus one felt of word-boundary padding.
func TestDataSegmentInitScenario6(t *testing.T) {
	seg := globals.DataSegment{Name: "s", Offset: 0, Bytes: []byte("hello\x00\x00\x00\x00\x00")}
	require.Len(t, seg.Bytes, 10)

	layout := &globals.Layout{Segments: []globals.DataSegment{seg}, NextOffset: 2 * PageSize}
	lib := NewLibrary()
	prog := NewProgram("exec::main", layout, lib)

	ops := prog.dataSegmentInit()
	require.Len(t, ops, 5, "pushw digest, push waddr, push num_words, exec, drop")
	require.Equal(t, OpPushw, ops[0].Kind)
	require.Equal(t, OpPush, ops[1].Kind)
	require.Equal(t, uint64(0), ops[1].Imm, "base word address is 0")
	require.Equal(t, OpPush, ops[2].Kind)
	require.Equal(t, uint64(1), ops[2].Imm, "a 12-byte (3-felt) segment occupies exactly one word")
	require.Equal(t, OpExec, ops[3].Kind)
	require.Equal(t, "std::mem::pipe_preimage_to_memory", ops[3].Callee)
	require.Equal(t, OpDrop, ops[4].Kind)

	elements := packFelts(seg.Bytes)
	require.Len(t, elements, 3)
	wantDigest := HashElements(elements)
	require.Equal(t, wantDigest, ops[0].Word)

	advice := prog.AdviceInputs()
	require.Len(t, advice, 4, "3 data felts plus one felt of word-boundary padding")
	require.Equal(t, elements[0], advice[0])
	require.Equal(t, elements[1], advice[1])
	require.Equal(t, elements[2], advice[2])
	require.Equal(t, types.Felt(0), advice[3])
}

func TestDataSegmentInitSkipsZeroedSegments(t *testing.T) {
	layout := &globals.Layout{
		Segments: []globals.DataSegment{{Name: "z", Offset: 0, Bytes: make([]byte, 8)}},
		NextOffset: 2 * PageSize,
	}
	prog := NewProgram("exec::main", layout, NewLibrary())
	require.Empty(t, prog.dataSegmentInit())
	require.Empty(t, prog.AdviceInputs())
}

func TestGenerateMainSequence(t *testing.T) {
	layout := &globals.Layout{NextOffset: 2 * PageSize}
	prog := NewProgram("wasm::entry", layout, NewLibrary())

	m := prog.GenerateMain(false)
	proc := m.Get("main")
	require.NotNil(t, proc)
	require.True(t, proc.Exported)

	require.Equal(t, OpPush, proc.Body[0].Kind)
	require.Equal(t, uint64(prog.HeapBase), proc.Body[0].Imm)
	require.Equal(t, OpExec, proc.Body[1].Kind)
	require.Equal(t, "intrinsics::mem::heap_init", proc.Body[1].Callee)
	last := proc.Body[len(proc.Body)-1]
	require.Equal(t, OpExec, last.Kind)
	require.Equal(t, "wasm::entry", last.Callee)
}

func TestGenerateMainEmitsTestHarnessWhenRequested(t *testing.T) {
	layout := &globals.Layout{NextOffset: 2 * PageSize}
	prog := NewProgram("wasm::entry", layout, NewLibrary())

	withHarness := prog.GenerateMain(true)
	withoutHarness := prog.GenerateMain(false)
	require.Greater(t, len(withHarness.Get("main").Body), len(withoutHarness.Get("main").Body))
}

func TestModuleOrdersProceduresByName(t *testing.T) {
	m := NewModule("lib")
	m.Insert(&Procedure{Name: "zeta"})
	m.Insert(&Procedure{Name: "alpha"})
	m.Insert(&Procedure{Name: "mu"})

	names := make([]string, 0, 3)
	for _, p := range m.Procedures() {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"alpha", "mu", "zeta"}, names)
}

func TestHashElementsIsDeterministic(t *testing.T) {
	elements := []types.Felt{types.NewFelt(1), types.NewFelt(2), types.NewFelt(3)}
	a := HashElements(elements)
	b := HashElements(elements)
	require.Equal(t, a, b)

	other := HashElements([]types.Felt{types.NewFelt(1), types.NewFelt(2), types.NewFelt(4)})
	require.NotEqual(t, a, other)
}
