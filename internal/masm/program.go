package masm

import (
	"github.com/midenhir/compiler/internal/globals"
	"github.com/midenhir/compiler/internal/types"
)

// PageSize is one WebAssembly linear-memory page, 64KiB. The default
// heap base is two pages past the start of memory, reserved for the
// global table and shadow stack (§3).
const PageSize = 65536

// Program is a complete, executable MASM output: a Library plus a
// designated entrypoint and the heap-base offset computed for this
// program's global layout (§4.7).
type Program struct {
	Library     *Library
	Entrypoint  string
	HeapBase    uint32
	Segments    []globals.DataSegment
	// StackPointerOffset, if present, is the byte offset of the
	// `__stack_pointer` global — the test harness writes its final
	// write-pointer here after converting from a word index to a byte
	// address (§4.7 step 3).
	StackPointerOffset *uint32
}

// NewProgram builds a Program from a global layout and a library of
// already-stackified modules. heapBase is the end of the laid-out globals
// rounded up to a page boundary, and never less than two pages.
func NewProgram(entrypoint string, layout *globals.Layout, library *Library) *Program {
	heapBase := alignUp32(layout.NextOffset, PageSize)
	if heapBase < 2*PageSize {
		heapBase = 2 * PageSize
	}
	return &Program{
		Library:    library,
		Entrypoint: entrypoint,
		HeapBase:   heapBase,
		Segments:   layout.Segments,
	}
}

func alignUp32(v, align uint32) uint32 {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}

// GenerateMain builds the executable `::exec` module that initializes
// the dynamic heap, verifies and loads every data segment's preimage,
// optionally emits the test-harness preamble, and invokes the
// entrypoint (§4.7 steps 1-4).
func (p *Program) GenerateMain(emitTestHarness bool) *Module {
	m := NewModule("exec")
	var body []Op
	body = append(body, Push(uint64(p.HeapBase)))
	body = append(body, Exec("intrinsics::mem::heap_init"))
	body = append(body, p.dataSegmentInit()...)
	if emitTestHarness {
		body = append(body, p.testHarness()...)
	}
	body = append(body, Exec(p.Entrypoint))
	m.Insert(&Procedure{Name: "main", Exported: true, Body: body})
	return m
}

// dataSegmentInit emits, for each non-zeroed segment in table order, a
// commitment/write-pointer/word-count push followed by a
// pipe_preimage_to_memory call and a drop of its returned write
// pointer (§4.7 step 2). Zeroed segments are skipped: the VM's own
// heap_init already zero-fills memory, so there is nothing to verify.
func (p *Program) dataSegmentInit() []Op {
	var ops []Op
	for _, seg := range p.Segments {
		if isZeroed(seg.Bytes) {
			continue
		}
		elements := packFelts(seg.Bytes)
		digest := HashElements(elements)
		numWords := (uint32(len(elements)) + types.WordFelts - 1) / types.WordFelts
		waddr := seg.Offset / types.WordBytes

		ops = append(ops, Pushw(digest))
		ops = append(ops, Push(uint64(waddr)))
		ops = append(ops, Push(uint64(numWords)))
		ops = append(ops, Exec("std::mem::pipe_preimage_to_memory"))
		ops = append(ops, Drop())
	}
	return ops
}

// testHarness emits the optional preamble that loads `[dest_ptr,
// num_words, ...]` from the advice stack into memory via
// pipe_words_to_memory, dropping the returned commitment, then records
// the final write pointer (converted from a word index to a
// Rust-style byte address by multiplying by 16, per §4.7 step 3/§9
// open question) into `__stack_pointer` if that global was laid out,
// or simply drops it otherwise.
func (p *Program) testHarness() []Op {
	ops := []Op{
		AdvPush(2),
		Exec("std::mem::pipe_words_to_memory"),
		Drop(),
	}
	if p.StackPointerOffset != nil {
		wordAddr := (*p.StackPointerOffset / types.FeltBytes) / types.WordFelts
		ops = append(ops,
			Raw("u32.overflowing_mul.16"),
			Assertz(),
			Raw("mem_storew."+itoa(wordAddr)),
		)
	} else {
		ops = append(ops, Drop())
	}
	return ops
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// AdviceInputs computes the exact felt sequence a real executor must
// supply on the advice stack to satisfy dataSegmentInit's commitments,
// in the same segment order (§4.7, spec.md §8 Scenario 6).
func (p *Program) AdviceInputs() []types.Felt {
	var stack []types.Felt
	for _, seg := range p.Segments {
		if isZeroed(seg.Bytes) {
			continue
		}
		elements := packFelts(seg.Bytes)
		numWords := (uint32(len(elements)) + types.WordFelts - 1) / types.WordFelts
		elements = padFelts(elements, numWords*types.WordFelts)
		stack = append(stack, elements...)
	}
	return stack
}

// isZeroed reports whether every byte of b is zero, including the
// vacuous case of an empty segment.
func isZeroed(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// packFelts packs bytes into felts 4 bytes (one u32) per felt, big
// endian, zero-padding the final partial felt (§4.7 step 2).
func packFelts(bytes []byte) []types.Felt {
	n := (len(bytes) + 3) / 4
	out := make([]types.Felt, n)
	for i := 0; i < n; i++ {
		var chunk [4]byte
		start := i * 4
		end := start + 4
		if end > len(bytes) {
			end = len(bytes)
		}
		copy(chunk[:], bytes[start:end])
		v := uint32(chunk[0])<<24 | uint32(chunk[1])<<16 | uint32(chunk[2])<<8 | uint32(chunk[3])
		out[i] = types.NewFelt(uint64(v))
	}
	return out
}

func padFelts(elements []types.Felt, n uint32) []types.Felt {
	for uint32(len(elements)) < n {
		elements = append(elements, types.Felt(0))
	}
	return elements
}
