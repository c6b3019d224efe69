package stackify

import (
	"github.com/midenhir/compiler/internal/hir"
	"github.com/midenhir/compiler/internal/masm"
	"github.com/midenhir/compiler/internal/types"
)

// emitCast appends the width-specialized sequence for converting a value
// already occupying from.StackWidth() elements at the top of the stack
// into a to.StackWidth()-element value of the target type, following the
// (src, dst) match table codegen/masm/src/stackify/emit/unary.rs resolves
// for spec.md §4.6: equal-width pairs are a no-op, narrowing drops the
// extra high limbs, and widening either zero-fills (Zext) or
// sign-propagates (Sext) the new limbs. Cast between same-width signed
// and unsigned integers additionally traps if the source's sign bit is
// set, per spec.md §8 Scenario 3.
func (e *emitter) emitCast(op hir.Opcode, from, to types.Type) {
	fw := int(from.StackWidth())
	tw := int(to.StackWidth())

	switch op {
	case hir.OpTrunc:
		e.dropHighLimbs(fw, tw)

	case hir.OpZext:
		e.pushZeroLimbs(tw - fw)

	case hir.OpSext:
		e.signExtend(from, fw, tw)

	case hir.OpCast:
		if from.IsSigned() && !to.IsSigned() && from.Width == to.Width {
			e.assertNonNegative(from)
		}
		if tw > fw {
			e.pushZeroLimbs(tw - fw)
		} else if fw > tw {
			e.dropHighLimbs(fw, tw)
		}

	case hir.OpPtrToInt, hir.OpIntToPtr:
		if tw > fw {
			e.pushZeroLimbs(tw - fw)
		} else if fw > tw {
			e.dropHighLimbs(fw, tw)
		}
	}
}

// dropHighLimbs removes the fw-tw most significant (deepest) limbs of a
// value whose limb 0 sits on top: repeatedly swap the next-deepest limb
// to the top and drop it, leaving the surviving low limbs undisturbed.
func (e *emitter) dropHighLimbs(fw, tw int) {
	for i := 0; i < fw-tw; i++ {
		e.ops = append(e.ops, masm.Swap(), masm.Drop())
	}
}

func (e *emitter) pushZeroLimbs(n int) {
	for i := 0; i < n; i++ {
		e.ops = append(e.ops, masm.Push(0))
	}
}

// signExtend pushes tw-fw new high limbs whose value is 0 if the source's
// sign bit is clear and all-ones (within a 32-bit limb) if it is set,
// duplicating the first computed limb for any further limb beyond the
// first (every propagated limb carries the same sign).
func (e *emitter) signExtend(from types.Type, fw, tw int) {
	if tw <= fw {
		return
	}
	signBit := uint64(1) << (from.Width - 1)
	prefix := typePrefix(types.UnsignedInt(from.Width))
	e.ops = append(e.ops,
		masm.Dup(0),
		masm.Push(signBit),
		masm.Raw(prefix+".and"),
		masm.Push(0),
		masm.Raw(prefix+".neq"),
		masm.If(
			[]masm.Op{masm.Push(0xFFFFFFFF)},
			[]masm.Op{masm.Push(0)},
		),
	)
	for i := 1; i < tw-fw; i++ {
		e.ops = append(e.ops, masm.Dup(0))
	}
}

// assertNonNegative traps unless the top-of-stack value's sign bit (under
// its from-width two's-complement bit pattern) is clear, leaving the
// value itself untouched — Scenario 3's "i32 -> u32 traps on -1, passes
// 0x7fffffff through unchanged".
func (e *emitter) assertNonNegative(from types.Type) {
	threshold := uint64(1) << (from.Width - 1)
	prefix := typePrefix(types.UnsignedInt(from.Width))
	e.ops = append(e.ops,
		masm.Dup(0),
		masm.Push(threshold),
		masm.Raw(prefix+".lt"),
		masm.Assert(),
	)
}
