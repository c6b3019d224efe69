package types

import "math"

// Immediate is a tagged numeric constant: the value produced by one of the
// ImmI1...ImmFelt opcodes, or carried in a cast/compare fold. Equality and
// ordering between Immediates of different numeric types is defined by
// widening to the smaller enclosing type (§3); comparisons against F64
// truncate toward zero and break exact ties on the float's sign.
type Immediate struct {
	typ Type
	// bits holds the two's-complement bit pattern for integer kinds and
	// the IEEE-754 bit pattern for F64. Booleans use 0/1.
	bits uint64
}

func ImmBool(v bool) Immediate {
	if v {
		return Immediate{typ: I1(), bits: 1}
	}
	return Immediate{typ: I1(), bits: 0}
}

func ImmSigned(width uint32, v int64) Immediate {
	return Immediate{typ: SignedInt(width), bits: uint64(v) & widthMask(width)}
}

func ImmUnsigned(width uint32, v uint64) Immediate {
	return Immediate{typ: UnsignedInt(width), bits: v & widthMask(width)}
}

func ImmIsize(v int32) Immediate { return Immediate{typ: Isize(), bits: uint64(uint32(v))} }
func ImmUsize(v uint32) Immediate { return Immediate{typ: Usize(), bits: uint64(v)} }

func ImmF64(v float64) Immediate {
	return Immediate{typ: F64(), bits: math.Float64bits(v)}
}

func ImmFelt(v Felt) Immediate {
	return Immediate{typ: Type{Kind: KindFelt}, bits: uint64(v)}
}

// Type returns the Immediate's declared type.
func (im Immediate) Type() Type { return im.typ }

// ZeroImmediate returns the zero value of t, for every kind the SSA
// builder may need to materialize a missing definition of (§4.1). ok is
// false for kinds with no meaningful zero (Unit, Never, pointers without
// a null representation the VM recognizes).
func ZeroImmediate(t Type) (Immediate, bool) {
	switch t.Kind {
	case KindI1:
		return ImmBool(false), true
	case KindF64:
		return ImmF64(0), true
	case KindFelt:
		return ImmFelt(0), true
	case KindSignedInt:
		return ImmSigned(t.Width, 0), true
	case KindUnsignedInt:
		return ImmUnsigned(t.Width, 0), true
	case KindIsize:
		return ImmIsize(0), true
	case KindUsize:
		return ImmUsize(0), true
	}
	return Immediate{}, false
}

func widthMask(width uint32) uint64 {
	if width >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << width) - 1
}

// rawUint64 returns the raw bit pattern, zero-extended.
func (im Immediate) rawUint64() uint64 { return im.bits }

// asSignedWidened sign-extends an integer Immediate's bits to int64,
// honoring its declared width and signedness.
func (im Immediate) asSignedWidened() int64 {
	width := im.typ.Width
	if im.typ.Kind == KindIsize || im.typ.Kind == KindUsize {
		width = 32
	}
	if width == 0 || width >= 64 {
		return int64(im.bits)
	}
	if im.typ.IsSigned() || im.typ.Kind == KindIsize {
		shift := 64 - width
		return int64(im.bits<<shift) >> shift
	}
	return int64(im.bits)
}

// AsBool reports the Immediate as a boolean if it is I1.
func (im Immediate) AsBool() (bool, bool) {
	if im.typ.Kind != KindI1 {
		return false, false
	}
	return im.bits != 0, true
}

// AsI32 converts the Immediate to a signed 32-bit value if it fits,
// mirroring the boundary behavior in spec.md §8:
// Immediate::as_i32(Immediate::U64(u32::MAX as u64 + 1)) == None.
func (im Immediate) AsI32() (int32, bool) {
	v, ok := im.asInt64Checked()
	if !ok {
		return 0, false
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int32(v), true
}

// AsU32 converts the Immediate to an unsigned 32-bit value if it fits.
func (im Immediate) AsU32() (uint32, bool) {
	v, ok := im.asInt64Checked()
	if !ok {
		return 0, false
	}
	if v < 0 || v > math.MaxUint32 {
		return 0, false
	}
	return uint32(v), true
}

// AsU64 converts to an unsigned 64-bit value if the Immediate is a Felt,
// or an integer kind whose value is non-negative.
func (im Immediate) AsU64() (uint64, bool) {
	if im.typ.Kind == KindFelt {
		return im.bits, true
	}
	if !im.typ.IsInteger() {
		return 0, false
	}
	v := im.asSignedWidened()
	if v < 0 {
		if !im.typ.IsSigned() {
			return im.bits, true
		}
		return 0, false
	}
	return uint64(v), true
}

// AsI64 converts to a signed 64-bit value if the Immediate is an integer
// kind.
func (im Immediate) AsI64() (int64, bool) {
	if !im.typ.IsInteger() {
		return 0, false
	}
	return im.asSignedWidened(), true
}

// AsF64 converts to a float64; integers convert exactly (within float64
// precision), F64 returns its bits decoded, and booleans are not
// convertible.
func (im Immediate) AsF64() (float64, bool) {
	switch im.typ.Kind {
	case KindF64:
		return math.Float64frombits(im.bits), true
	case KindSignedInt, KindIsize:
		return float64(im.asSignedWidened()), true
	case KindUnsignedInt, KindUsize:
		v, _ := im.AsU64()
		return float64(v), true
	case KindFelt:
		return float64(im.bits), true
	}
	return 0, false
}

func (im Immediate) asInt64Checked() (int64, bool) {
	switch im.typ.Kind {
	case KindSignedInt, KindIsize, KindUnsignedInt, KindUsize:
		return im.asSignedWidened(), true
	case KindFelt:
		if im.bits > math.MaxInt64 {
			return 0, false
		}
		return int64(im.bits), true
	}
	return 0, false
}

// Equal compares two Immediates for numeric equality, widening mixed-width
// numerics to the smaller enclosing type before comparing (§3). Booleans
// only equal booleans.
func (im Immediate) Equal(other Immediate) bool {
	c, ok := compareWiden(im, other)
	if !ok {
		return false
	}
	return c == 0
}

// Less reports whether im orders before other under the same widening
// rule used by Equal. Comparisons against F64 truncate toward zero and
// break exact ties (fractional float vs. integer) by the float's sign.
func (im Immediate) Less(other Immediate) bool {
	c, ok := compareWiden(im, other)
	if !ok {
		return false
	}
	return c < 0
}

// compareWiden implements the §3 ordering rule. ok is false only when
// comparing a boolean against a non-boolean, which is not defined.
func compareWiden(a, b Immediate) (int, bool) {
	aBool := a.typ.Kind == KindI1
	bBool := b.typ.Kind == KindI1
	if aBool != bBool {
		return 0, false
	}
	if aBool {
		av, _ := a.AsBool()
		bv, _ := b.AsBool()
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	}

	if a.typ.Kind == KindF64 || b.typ.Kind == KindF64 {
		return compareFloat(a, b), true
	}

	av := a.asSignedWidened()
	bv := b.asSignedWidened()
	switch {
	case av < bv:
		return -1, true
	case av > bv:
		return 1, true
	default:
		return 0, true
	}
}

// compareFloat compares one Immediate that may be F64 against another that
// may be an integer, by truncating the float toward zero and, on an exact
// integral/fractional tie at the same truncated value, breaking the tie by
// the float's sign (negative floats order below the equal integer,
// non-negative floats order above it).
func compareFloat(a, b Immediate) int {
	if a.typ.Kind == KindF64 && b.typ.Kind == KindF64 {
		af, _ := a.AsF64()
		bf, _ := b.AsF64()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	// Exactly one side is F64; normalize so `f` is the float and `iv` is
	// the integer side's widened value, tracking which side was which so
	// the final sign can be flipped back.
	var f float64
	var iv int64
	flip := false
	if a.typ.Kind == KindF64 {
		f, _ = a.AsF64()
		iv = b.asSignedWidened()
	} else {
		f, _ = b.AsF64()
		iv = a.asSignedWidened()
		flip = true
	}

	trunc := math.Trunc(f)
	var cmp int
	switch {
	case trunc < float64(iv):
		cmp = -1
	case trunc > float64(iv):
		cmp = 1
	default:
		if f == trunc {
			cmp = 0
		} else if math.Signbit(f) {
			cmp = -1
		} else {
			cmp = 1
		}
	}
	if flip {
		cmp = -cmp
	}
	return cmp
}
