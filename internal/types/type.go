// Copyright 2024 The Miden HIR Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package types implements the type system of the HIR: sized integers,
// the native field element, pointers, and the fixed-shape aggregates built
// from them, along with the layout and operand-stack representation rules
// that the rest of the compiler depends on.
package types

import "fmt"

// Kind discriminates the shape of a Type. Kind alone does not carry width;
// Type.Width carries that for the integer kinds.
type Kind uint8

const (
	KindUnknown Kind = iota // absence of type information; never valid on a frozen function
	KindUnit                // the empty type, zero bits wide
	KindNever                // the bottom type; a value of this type is never produced
	KindI1                  // boolean
	KindSignedInt           // Iwidth, widths 8/16/32/64/128
	KindUnsignedInt         // Uwidth, widths 8/16/32/64/128/256
	KindIsize               // machine-width signed integer, 32 bits
	KindUsize               // machine-width unsigned integer, 32 bits
	KindF64                 // IEEE double, partially implemented (see design notes)
	KindFelt                // native field element, range [0, 2^64 - 2^32 + 1)
	KindPtr                 // byte-addressed pointer
	KindWordPtr             // word-addressed pointer
	KindStruct              // fixed-shape struct
	KindArray               // fixed-length array
)

// Repr is the operand-stack representation of a type: how many stack
// elements (felts) a value of this type occupies, and how those elements
// relate to the logical value.
type Repr uint8

const (
	// ReprZero: the type occupies no stack slots (Unit, Never).
	ReprZero Repr = iota
	// ReprDefault: one felt holds the whole value.
	ReprDefault
	// ReprSparse: N felts, one limb of at most 32 bits each, e.g. a 64-bit
	// integer is two felts so that arithmetic on each limb stays exact.
	ReprSparse
	// ReprPacked: ceil(bytes/8) felts, binary encoding spread across felt
	// boundaries without per-limb width guarantees.
	ReprPacked
)

// Word is four felts, 32 bytes: Miden's addressable unit of linear memory.
const (
	FeltBytes  = 8
	WordFelts  = 4
	WordBytes  = WordFelts * FeltBytes
)

// Type describes a HIR value's shape: width, signedness, layout, and the
// operand-stack representation rule used by the stackifier (§3).
type Type struct {
	Kind Kind

	// Width in bits, meaningful for KindSignedInt/KindUnsignedInt (8, 16,
	// 32, 64, 128, and 256 for unsigned only) and always 32 for
	// Isize/Usize.
	Width uint32

	// Struct/Array payload. Fields is nil unless Kind == KindStruct;
	// Elem/Len are zero/nil unless Kind == KindArray.
	Fields []Type
	Elem   *Type
	Len    uint32

	// Pointee is the type a Ptr/WordPtr points to. nil means an untyped
	// (opaque) pointer.
	Pointee *Type
}

// Convenience constructors mirror the teacher's use of small value-typed
// helpers over a large discriminated union.
func Unit() Type         { return Type{Kind: KindUnit} }
func Never() Type        { return Type{Kind: KindNever} }
func Unknown() Type      { return Type{Kind: KindUnknown} }
func I1() Type           { return Type{Kind: KindI1} }
func Felt() Type         { return Type{Kind: KindFelt} }
func F64() Type          { return Type{Kind: KindF64} }
func Isize() Type        { return Type{Kind: KindIsize, Width: 32} }
func Usize() Type        { return Type{Kind: KindUsize, Width: 32} }

func SignedInt(width uint32) Type {
	mustIntWidth(width, false)
	return Type{Kind: KindSignedInt, Width: width}
}

func UnsignedInt(width uint32) Type {
	mustIntWidth(width, true)
	return Type{Kind: KindUnsignedInt, Width: width}
}

func Ptr(pointee *Type) Type     { return Type{Kind: KindPtr, Pointee: pointee} }
func WordPtr(pointee *Type) Type { return Type{Kind: KindWordPtr, Pointee: pointee} }

func Struct(fields ...Type) Type { return Type{Kind: KindStruct, Fields: fields} }

func Array(elem Type, length uint32) Type {
	e := elem
	return Type{Kind: KindArray, Elem: &e, Len: length}
}

func mustIntWidth(width uint32, unsigned bool) {
	switch width {
	case 8, 16, 32, 64, 128:
		return
	case 256:
		if unsigned {
			return
		}
	}
	panic(fmt.Sprintf("types: invalid integer width %d (unsigned=%v)", width, unsigned))
}

// Equal reports whether t and other describe the same shape: same kind
// and width, and, for the compound kinds, structurally equal
// fields/element/pointee.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind || t.Width != other.Width || t.Len != other.Len {
		return false
	}
	switch t.Kind {
	case KindStruct:
		if len(t.Fields) != len(other.Fields) {
			return false
		}
		for i := range t.Fields {
			if !t.Fields[i].Equal(other.Fields[i]) {
				return false
			}
		}
	case KindArray:
		return optionalTypeEqual(t.Elem, other.Elem)
	case KindPtr, KindWordPtr:
		return optionalTypeEqual(t.Pointee, other.Pointee)
	}
	return true
}

func optionalTypeEqual(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// IsInteger reports whether t is any sized integer, Isize, or Usize.
func (t Type) IsInteger() bool {
	switch t.Kind {
	case KindSignedInt, KindUnsignedInt, KindIsize, KindUsize:
		return true
	}
	return false
}

// IsSigned reports whether t is a signed numeric type.
func (t Type) IsSigned() bool {
	return t.Kind == KindSignedInt || t.Kind == KindIsize
}

// IsPointer reports whether t is a byte- or word-addressed pointer.
func (t Type) IsPointer() bool {
	return t.Kind == KindPtr || t.Kind == KindWordPtr
}

// Align returns the minimum alignment of t in bytes.
func (t Type) Align() uint32 {
	switch t.Kind {
	case KindUnit, KindNever, KindUnknown:
		return 1
	case KindI1:
		return 1
	case KindSignedInt, KindUnsignedInt:
		return byteWidth(t.Width)
	case KindIsize, KindUsize:
		return 4
	case KindF64:
		return 8
	case KindFelt:
		return 8
	case KindPtr:
		return 4
	case KindWordPtr:
		return WordBytes
	case KindStruct:
		var a uint32 = 1
		for _, f := range t.Fields {
			if fa := f.Align(); fa > a {
				a = fa
			}
		}
		return a
	case KindArray:
		return t.Elem.Align()
	}
	return 1
}

// byteWidth rounds a bit width up to a whole number of bytes, with a floor
// of 1 byte (i1-adjacent widths never reach here; widths are always
// multiples of 8 per mustIntWidth).
func byteWidth(bits uint32) uint32 {
	return (bits + 7) / 8
}

// SizeUnaligned returns the size of t in bytes, with no trailing padding.
func (t Type) SizeUnaligned() uint32 {
	switch t.Kind {
	case KindUnit, KindNever, KindUnknown:
		return 0
	case KindI1:
		return 1
	case KindSignedInt, KindUnsignedInt:
		return byteWidth(t.Width)
	case KindIsize, KindUsize:
		return 4
	case KindF64:
		return 8
	case KindFelt:
		return 8
	case KindPtr:
		return 4
	case KindWordPtr:
		return WordBytes
	case KindStruct:
		var total uint32
		for _, f := range t.Fields {
			a := f.Align()
			total = alignUp(total, a)
			total += f.SizeUnaligned()
		}
		return total
	case KindArray:
		return t.Elem.SizeAligned() * t.Len
	}
	return 0
}

// SizeAligned returns the size of t in bytes, padded up to its own
// alignment so that arrays of T may be indexed by simple multiplication.
func (t Type) SizeAligned() uint32 {
	return alignUp(t.SizeUnaligned(), t.Align())
}

func alignUp(v, align uint32) uint32 {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}

// SizeFelts returns ceil(SizeAligned/8): the number of felts needed to
// store t packed in linear memory.
func (t Type) SizeFelts() uint32 {
	return (t.SizeAligned() + FeltBytes - 1) / FeltBytes
}

// SizeWords returns ceil(SizeAligned/32): the number of words needed to
// store t in word-addressed linear memory.
func (t Type) SizeWords() uint32 {
	return (t.SizeAligned() + WordBytes - 1) / WordBytes
}

// Repr returns the operand-stack representation rule for t (§3).
func (t Type) Repr() Repr {
	switch t.Kind {
	case KindUnit, KindNever:
		return ReprZero
	case KindUnknown:
		// Unknown has no well-defined stack representation; callers must
		// reject it before emission (§4.6 failure modes).
		return ReprZero
	case KindI1, KindF64, KindFelt, KindIsize, KindUsize, KindPtr:
		return ReprDefault
	case KindWordPtr:
		return ReprDefault
	case KindSignedInt, KindUnsignedInt:
		if t.Width <= 32 {
			return ReprDefault
		}
		return ReprSparse
	case KindStruct, KindArray:
		return ReprPacked
	}
	return ReprZero
}

// StackWidth returns how many stack elements (felts) a value of type t
// occupies, per its Repr.
func (t Type) StackWidth() uint32 {
	switch t.Repr() {
	case ReprZero:
		return 0
	case ReprDefault:
		return 1
	case ReprSparse:
		return sparseLimbs(t.Width)
	case ReprPacked:
		return t.SizeFelts()
	}
	return 0
}

// sparseLimbs returns the number of 32-bit-or-less limbs needed to
// represent an integer of the given bit width without overflowing felt
// arithmetic: 64-bit integers use 2 limbs, 128-bit use 3 (since the VM's
// u32 multiplication primitives only prove correctness up to 32 bits per
// limb, three 32-bit limbs are needed to safely carry a 96-bit partial
// product during 128-bit multiplication), 256-bit use 5.
func sparseLimbs(width uint32) uint32 {
	switch {
	case width <= 32:
		return 1
	case width <= 64:
		return 2
	case width <= 128:
		return 3
	default:
		return 5
	}
}

// CompatibleOperand reports whether operand may appear as the non-controlling
// operand of a binary op whose controlling type is ctrl, per the
// compatibility relation in §3: an unsigned controlling type accepts
// smaller-or-equal unsigned operands; a signed controlling type accepts
// signed operands and smaller unsigned operands; Felt accepts any integer
// fitting in 32 bits plus Felt itself; wider types accept narrower ones of
// the same signedness class.
func CompatibleOperand(ctrl, operand Type) bool {
	if ctrl.Kind == KindFelt {
		return operand.Kind == KindFelt || (operand.IsInteger() && operand.Width <= 32)
	}
	if !ctrl.IsInteger() || !operand.IsInteger() {
		return ctrl.Equal(operand)
	}
	if ctrl.IsSigned() {
		if operand.IsSigned() {
			return operand.Width <= ctrl.Width
		}
		return operand.Width < ctrl.Width
	}
	// Unsigned controlling type: only accepts smaller-or-equal unsigned.
	if operand.IsSigned() {
		return false
	}
	return operand.Width <= ctrl.Width
}

func (t Type) String() string {
	switch t.Kind {
	case KindUnknown:
		return "unknown"
	case KindUnit:
		return "unit"
	case KindNever:
		return "never"
	case KindI1:
		return "i1"
	case KindSignedInt:
		return fmt.Sprintf("i%d", t.Width)
	case KindUnsignedInt:
		return fmt.Sprintf("u%d", t.Width)
	case KindIsize:
		return "isize"
	case KindUsize:
		return "usize"
	case KindF64:
		return "f64"
	case KindFelt:
		return "felt"
	case KindPtr:
		if t.Pointee != nil {
			return fmt.Sprintf("*%s", t.Pointee)
		}
		return "*u8"
	case KindWordPtr:
		if t.Pointee != nil {
			return fmt.Sprintf("*word %s", t.Pointee)
		}
		return "*word"
	case KindStruct:
		s := "{"
		for i, f := range t.Fields {
			if i > 0 {
				s += ", "
			}
			s += f.String()
		}
		return s + "}"
	case KindArray:
		return fmt.Sprintf("[%s; %d]", t.Elem, t.Len)
	}
	return "?"
}

func (k Kind) String() string {
	t := Type{Kind: k}
	return t.String()
}
