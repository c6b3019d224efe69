package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackWidthSparseIntegers(t *testing.T) {
	require.Equal(t, uint32(1), UnsignedInt(32).StackWidth())
	require.Equal(t, uint32(2), UnsignedInt(64).StackWidth())
	require.Equal(t, uint32(3), UnsignedInt(128).StackWidth())
	require.Equal(t, uint32(5), UnsignedInt(256).StackWidth())
}

func TestCompatibleOperand(t *testing.T) {
	u32 := UnsignedInt(32)
	require.True(t, CompatibleOperand(u32, UnsignedInt(16)))
	require.False(t, CompatibleOperand(u32, SignedInt(16)))

	i32 := SignedInt(32)
	require.True(t, CompatibleOperand(i32, SignedInt(16)))
	require.True(t, CompatibleOperand(i32, UnsignedInt(16)))
	require.False(t, CompatibleOperand(i32, UnsignedInt(32)))

	require.True(t, CompatibleOperand(Felt(), UnsignedInt(32)))
	require.True(t, CompatibleOperand(Felt(), Felt()))
	require.False(t, CompatibleOperand(Felt(), UnsignedInt(64)))
}

func TestStructLayoutAlignment(t *testing.T) {
	s := Struct(UnsignedInt(8), UnsignedInt(32), UnsignedInt(8))
	require.Equal(t, uint32(4), s.Align())
	// byte 0: u8, pad to 4, bytes 4-7: u32, byte 8: u8, pad to alignment 4 -> 12
	require.Equal(t, uint32(12), s.SizeAligned())
}

func TestArraySize(t *testing.T) {
	a := Array(UnsignedInt(64), 4)
	require.Equal(t, uint32(32), a.SizeAligned())
	require.Equal(t, uint32(1), a.SizeWords())
}

func TestFeltArithmeticWrapsAtModulus(t *testing.T) {
	max := Felt(FeltModulus - 1)
	require.Equal(t, Felt(0), max.Add(Felt(1)))
	require.Equal(t, Felt(FeltModulus-2), max.Sub(Felt(1)))

	a := NewFelt(1 << 63)
	b := NewFelt(1 << 63)
	got := a.Mul(b)
	// (2^63)^2 mod p computed independently via Pow for cross-check.
	want := a.Pow(2)
	require.Equal(t, want, got)
}
