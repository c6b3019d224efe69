package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsI32Boundary(t *testing.T) {
	over := ImmUnsigned(64, uint64(math.MaxUint32)+1)
	_, ok := over.AsI32()
	require.False(t, ok, "as_i32 must reject u64 values above i32 range")

	_, ok = over.AsU32()
	require.False(t, ok, "as_u32 must reject u64 values above u32 range")

	max := ImmUnsigned(64, uint64(math.MaxUint32))
	v, ok := max.AsU32()
	require.True(t, ok)
	require.Equal(t, uint32(math.MaxUint32), v)
}

func TestEqualWidensMixedWidth(t *testing.T) {
	a := ImmSigned(8, 5)
	b := ImmSigned(32, 5)
	require.True(t, a.Equal(b))
	require.False(t, a.Less(b))
	require.False(t, b.Less(a))
}

func TestOrderingAgainstFloat(t *testing.T) {
	three := ImmSigned(32, 3)
	threeHalf := ImmF64(3.5)
	require.True(t, three.Less(threeHalf))
	require.True(t, threeHalf.Less(ImmSigned(32, 4)))

	negHalf := ImmF64(-0.5)
	zero := ImmSigned(32, 0)
	require.True(t, negHalf.Less(zero), "a non-integral negative float orders below the equal integer")
}

func TestImmediateConversionsRoundTrip(t *testing.T) {
	f := ImmFelt(NewFelt(42))
	u, ok := f.AsU64()
	require.True(t, ok)
	require.EqualValues(t, 42, u)

	fv, ok := ImmSigned(32, -7).AsI64()
	require.True(t, ok)
	require.EqualValues(t, -7, fv)
}
