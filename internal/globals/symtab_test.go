package globals

import (
	"testing"

	"github.com/midenhir/compiler/internal/types"
	"github.com/stretchr/testify/require"
)

func TestDeclareInternalCollisionRenames(t *testing.T) {
	st := NewSymbolTable()
	a, err := st.Declare(Global{Name: "counter", Type: types.Usize(), Linkage: Internal, Init: EncodeInit(types.Usize(), 0)})
	require.NoError(t, err)
	require.Equal(t, "counter", a.Name)

	b, err := st.Declare(Global{Name: "counter", Type: types.Usize(), Linkage: Internal, Init: EncodeInit(types.Usize(), 1)})
	require.NoError(t, err)
	require.NotEqual(t, "counter", b.Name)
	require.Contains(t, b.Name, "counter.")
}

func TestDeclareOdrMergesIdenticalDefinitions(t *testing.T) {
	st := NewSymbolTable()
	g := Global{Name: "shared", Type: types.Felt(), Linkage: Odr, Init: EncodeInit(types.Felt(), 7)}
	a, err := st.Declare(g)
	require.NoError(t, err)
	b, err := st.Declare(g)
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Len(t, st.Globals(), 1)
}

func TestDeclareOdrConflictOnDisagreement(t *testing.T) {
	st := NewSymbolTable()
	_, err := st.Declare(Global{Name: "shared", Type: types.Felt(), Linkage: Odr, Init: EncodeInit(types.Felt(), 7)})
	require.NoError(t, err)

	_, err = st.Declare(Global{Name: "shared", Type: types.Felt(), Linkage: Odr, Init: EncodeInit(types.Felt(), 8)})
	require.Error(t, err)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestLayoutAscendingWithAlignmentPadding(t *testing.T) {
	st := NewSymbolTable()
	_, err := st.Declare(Global{Name: "flag", Type: types.I1(), Linkage: Internal, Init: EncodeInit(types.I1(), 1)})
	require.NoError(t, err)
	_, err = st.Declare(Global{Name: "wide", Type: types.UnsignedInt(64), Linkage: Internal, Init: EncodeInit(types.UnsignedInt(64), 0xDEAD)})
	require.NoError(t, err)

	l := st.Layout(DefaultReservedBytes)
	require.Equal(t, uint32(DefaultReservedBytes), l.Offsets["flag"])
	require.Equal(t, uint32(0), l.Offsets["wide"]%types.UnsignedInt(64).Align(), "a wider global must start on its own alignment boundary")
	require.Greater(t, l.Offsets["wide"], l.Offsets["flag"])
	require.Len(t, l.Segments, 2)
}
