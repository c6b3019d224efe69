package hir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDominatorsDiamond(t *testing.T) {
	f, entry, left, right, join := buildDiamond(t)
	dom := f.Dominators()

	require.Equal(t, entry, dom.Idom(left))
	require.Equal(t, entry, dom.Idom(right))
	require.Equal(t, entry, dom.Idom(join), "join is reached from two paths so only entry dominates it")
	require.True(t, dom.Dominates(entry, join))
	require.False(t, dom.Dominates(left, join))
	require.False(t, dom.Dominates(right, join))
	require.True(t, dom.Dominates(join, join))
}

func TestDominatorsLinearChain(t *testing.T) {
	f := NewFunction("chain", Signature{})
	a := f.Entry()
	b := f.CreateBlock()
	c := f.CreateBlock()
	f.Br(a, b, nil)
	f.Br(b, c, nil)
	f.Ret(c, nil)

	dom := f.Dominators()
	require.True(t, dom.Dominates(a, b))
	require.True(t, dom.Dominates(a, c))
	require.True(t, dom.Dominates(b, c))
	require.False(t, dom.Dominates(c, a))
}

func TestDominatorsUnreachableBlock(t *testing.T) {
	f := NewFunction("unreachable", Signature{})
	a := f.Entry()
	f.Ret(a, nil)
	// orphan has no predecessor and is never a CFG successor of anything.
	orphan := f.CreateBlock()
	f.Ret(orphan, nil)

	dom := f.Dominators()
	require.Equal(t, InvalidBlock, dom.Idom(orphan))
	require.False(t, dom.Dominates(a, orphan))
}
