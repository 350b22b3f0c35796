package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ethanol builds C-C-O with explicit hydrogens (9 atoms).
func ethanol(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	c1 := g.AddElement("C")
	c2 := g.AddElement("C")
	o := g.AddElement("O")
	g.MustBond(c1, c2, BondSingle)
	g.MustBond(c2, o, BondSingle)
	for _, heavy := range []struct{ atom, n int }{{c1, 3}, {c2, 2}, {o, 1}} {
		for i := 0; i < heavy.n; i++ {
			h := g.AddElement(Hydrogen)
			g.MustBond(heavy.atom, h, BondSingle)
		}
	}
	return g
}

func TestGraph_Counts(t *testing.T) {
	g := ethanol(t)

	assert.Equal(t, 9, g.AtomCount())
	assert.Equal(t, 3, g.HeavyAtomCount())
	assert.Equal(t, 8, g.BondCount())
	assert.Equal(t, 4, g.Degree(0))
	assert.Equal(t, 1, g.HeavyDegree(0))
	assert.Equal(t, 4, g.ValenceSum(1))
	assert.Equal(t, []int{3, 4, 5}, g.AttachedHydrogens(0))
}

func TestGraph_AddBondErrors(t *testing.T) {
	g := NewGraph()
	a := g.AddElement("C")
	b := g.AddElement("C")

	_, err := g.AddBond(a, a, BondSingle)
	assert.Error(t, err)
	_, err = g.AddBond(a, 7, BondSingle)
	assert.Error(t, err)

	_, err = g.AddBond(a, b, BondSingle)
	require.NoError(t, err)
	_, err = g.AddBond(b, a, BondDouble)
	assert.Error(t, err, "duplicate bond must be rejected")
}

func TestGraph_CloneIsIndependent(t *testing.T) {
	g := ethanol(t)
	c := g.Clone()

	c.RemoveAtoms([]int{2})

	assert.Equal(t, 9, g.AtomCount())
	assert.Equal(t, 8, c.AtomCount())
	assert.Equal(t, 8, g.BondCount())
}

func TestGraph_RemoveAtomsPreservesIDs(t *testing.T) {
	g := ethanol(t)

	removed := g.RemoveAtoms([]int{0, 0, 3, 4, 5, 42})

	assert.Equal(t, 4, removed)
	require.Equal(t, 5, g.AtomCount())
	assert.Equal(t, 1, g.Atoms[0].ID)
	assert.Equal(t, "C", g.Atoms[0].Element)
	assert.Equal(t, 2, g.Atoms[1].ID)
	for _, b := range g.Bonds {
		assert.Less(t, b.A, g.AtomCount())
		assert.Less(t, b.B, g.AtomCount())
	}
	assert.True(t, g.IsConnected())
}

func TestGraph_Components(t *testing.T) {
	g := ethanol(t)
	g.RemoveAtoms([]int{1})

	comps := g.Components()

	sizes := make([]int, 0, len(comps))
	for _, c := range comps {
		sizes = append(sizes, len(c))
	}
	// methyl (C+3H), hydroxyl (O+H), two detached hydrogens of the old CH2
	assert.ElementsMatch(t, []int{4, 2, 1, 1}, sizes)
	assert.Equal(t, 0, comps[0][0])
}

func TestGraph_SubgraphAndHydrogenSuppressed(t *testing.T) {
	g := ethanol(t)

	heavy := g.HydrogenSuppressed()
	assert.Equal(t, 3, heavy.AtomCount())
	assert.Equal(t, 2, heavy.BondCount())

	sub := g.Subgraph([]int{1, 2, 8})
	assert.Equal(t, 3, sub.AtomCount())
	assert.Equal(t, 2, sub.BondCount())
}

func TestGraph_Formula(t *testing.T) {
	g := NewGraph()
	for _, el := range []string{"O", "C", "C", "C", "C", "C", "N"} {
		g.AddElement(el)
	}
	assert.Equal(t, "C5NO", g.Formula([]int{0, 1, 2, 3, 4, 5, 6}))
	assert.Equal(t, "C4O", g.Formula([]int{0, 1, 2, 3, 4}))
	assert.Equal(t, "C", g.Formula([]int{1}))
}

func TestBondOrder(t *testing.T) {
	assert.Equal(t, "", BondSingle.Symbol())
	assert.Equal(t, "=", BondDouble.Symbol())
	assert.Equal(t, "#", BondTriple.Symbol())
	assert.Equal(t, 1, BondAromatic.Valence())
	assert.Equal(t, 3, BondTriple.Valence())
}

func TestCyclicAtoms(t *testing.T) {
	// cyclopropane with a methyl tail: 0-1-2-0, 2-3
	g := NewGraph()
	for i := 0; i < 4; i++ {
		g.AddElement("C")
	}
	g.MustBond(0, 1, BondSingle)
	g.MustBond(1, 2, BondSingle)
	g.MustBond(2, 0, BondSingle)
	g.MustBond(2, 3, BondSingle)

	assert.Equal(t, []bool{true, true, true, false}, CyclicAtoms(g))
}

func TestRingSet_Fusion(t *testing.T) {
	rs := NewRingSet(10, []Ring{
		{Atoms: []int{4, 5, 6, 7, 8, 9}},
		{Atoms: []int{0, 1, 2, 3, 4}},
	})

	require.Equal(t, 2, rs.Len())
	assert.Equal(t, 5, rs.Rings[0].Size(), "rings are ordered by size")
	assert.True(t, rs.IsFused(0))
	assert.True(t, rs.IsFused(1))
	assert.True(t, rs.InRing(4))
	assert.Len(t, rs.RingsOf(4), 2)

	isolated := NewRingSet(6, []Ring{{Atoms: []int{0, 1, 2, 3, 4, 5}}})
	assert.False(t, isolated.IsFused(0))

	var nilSet *RingSet
	assert.False(t, nilSet.InRing(0))
	assert.Equal(t, 0, nilSet.Len())
}
