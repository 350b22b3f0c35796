package signature

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/internal/infrastructure/chem"
)

func parse(t *testing.T, smiles string) *molecule.Graph {
	t.Helper()
	g, err := chem.NewToolkit(chem.Options{}).Parse(smiles, molecule.FormatSMILES)
	require.NoError(t, err)
	return g
}

// permute rebuilds g with atoms renumbered by perm and bonds in reverse order.
func permute(g *molecule.Graph, perm []int) *molecule.Graph {
	out := molecule.NewGraph()
	inv := make([]int, len(perm))
	for newPos, oldPos := range perm {
		inv[oldPos] = newPos
	}
	for _, old := range perm {
		out.AddAtom(g.Atoms[old])
	}
	for i := len(g.Bonds) - 1; i >= 0; i-- {
		b := g.Bonds[i]
		out.MustBond(inv[b.B], inv[b.A], b.Order)
	}
	return out
}

func TestGenerator_Methanol(t *testing.T) {
	g := parse(t, "CO")
	gen := NewGenerator(2)

	assert.Equal(t, "[O]([C]([H][H][H])[H])", gen.Atom(g, 1))
	assert.Equal(t, "[C]([H][H][H][O]([H]))", gen.Atom(g, 0))

	table := gen.Generate(g)
	assert.Equal(t, g.AtomCount(), table.Total())
	assert.Equal(t, 3, table["[H]([C]([H][H][O]))"])
	assert.Equal(t, 1, table["[H]([O]([C]))"])
}

func TestGenerator_BondPrefixesAndCharges(t *testing.T) {
	gen := NewGenerator(1)

	acetate := parse(t, "CC(=O)[O-]")
	assert.Equal(t, "[C](=[O][C][O-])", gen.Atom(acetate, 1))

	benzene := parse(t, "c1ccccc1")
	assert.Equal(t, "[C]([H]p[C]p[C])", gen.Atom(benzene, 0))

	nitrile := parse(t, "CC#N")
	assert.Equal(t, "[N](#[C])", gen.Atom(nitrile, 2))
}

func TestGenerator_CanonicalUnderRenumbering(t *testing.T) {
	gen := NewGenerator(DefaultHeight)
	rng := rand.New(rand.NewSource(7))

	for _, s := range []string{
		"OCC1OC(O)C(O)C(O)C1O",
		"CC(=O)Oc1ccccc1C(=O)O",
		"C[N+](C)(C)CC([O-])=O",
	} {
		g := parse(t, s)
		want := gen.Generate(g)
		for k := 0; k < 5; k++ {
			perm := rng.Perm(g.AtomCount())
			assert.Equal(t, want, gen.Generate(permute(g, perm)), s)
		}
	}
}

func TestGenerator_EquivalentSmilesGiveEqualTables(t *testing.T) {
	gen := NewGenerator(DefaultHeight)
	assert.Equal(t, gen.Generate(parse(t, "OCC")), gen.Generate(parse(t, "C(O)C")))
}

func TestTable_Helpers(t *testing.T) {
	tab := Table{"[H]([C])": 2, "[C]([H][H])": 1}

	assert.Equal(t, 3, tab.Total())
	assert.Equal(t, []string{"[C]([H][H])", "[H]([C])"}, tab.Signatures())
	assert.True(t, IsHydrogenRooted("[H]([O])"))
	assert.False(t, IsHydrogenRooted("[Hg]"))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "[Fe+3]", Label(molecule.Atom{Element: "Fe", Charge: 3}))
	assert.Equal(t, "[S-2]", Label(molecule.Atom{Element: "S", Charge: -2}))
	assert.Equal(t, "[N+]", Label(molecule.Atom{Element: "N", Charge: 1}))
}
