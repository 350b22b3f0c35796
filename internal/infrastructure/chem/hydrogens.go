package chem

import (
	"sort"

	"github.com/samber/lo"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
)

// AddExplicitHydrogens returns a copy of g in which every implicit hydrogen has
// been added as an atom bonded to its parent.  The engine always works on
// hydrogen-complete graphs: hydrogen-rooted signatures and total atom counts
// depend on it.
func AddExplicitHydrogens(g *molecule.Graph) *molecule.Graph {
	out := g.Clone()
	heavy := len(out.Atoms)
	for i := 0; i < heavy; i++ {
		n := out.Atoms[i].ImplicitH
		out.Atoms[i].ImplicitH = 0
		for k := 0; k < n; k++ {
			h := out.AddElement(molecule.Hydrogen)
			out.MustBond(i, h, molecule.BondSingle)
		}
	}
	return out
}

// CompleteHydrogens returns a copy of g with lost[i] hydrogens bonded to atom
// i.  New atoms get IDs above every existing ID, so they never alias atoms of
// the source structure.
func CompleteHydrogens(g *molecule.Graph, lost map[int]int) *molecule.Graph {
	out := g.Clone()
	next := lo.MaxBy(out.Atoms, func(a, b molecule.Atom) bool { return a.ID > b.ID }).ID + 1
	positions := lo.Keys(lost)
	sort.Ints(positions)
	for _, i := range positions {
		if i < 0 || i >= g.AtomCount() {
			continue
		}
		for k := 0; k < lost[i]; k++ {
			h := out.AddElement(molecule.Hydrogen)
			out.Atoms[h].ID = next
			next++
			out.MustBond(i, h, molecule.BondSingle)
		}
	}
	return out
}

// SaturateFromValence sets ImplicitH on organic-subset atoms from their
// default valences.  Molfiles carry no hydrogen counts, so the reader relies on
// it.  A formal charge raises the valence of N, P, O and S and lowers that of
// B and C.
func SaturateFromValence(g *molecule.Graph) {
	for i := range g.Atoms {
		a := &g.Atoms[i]
		if a.IsHydrogen() {
			continue
		}
		used := g.ValenceSum(i)
		if a.Aromatic {
			used++
		}
		a.ImplicitH = chargedImplicitHydrogens(a.Element, a.Charge, used)
	}
}

func chargedImplicitHydrogens(element string, charge, used int) int {
	for _, v := range organic[element] {
		switch element {
		case "N", "P", "O", "S":
			v += charge
		case "B", "C":
			v -= abs(charge)
		}
		if v >= used {
			return v - used
		}
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
