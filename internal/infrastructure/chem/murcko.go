package chem

import (
	"github.com/turtacn/npl-scorer/internal/domain/molecule"
)

// MurckoFramework returns the Bemis-Murcko framework of g (ring systems plus
// the linkers between them) as SMILES.  Side chains are pruned and each pruned
// bond is replaced by hydrogens on the retained atom.  Acyclic structures
// yield "".
func MurckoFramework(g *molecule.Graph) string {
	fw := MurckoGraph(g)
	if fw.IsEmpty() {
		return ""
	}
	return WriteSMILES(fw)
}

// MurckoGraph returns the framework as a hydrogen-suppressed graph whose
// hydrogen counts are carried in ImplicitH.
func MurckoGraph(g *molecule.Graph) *molecule.Graph {
	n := g.AtomCount()
	alive := make([]bool, n)
	deg := make([]int, n)
	hcount := make([]int, n)
	for i, a := range g.Atoms {
		if a.IsHydrogen() {
			continue
		}
		alive[i] = true
		deg[i] = g.HeavyDegree(i)
		hcount[i] = a.ImplicitH + len(g.AttachedHydrogens(i))
	}

	var queue []int
	for i := range alive {
		if alive[i] && deg[i] <= 1 {
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if !alive[u] {
			continue
		}
		alive[u] = false
		for _, nb := range g.Neighbors(u) {
			v := nb.Atom
			if !alive[v] {
				continue
			}
			hcount[v] += g.Bonds[nb.Bond].Order.Valence()
			deg[v]--
			if deg[v] <= 1 {
				queue = append(queue, v)
			}
		}
	}

	var keep []int
	for i := range alive {
		if alive[i] {
			keep = append(keep, i)
		}
	}
	fw := g.Subgraph(keep)
	for i := range fw.Atoms {
		fw.Atoms[i].ImplicitH = hcount[keep[i]]
	}
	return fw
}
