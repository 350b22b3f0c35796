// Package molecule provides the molecular graph model consumed by the sugar
// stripper, the signature generator and the scorer, together with the
// MoleculeRecord aggregate that the batch orchestrator scores and persists.
//
// A Graph is treated as immutable once built.  Code that needs to change a
// graph clones it first and mutates the private copy.
package molecule

import (
	"fmt"
	"sort"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Atoms and bonds
// ─────────────────────────────────────────────────────────────────────────────

// BondOrder is the order of a bond.  Aromatic bonds are kept distinct from
// single and double bonds; no kekulisation is attempted.
type BondOrder int

const (
	BondSingle   BondOrder = 1
	BondDouble   BondOrder = 2
	BondTriple   BondOrder = 3
	BondAromatic BondOrder = 4
)

// Symbol returns the SMILES bond symbol for the order ("" for single).
func (o BondOrder) Symbol() string {
	switch o {
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondAromatic:
		return ":"
	default:
		return ""
	}
}

// Valence returns the contribution of the bond to an atom's valence.
func (o BondOrder) Valence() int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	default:
		return 1
	}
}

// Hydrogen is the element symbol for hydrogen.
const Hydrogen = "H"

// Atom is a vertex of the molecular graph.
type Atom struct {
	// ID is the atom's index in the graph it was first parsed into.  It is
	// preserved across Clone and RemoveAtoms so that derived graphs can be
	// traced back to the source structure.
	ID       int
	Element  string
	Charge   int
	Aromatic bool

	// ImplicitH is the hydrogen count declared by the notation but not yet
	// added as atoms.  Graphs handed to the engine have it expanded to zero.
	ImplicitH int
}

// IsHydrogen reports whether the atom is a hydrogen.
func (a Atom) IsHydrogen() bool { return a.Element == Hydrogen }

// Bond is an edge between two atom positions of the same Graph.
type Bond struct {
	A, B  int
	Order BondOrder
}

// Other returns the bond end opposite to atom i.
func (b Bond) Other(i int) int {
	if b.A == i {
		return b.B
	}
	return b.A
}

// Neighbor is an adjacent atom reached through Bond.
type Neighbor struct {
	Atom int
	Bond int
}

// ─────────────────────────────────────────────────────────────────────────────
// Graph
// ─────────────────────────────────────────────────────────────────────────────

// Graph is an undirected labelled molecular graph.
type Graph struct {
	Atoms []Atom
	Bonds []Bond

	adj [][]Neighbor
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// AddAtom appends an atom and returns its position.  The atom ID is set to the
// position.
func (g *Graph) AddAtom(a Atom) int {
	idx := len(g.Atoms)
	a.ID = idx
	g.Atoms = append(g.Atoms, a)
	g.adj = append(g.adj, nil)
	return idx
}

// AddElement is AddAtom for a plain neutral, non-aromatic atom.
func (g *Graph) AddElement(element string) int {
	return g.AddAtom(Atom{Element: element})
}

// AddBond connects atoms a and b and returns the bond position.
func (g *Graph) AddBond(a, b int, order BondOrder) (int, error) {
	if a == b {
		return -1, fmt.Errorf("molecule: self bond on atom %d", a)
	}
	if a < 0 || b < 0 || a >= len(g.Atoms) || b >= len(g.Atoms) {
		return -1, fmt.Errorf("molecule: bond %d-%d references a missing atom", a, b)
	}
	if _, ok := g.BondBetween(a, b); ok {
		return -1, fmt.Errorf("molecule: duplicate bond %d-%d", a, b)
	}
	g.ensureAdjacency()
	idx := len(g.Bonds)
	g.Bonds = append(g.Bonds, Bond{A: a, B: b, Order: order})
	g.adj[a] = append(g.adj[a], Neighbor{Atom: b, Bond: idx})
	g.adj[b] = append(g.adj[b], Neighbor{Atom: a, Bond: idx})
	return idx, nil
}

// MustBond is AddBond for fixtures and compiled reference patterns; it panics
// on error.
func (g *Graph) MustBond(a, b int, order BondOrder) int {
	idx, err := g.AddBond(a, b, order)
	if err != nil {
		panic(err)
	}
	return idx
}

func (g *Graph) ensureAdjacency() {
	if len(g.adj) == len(g.Atoms) {
		return
	}
	g.adj = make([][]Neighbor, len(g.Atoms))
	for i, b := range g.Bonds {
		g.adj[b.A] = append(g.adj[b.A], Neighbor{Atom: b.B, Bond: i})
		g.adj[b.B] = append(g.adj[b.B], Neighbor{Atom: b.A, Bond: i})
	}
}

// AtomCount returns the number of atoms including explicit hydrogens.
func (g *Graph) AtomCount() int { return len(g.Atoms) }

// BondCount returns the number of bonds.
func (g *Graph) BondCount() int { return len(g.Bonds) }

// HeavyAtomCount returns the number of non-hydrogen atoms.
func (g *Graph) HeavyAtomCount() int {
	n := 0
	for _, a := range g.Atoms {
		if !a.IsHydrogen() {
			n++
		}
	}
	return n
}

// IsEmpty reports whether the graph has no atoms.
func (g *Graph) IsEmpty() bool { return g == nil || len(g.Atoms) == 0 }

// Neighbors returns the atoms adjacent to atom i.  The returned slice must not
// be modified.
func (g *Graph) Neighbors(i int) []Neighbor {
	g.ensureAdjacency()
	return g.adj[i]
}

// Degree returns the number of bonds of atom i.
func (g *Graph) Degree(i int) int {
	return len(g.Neighbors(i))
}

// HeavyDegree returns the number of non-hydrogen neighbours of atom i.
func (g *Graph) HeavyDegree(i int) int {
	n := 0
	for _, nb := range g.Neighbors(i) {
		if !g.Atoms[nb.Atom].IsHydrogen() {
			n++
		}
	}
	return n
}

// BondBetween returns the bond joining atoms a and b.
func (g *Graph) BondBetween(a, b int) (int, bool) {
	if a < 0 || a >= len(g.Atoms) {
		return -1, false
	}
	for _, nb := range g.Neighbors(a) {
		if nb.Atom == b {
			return nb.Bond, true
		}
	}
	return -1, false
}

// ValenceSum returns the sum of bond valences around atom i.
func (g *Graph) ValenceSum(i int) int {
	sum := 0
	for _, nb := range g.Neighbors(i) {
		sum += g.Bonds[nb.Bond].Order.Valence()
	}
	return sum
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Atoms: make([]Atom, len(g.Atoms)),
		Bonds: make([]Bond, len(g.Bonds)),
	}
	copy(c.Atoms, g.Atoms)
	copy(c.Bonds, g.Bonds)
	return c
}

// RemoveAtoms deletes the given atom positions and every bond touching them.
// Positions are collected first and the graph is rebuilt in one pass, so the
// caller never mutates the atom list while iterating it.  Unknown positions
// are ignored.  It returns the number of atoms removed.
func (g *Graph) RemoveAtoms(positions []int) int {
	drop := make([]bool, len(g.Atoms))
	n := 0
	for _, p := range positions {
		if p >= 0 && p < len(drop) && !drop[p] {
			drop[p] = true
			n++
		}
	}
	if n == 0 {
		return 0
	}

	remap := make([]int, len(g.Atoms))
	atoms := make([]Atom, 0, len(g.Atoms)-n)
	for i, a := range g.Atoms {
		if drop[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(atoms)
		atoms = append(atoms, a)
	}
	bonds := make([]Bond, 0, len(g.Bonds))
	for _, b := range g.Bonds {
		if drop[b.A] || drop[b.B] {
			continue
		}
		bonds = append(bonds, Bond{A: remap[b.A], B: remap[b.B], Order: b.Order})
	}
	g.Atoms, g.Bonds, g.adj = atoms, bonds, nil
	return n
}

// Subgraph returns a new graph holding only the given atom positions and the
// bonds among them.
func (g *Graph) Subgraph(positions []int) *Graph {
	keep := make(map[int]bool, len(positions))
	for _, p := range positions {
		keep[p] = true
	}
	var drop []int
	for i := range g.Atoms {
		if !keep[i] {
			drop = append(drop, i)
		}
	}
	c := g.Clone()
	c.RemoveAtoms(drop)
	return c
}

// Components partitions the graph into connected components.  Each component
// lists atom positions in ascending order; components are ordered by their
// lowest position.
func (g *Graph) Components() [][]int {
	seen := make([]bool, len(g.Atoms))
	var comps [][]int
	for start := range g.Atoms {
		if seen[start] {
			continue
		}
		var comp []int
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, cur)
			for _, nb := range g.Neighbors(cur) {
				if !seen[nb.Atom] {
					seen[nb.Atom] = true
					stack = append(stack, nb.Atom)
				}
			}
		}
		sort.Ints(comp)
		comps = append(comps, comp)
	}
	return comps
}

// IsConnected reports whether the graph has at most one component.
func (g *Graph) IsConnected() bool {
	return len(g.Components()) <= 1
}

// HydrogenSuppressed returns a copy with all hydrogen atoms removed.
func (g *Graph) HydrogenSuppressed() *Graph {
	var hs []int
	for i, a := range g.Atoms {
		if a.IsHydrogen() {
			hs = append(hs, i)
		}
	}
	c := g.Clone()
	c.RemoveAtoms(hs)
	return c
}

// AttachedHydrogens returns the positions of hydrogen atoms bonded to atom i.
func (g *Graph) AttachedHydrogens(i int) []int {
	var hs []int
	for _, nb := range g.Neighbors(i) {
		if g.Atoms[nb.Atom].IsHydrogen() {
			hs = append(hs, nb.Atom)
		}
	}
	return hs
}

// Formula returns a Hill-ordered formula over the given atom positions,
// ignoring hydrogens ("C5O" for a pyranose ring).
func (g *Graph) Formula(positions []int) string {
	counts := make(map[string]int)
	for _, p := range positions {
		if el := g.Atoms[p].Element; el != Hydrogen {
			counts[el]++
		}
	}
	var sb strings.Builder
	writeCount := func(el string) {
		n := counts[el]
		if n == 0 {
			return
		}
		sb.WriteString(el)
		if n > 1 {
			fmt.Fprintf(&sb, "%d", n)
		}
		delete(counts, el)
	}
	writeCount("C")
	rest := make([]string, 0, len(counts))
	for el := range counts {
		rest = append(rest, el)
	}
	sort.Strings(rest)
	for _, el := range rest {
		writeCount(el)
	}
	return sb.String()
}

// String renders a compact debugging form such as "C6O6 +12H (24 atoms, 24 bonds)".
func (g *Graph) String() string {
	all := make([]int, len(g.Atoms))
	for i := range all {
		all[i] = i
	}
	h := len(g.Atoms) - g.HeavyAtomCount()
	f := g.Formula(all)
	if h > 0 {
		f += fmt.Sprintf(" +%dH", h)
	}
	return fmt.Sprintf("%s (%d atoms, %d bonds)", f, len(g.Atoms), len(g.Bonds))
}
