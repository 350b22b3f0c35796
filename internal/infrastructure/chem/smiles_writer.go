package chem

import (
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
)

// WriteSMILES renders g as a hydrogen-suppressed SMILES string.  Explicit
// hydrogen atoms attached to heavy atoms are folded into hydrogen counts;
// ImplicitH is added on top.  Output is deterministic for a given atom
// order but is not canonical.
func WriteSMILES(g *molecule.Graph) string {
	if g.IsEmpty() {
		return ""
	}
	w := newSmilesWriter(g)
	var parts []string
	for _, root := range w.roots() {
		var sb strings.Builder
		w.plan(root, -1)
		w.write(&sb, root, -1)
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, ".")
}

type smilesWriter struct {
	g       *molecule.Graph
	keep    []bool // atoms that appear in the output
	hcount  []int
	visited []bool
	done    map[int]bool // bonds already assigned (tree or ring)
	kids    [][]int      // tree children in write order, as bond indices
	opens   [][]int      // ring bonds opened at an atom
	closes  [][]int      // ring bonds closed at an atom
	digit   map[int]int  // ring bond -> digit while open
	inUse   map[int]bool
}

func newSmilesWriter(g *molecule.Graph) *smilesWriter {
	n := g.AtomCount()
	w := &smilesWriter{
		g:       g,
		keep:    make([]bool, n),
		hcount:  make([]int, n),
		visited: make([]bool, n),
		done:    make(map[int]bool),
		kids:    make([][]int, n),
		opens:   make([][]int, n),
		closes:  make([][]int, n),
		digit:   make(map[int]int),
		inUse:   make(map[int]bool),
	}
	for i, a := range g.Atoms {
		if !a.IsHydrogen() || g.HeavyDegree(i) == 0 {
			w.keep[i] = true
		}
	}
	for i, a := range g.Atoms {
		if !w.keep[i] {
			continue
		}
		w.hcount[i] = a.ImplicitH
		if !a.IsHydrogen() {
			w.hcount[i] += len(g.AttachedHydrogens(i))
		}
	}
	return w
}

// roots returns the lowest kept atom of every component.
func (w *smilesWriter) roots() []int {
	var out []int
	seen := make([]bool, w.g.AtomCount())
	for start := range w.g.Atoms {
		if !w.keep[start] || seen[start] {
			continue
		}
		out = append(out, start)
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, nb := range w.g.Neighbors(cur) {
				if w.keep[nb.Atom] && !seen[nb.Atom] {
					seen[nb.Atom] = true
					stack = append(stack, nb.Atom)
				}
			}
		}
	}
	return out
}

func (w *smilesWriter) sortedNeighbors(u int) []molecule.Neighbor {
	var nbs []molecule.Neighbor
	for _, nb := range w.g.Neighbors(u) {
		if w.keep[nb.Atom] {
			nbs = append(nbs, nb)
		}
	}
	sort.Slice(nbs, func(i, j int) bool { return nbs[i].Atom < nbs[j].Atom })
	return nbs
}

// plan is the first DFS pass: it fixes tree edges and ring closures.
func (w *smilesWriter) plan(u, via int) {
	w.visited[u] = true
	for _, nb := range w.sortedNeighbors(u) {
		if nb.Bond == via || w.done[nb.Bond] {
			continue
		}
		w.done[nb.Bond] = true
		if w.visited[nb.Atom] {
			w.opens[nb.Atom] = append(w.opens[nb.Atom], nb.Bond)
			w.closes[u] = append(w.closes[u], nb.Bond)
			continue
		}
		w.kids[u] = append(w.kids[u], nb.Bond)
		w.plan(nb.Atom, nb.Bond)
	}
}

func (w *smilesWriter) write(sb *strings.Builder, u, via int) {
	if via >= 0 {
		b := w.g.Bonds[via]
		sb.WriteString(w.bondSymbol(b))
	}
	sb.WriteString(w.atomSymbol(u))

	for _, bi := range w.closes[u] {
		d := w.digit[bi]
		delete(w.digit, bi)
		delete(w.inUse, d)
		sb.WriteString(ringDigit(d))
	}
	for _, bi := range w.opens[u] {
		d := 1
		for w.inUse[d] {
			d++
		}
		w.inUse[d] = true
		w.digit[bi] = d
		sb.WriteString(w.bondSymbol(w.g.Bonds[bi]))
		sb.WriteString(ringDigit(d))
	}

	kids := w.kids[u]
	for i, bi := range kids {
		child := w.g.Bonds[bi].Other(u)
		if i < len(kids)-1 {
			sb.WriteByte('(')
			w.write(sb, child, bi)
			sb.WriteByte(')')
			continue
		}
		w.write(sb, child, bi)
	}
}

func ringDigit(d int) string {
	if d < 10 {
		return fmt.Sprintf("%d", d)
	}
	return fmt.Sprintf("%%%02d", d)
}

func (w *smilesWriter) bondSymbol(b molecule.Bond) string {
	aromEnds := w.g.Atoms[b.A].Aromatic && w.g.Atoms[b.B].Aromatic
	switch b.Order {
	case molecule.BondSingle:
		if aromEnds {
			return "-"
		}
		return ""
	case molecule.BondAromatic:
		if aromEnds {
			return ""
		}
		return ":"
	default:
		return b.Order.Symbol()
	}
}

func (w *smilesWriter) atomSymbol(u int) string {
	a := w.g.Atoms[u]
	sym := a.Element
	_, organicOK := organic[a.Element]
	if a.Aromatic {
		sym = strings.ToLower(a.Element)
		_, ok := aromaticSymbols[sym]
		organicOK = organicOK && ok
	}
	h := w.hcount[u]

	if organicOK && a.Charge == 0 {
		used := 0
		for _, nb := range w.g.Neighbors(u) {
			if w.keep[nb.Atom] {
				used += w.g.Bonds[nb.Bond].Order.Valence()
			}
		}
		if a.Aromatic {
			used++
		}
		if implicitHydrogens(a.Element, used) == h {
			return sym
		}
	}

	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(sym)
	if h > 0 {
		sb.WriteByte('H')
		if h > 1 {
			fmt.Fprintf(&sb, "%d", h)
		}
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		fmt.Fprintf(&sb, "+%d", a.Charge)
	case a.Charge < -1:
		fmt.Fprintf(&sb, "-%d", -a.Charge)
	}
	sb.WriteByte(']')
	return sb.String()
}
