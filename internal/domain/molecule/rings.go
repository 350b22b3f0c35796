package molecule

import (
	"sort"
)

// Ring is one cycle of the smallest set of smallest rings.  Atoms are listed in
// traversal order around the ring; Bonds lists the ring bonds.
type Ring struct {
	Atoms []int
	Bonds []int
}

// Size returns the ring size.
func (r Ring) Size() int { return len(r.Atoms) }

// Contains reports whether atom is a member of the ring.
func (r Ring) Contains(atom int) bool {
	for _, a := range r.Atoms {
		if a == atom {
			return true
		}
	}
	return false
}

// RingSet is the perceived ring basis of one graph plus the derived
// atom-to-ring membership used for fusion checks.
type RingSet struct {
	Rings []Ring

	atomRings [][]int
}

// NewRingSet indexes rings over a graph with numAtoms atoms.  Rings are ordered
// by size, then by their lowest atom position, so that callers see a stable
// order regardless of how perception enumerated them.
func NewRingSet(numAtoms int, rings []Ring) *RingSet {
	sorted := make([]Ring, len(rings))
	copy(sorted, rings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i].Atoms) != len(sorted[j].Atoms) {
			return len(sorted[i].Atoms) < len(sorted[j].Atoms)
		}
		return minInt(sorted[i].Atoms) < minInt(sorted[j].Atoms)
	})

	rs := &RingSet{Rings: sorted, atomRings: make([][]int, numAtoms)}
	for ri, r := range sorted {
		for _, a := range r.Atoms {
			if a >= 0 && a < numAtoms {
				rs.atomRings[a] = append(rs.atomRings[a], ri)
			}
		}
	}
	return rs
}

func minInt(xs []int) int {
	m := -1
	for _, x := range xs {
		if m < 0 || x < m {
			m = x
		}
	}
	return m
}

// Len returns the number of rings.
func (rs *RingSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rings)
}

// InRing reports whether atom belongs to at least one ring.
func (rs *RingSet) InRing(atom int) bool {
	if rs == nil || atom < 0 || atom >= len(rs.atomRings) {
		return false
	}
	return len(rs.atomRings[atom]) > 0
}

// RingsOf returns the indices of the rings containing atom.
func (rs *RingSet) RingsOf(atom int) []int {
	if rs == nil || atom < 0 || atom >= len(rs.atomRings) {
		return nil
	}
	return rs.atomRings[atom]
}

// IsFused reports whether ring i shares an atom (and therefore possibly a bond)
// with any other ring of the set.
func (rs *RingSet) IsFused(i int) bool {
	for _, a := range rs.Rings[i].Atoms {
		if len(rs.atomRings[a]) > 1 {
			return true
		}
	}
	return false
}

// CyclicAtoms marks every atom that lies on at least one cycle, using bridge
// detection.  It never fails, so callers fall back to it when full ring
// perception is not available.
func CyclicAtoms(g *Graph) []bool {
	n := g.AtomCount()
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	bridge := make([]bool, g.BondCount())
	timer := 0

	type frame struct {
		atom, parentBond, next int
	}
	for root := 0; root < n; root++ {
		if disc[root] >= 0 {
			continue
		}
		disc[root], low[root] = timer, timer
		timer++
		stack := []frame{{atom: root, parentBond: -1}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			nbs := g.Neighbors(top.atom)
			if top.next < len(nbs) {
				nb := nbs[top.next]
				top.next++
				if nb.Bond == top.parentBond {
					continue
				}
				if disc[nb.Atom] < 0 {
					disc[nb.Atom], low[nb.Atom] = timer, timer
					timer++
					stack = append(stack, frame{atom: nb.Atom, parentBond: nb.Bond})
				} else if disc[nb.Atom] < low[top.atom] {
					low[top.atom] = disc[nb.Atom]
				}
				continue
			}
			done := *top
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				continue
			}
			parent := &stack[len(stack)-1]
			if low[done.atom] < low[parent.atom] {
				low[parent.atom] = low[done.atom]
			}
			if low[done.atom] > disc[parent.atom] {
				bridge[done.parentBond] = true
			}
		}
	}

	cyclic := make([]bool, n)
	for i, b := range g.Bonds {
		if !bridge[i] {
			cyclic[b.A] = true
			cyclic[b.B] = true
		}
	}
	return cyclic
}
