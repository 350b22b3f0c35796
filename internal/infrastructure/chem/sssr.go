package chem

import (
	"sort"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// DefaultRingMaxCandidates caps the Horton candidate set.  Highly fused cage
// structures beyond it fail perception rather than stall a worker.
const DefaultRingMaxCandidates = 20000

// SSSR perceives the smallest set of smallest rings with Horton's candidate
// construction followed by GF(2) elimination over bond incidence vectors.
type SSSR struct {
	MaxCandidates int
}

type ringCandidate struct {
	atoms []int // traversal order, local indices
	edges *bitset.BitSet
	key   string
	size  int
}

// Perceive implements molecule.RingPerceiver.
func (s SSSR) Perceive(g *molecule.Graph) (*molecule.RingSet, error) {
	limit := s.MaxCandidates
	if limit <= 0 {
		limit = DefaultRingMaxCandidates
	}

	cyclic := molecule.CyclicAtoms(g)
	local := make([]int, g.AtomCount())
	var core []int
	for i := range local {
		local[i] = -1
		if cyclic[i] {
			local[i] = len(core)
			core = append(core, i)
		}
	}
	if len(core) == 0 {
		return molecule.NewRingSet(g.AtomCount(), nil), nil
	}

	// Local adjacency restricted to the cyclic core, neighbours ascending.
	type edge struct{ a, b, bond int }
	var edges []edge
	adj := make([][]int, len(core))
	edgeOf := make(map[[2]int]int)
	for bi, b := range g.Bonds {
		la, lb := local[b.A], local[b.B]
		if la < 0 || lb < 0 {
			continue
		}
		if la > lb {
			la, lb = lb, la
		}
		edgeOf[[2]int{la, lb}] = len(edges)
		edges = append(edges, edge{a: la, b: lb, bond: bi})
		adj[la] = append(adj[la], lb)
		adj[lb] = append(adj[lb], la)
	}
	for _, nbs := range adj {
		sort.Ints(nbs)
	}

	nu := len(edges) - len(core) + coreComponents(adj)
	if nu <= 0 {
		return molecule.NewRingSet(g.AtomCount(), nil), nil
	}

	edgeIndex := func(a, b int) int {
		if a > b {
			a, b = b, a
		}
		return edgeOf[[2]int{a, b}]
	}

	seen := make(map[string]bool)
	var cands []ringCandidate
	dist := make([]int, len(core))
	parent := make([]int, len(core))
	for v := range core {
		bfsLowestParents(adj, v, dist, parent)
		for _, e := range edges {
			if dist[e.a] < 0 || dist[e.b] < 0 {
				continue
			}
			px := pathToRoot(parent, e.a)
			py := pathToRoot(parent, e.b)
			if !meetOnlyAtRoot(px, py) {
				continue
			}
			// px runs a..v; reverse it so the ring reads v..a, then b..(before v).
			atoms := make([]int, 0, len(px)+len(py)-1)
			for i := len(px) - 1; i >= 0; i-- {
				atoms = append(atoms, px[i])
			}
			atoms = append(atoms, py[:len(py)-1]...)
			if len(atoms) < 3 {
				continue
			}
			bits := bitset.New(uint(len(edges)))
			for i := range atoms {
				bits.Set(uint(edgeIndex(atoms[i], atoms[(i+1)%len(atoms)])))
			}
			key := edgeKey(bits)
			if seen[key] {
				continue
			}
			seen[key] = true
			cands = append(cands, ringCandidate{atoms: atoms, edges: bits, key: key, size: len(atoms)})
			if len(cands) > limit {
				return nil, errors.Newf(errors.CodeRingPerception,
					"ring perception exceeded %d candidate cycles", limit)
			}
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].size != cands[j].size {
			return cands[i].size < cands[j].size
		}
		return lessSortedAtoms(cands[i].atoms, cands[j].atoms)
	})

	basis := make(map[uint]*bitset.BitSet, nu)
	rings := make([]molecule.Ring, 0, nu)
	for _, c := range cands {
		if len(rings) == nu {
			break
		}
		if !reduceInto(basis, c.edges) {
			continue
		}
		ring := molecule.Ring{Atoms: make([]int, len(c.atoms))}
		for i, la := range c.atoms {
			ring.Atoms[i] = core[la]
		}
		for i, ok := c.edges.NextSet(0); ok; i, ok = c.edges.NextSet(i + 1) {
			ring.Bonds = append(ring.Bonds, edges[i].bond)
		}
		rings = append(rings, ring)
	}
	if len(rings) != nu {
		return nil, errors.Newf(errors.CodeRingPerception,
			"found %d independent rings, expected %d", len(rings), nu)
	}
	return molecule.NewRingSet(g.AtomCount(), rings), nil
}

// reduceInto eliminates v against the basis, whose rows are keyed by their
// lowest set bit.  It stores the residue and returns true when v is
// independent.
func reduceInto(basis map[uint]*bitset.BitSet, v *bitset.BitSet) bool {
	r := v.Clone()
	for {
		p, ok := r.NextSet(0)
		if !ok {
			return false
		}
		row, exists := basis[p]
		if !exists {
			basis[p] = r
			return true
		}
		r.InPlaceSymmetricDifference(row)
	}
}

func bfsLowestParents(adj [][]int, root int, dist, parent []int) {
	for i := range dist {
		dist[i], parent[i] = -1, -1
	}
	dist[root] = 0
	queue := []int{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range adj[cur] {
			if dist[nb] < 0 {
				dist[nb] = dist[cur] + 1
				queue = append(queue, nb)
			}
		}
	}
	for u := range adj {
		if u == root || dist[u] < 0 {
			continue
		}
		for _, nb := range adj[u] {
			if dist[nb] == dist[u]-1 {
				parent[u] = nb
				break
			}
		}
	}
}

// pathToRoot lists u, parent(u), ..., root.
func pathToRoot(parent []int, u int) []int {
	path := []int{u}
	for parent[u] >= 0 {
		u = parent[u]
		path = append(path, u)
	}
	return path
}

func meetOnlyAtRoot(px, py []int) bool {
	in := make(map[int]bool, len(px))
	for _, a := range px[:len(px)-1] {
		in[a] = true
	}
	for _, b := range py[:len(py)-1] {
		if in[b] {
			return false
		}
	}
	return px[len(px)-1] == py[len(py)-1]
}

func coreComponents(adj [][]int) int {
	seen := make([]bool, len(adj))
	n := 0
	for s := range adj {
		if seen[s] {
			continue
		}
		n++
		stack := []int{s}
		seen[s] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, nb := range adj[cur] {
				if !seen[nb] {
					seen[nb] = true
					stack = append(stack, nb)
				}
			}
		}
	}
	return n
}

func edgeKey(b *bitset.BitSet) string {
	var sb strings.Builder
	for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
		sb.WriteString(strconv.FormatUint(uint64(i), 10))
		sb.WriteByte(',')
	}
	return sb.String()
}

func lessSortedAtoms(a, b []int) bool {
	x := append([]int(nil), a...)
	y := append([]int(nil), b...)
	sort.Ints(x)
	sort.Ints(y)
	for i := range x {
		if x[i] != y[i] {
			return x[i] < y[i]
		}
	}
	return false
}
