// Package signature encodes bounded-radius atom neighbourhoods as canonical
// strings.
//
// A signature is the rooted tree of an atom's neighbourhood up to Height
// bonds.  Each node is an atom label such as "[C]" or "[N+]"; each child is
// prefixed by its bond symbol ("" single, "=" double, "#" triple, "p"
// aromatic).  Children are neighbours not already on the path from the root,
// and their strings are sorted before being joined, so the result does not
// depend on atom or bond enumeration order.
package signature

import (
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
)

// DefaultHeight is the neighbourhood radius used for NPL fragments.
const DefaultHeight = 2

// HydrogenPrefix starts every signature rooted at a hydrogen atom.
const HydrogenPrefix = "[H]"

// Table maps a signature to the number of atoms that produced it.
type Table map[string]int

// Total returns the sum of all counts.
func (t Table) Total() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// Signatures returns the table keys in ascending order.
func (t Table) Signatures() []string {
	keys := lo.Keys(t)
	sort.Strings(keys)
	return keys
}

// IsHydrogenRooted reports whether sig was generated from a hydrogen atom.
func IsHydrogenRooted(sig string) bool {
	return strings.HasPrefix(sig, HydrogenPrefix)
}

// Generator produces atom signatures of a fixed height.
type Generator struct {
	Height int
}

// NewGenerator returns a Generator; non-positive heights select DefaultHeight.
func NewGenerator(height int) Generator {
	if height <= 0 {
		height = DefaultHeight
	}
	return Generator{Height: height}
}

// Generate returns the signature frequency table over every atom of g.
func (gen Generator) Generate(g *molecule.Graph) Table {
	t := make(Table, g.AtomCount())
	for i := range g.Atoms {
		t[gen.Atom(g, i)]++
	}
	return t
}

// Atom returns the signature rooted at atom i.
func (gen Generator) Atom(g *molecule.Graph, i int) string {
	height := gen.Height
	if height <= 0 {
		height = DefaultHeight
	}
	onPath := make([]bool, g.AtomCount())
	var sb strings.Builder
	writeNode(&sb, g, i, height, onPath)
	return sb.String()
}

func writeNode(sb *strings.Builder, g *molecule.Graph, i, remaining int, onPath []bool) {
	sb.WriteString(Label(g.Atoms[i]))
	if remaining == 0 {
		return
	}
	onPath[i] = true
	var kids []string
	for _, nb := range g.Neighbors(i) {
		if onPath[nb.Atom] {
			continue
		}
		var child strings.Builder
		child.WriteString(bondPrefix(g.Bonds[nb.Bond].Order))
		writeNode(&child, g, nb.Atom, remaining-1, onPath)
		kids = append(kids, child.String())
	}
	onPath[i] = false
	if len(kids) == 0 {
		return
	}
	sort.Strings(kids)
	sb.WriteByte('(')
	for _, k := range kids {
		sb.WriteString(k)
	}
	sb.WriteByte(')')
}

// Label renders an atom as "[El]" with its formal charge, e.g. "[O-]" or
// "[Fe+3]".
func Label(a molecule.Atom) string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(a.Element)
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		sb.WriteByte('+')
		sb.WriteString(strconv.Itoa(a.Charge))
	case a.Charge < -1:
		sb.WriteString(strconv.Itoa(a.Charge))
	}
	sb.WriteByte(']')
	return sb.String()
}

func bondPrefix(o molecule.BondOrder) string {
	switch o {
	case molecule.BondDouble:
		return "="
	case molecule.BondTriple:
		return "#"
	case molecule.BondAromatic:
		return "p"
	default:
		return ""
	}
}
