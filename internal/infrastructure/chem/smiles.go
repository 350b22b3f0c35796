// Package chem implements the structure-service capabilities the scoring
// engine consumes: SMILES and V2000 molfile reading, hydrogen completion,
// SMILES writing, SSSR ring perception and substructure/isomorphism matching.
//
// Only the organic subset is supported.  Stereochemistry and isotopes are read
// and discarded.
package chem

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// organic lists the SMILES organic subset with their default valences.
var organic = map[string][]int{
	"B":  {3},
	"C":  {4},
	"N":  {3, 5},
	"O":  {2},
	"P":  {3, 5},
	"S":  {2, 4, 6},
	"F":  {1},
	"Cl": {1},
	"Br": {1},
	"I":  {1},
}

// aromaticSymbols maps aromatic SMILES symbols to elements.
var aromaticSymbols = map[string]string{
	"b":  "B",
	"c":  "C",
	"n":  "N",
	"o":  "O",
	"p":  "P",
	"s":  "S",
	"se": "Se",
	"as": "As",
}

type pendingRing struct {
	atom  int
	order molecule.BondOrder
	set   bool
}

type smilesParser struct {
	src    string
	pos    int
	g      *molecule.Graph
	bare   []bool
	rings  map[int]pendingRing
	stack  []int
	prev   int
	order  molecule.BondOrder
	hasOrd bool
}

// ParseSMILES reads a SMILES string into a graph.  Implicit hydrogens of bare
// organic-subset atoms and bracket hydrogen counts are recorded in
// Atom.ImplicitH; call AddExplicitHydrogens to turn them into atoms.
func ParseSMILES(smiles string) (*molecule.Graph, error) {
	s := strings.TrimSpace(smiles)
	if s == "" {
		return nil, errors.New(errors.CodeStructureParse, "empty SMILES")
	}
	p := &smilesParser{
		src:   s,
		g:     molecule.NewGraph(),
		rings: make(map[int]pendingRing),
		prev:  -1,
	}
	if err := p.parse(); err != nil {
		return nil, errors.New(errors.CodeStructureParse, "invalid SMILES").WithDetail(s).WithCause(err)
	}
	p.assignImplicitHydrogens()
	return p.g, nil
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		switch {
		case ch == '(':
			if p.prev < 0 {
				return fmt.Errorf("branch opened before any atom at %d", p.pos)
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case ch == ')':
			if len(p.stack) == 0 {
				return fmt.Errorf("unbalanced ')' at %d", p.pos)
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case ch == '.':
			p.prev = -1
			p.hasOrd = false
			p.pos++
		case ch == '-' || ch == '/' || ch == '\\':
			if err := p.setBond(molecule.BondSingle); err != nil {
				return err
			}
		case ch == '=':
			if err := p.setBond(molecule.BondDouble); err != nil {
				return err
			}
		case ch == '#':
			if err := p.setBond(molecule.BondTriple); err != nil {
				return err
			}
		case ch == ':':
			if err := p.setBond(molecule.BondAromatic); err != nil {
				return err
			}
		case ch == '$':
			return fmt.Errorf("quadruple bonds are not supported")
		case ch >= '0' && ch <= '9':
			if err := p.ringClosure(int(ch - '0')); err != nil {
				return err
			}
			p.pos++
		case ch == '%':
			if p.pos+2 >= len(p.src) {
				return fmt.Errorf("truncated ring bond number at %d", p.pos)
			}
			n, err := strconv.Atoi(p.src[p.pos+1 : p.pos+3])
			if err != nil {
				return fmt.Errorf("invalid ring bond number at %d", p.pos)
			}
			if err := p.ringClosure(n); err != nil {
				return err
			}
			p.pos += 3
		case ch == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}
	if len(p.stack) > 0 {
		return fmt.Errorf("unclosed branch")
	}
	if len(p.rings) > 0 {
		return fmt.Errorf("unclosed ring bond")
	}
	if p.hasOrd {
		return fmt.Errorf("dangling bond symbol")
	}
	return nil
}

func (p *smilesParser) setBond(o molecule.BondOrder) error {
	if p.hasOrd {
		return fmt.Errorf("consecutive bond symbols at %d", p.pos)
	}
	p.order, p.hasOrd = o, true
	p.pos++
	return nil
}

func (p *smilesParser) takeBond(a, b int) molecule.BondOrder {
	if p.hasOrd {
		p.hasOrd = false
		return p.order
	}
	if p.g.Atoms[a].Aromatic && p.g.Atoms[b].Aromatic {
		return molecule.BondAromatic
	}
	return molecule.BondSingle
}

func (p *smilesParser) addAtom(a molecule.Atom, bare bool) error {
	idx := p.g.AddAtom(a)
	p.bare = append(p.bare, bare)
	if p.prev >= 0 {
		if _, err := p.g.AddBond(p.prev, idx, p.takeBond(p.prev, idx)); err != nil {
			return err
		}
	} else if p.hasOrd {
		return fmt.Errorf("bond symbol without a preceding atom at %d", p.pos)
	}
	p.prev = idx
	return nil
}

func (p *smilesParser) organicAtom() error {
	rest := p.src[p.pos:]
	for _, sym := range []string{"Cl", "Br"} {
		if strings.HasPrefix(rest, sym) {
			p.pos += 2
			return p.addAtom(molecule.Atom{Element: sym}, true)
		}
	}
	ch := string(rest[0])
	if _, ok := organic[ch]; ok {
		p.pos++
		return p.addAtom(molecule.Atom{Element: ch}, true)
	}
	if el, ok := aromaticSymbols[ch]; ok {
		p.pos++
		return p.addAtom(molecule.Atom{Element: el, Aromatic: true}, true)
	}
	if ch == "*" {
		p.pos++
		return p.addAtom(molecule.Atom{Element: "*"}, false)
	}
	return fmt.Errorf("unexpected character %q at %d", ch, p.pos)
}

func (p *smilesParser) bracketAtom() error {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return fmt.Errorf("unclosed bracket atom at %d", p.pos)
	}
	body := p.src[p.pos+1 : p.pos+end]
	p.pos += end + 1

	i := 0
	for i < len(body) && unicode.IsDigit(rune(body[i])) {
		i++
	}
	if i >= len(body) {
		return fmt.Errorf("bracket atom %q has no element", body)
	}

	var atom molecule.Atom
	switch {
	case i+2 <= len(body) && aromaticSymbols[body[i:i+2]] != "" && (body[i:i+2] == "se" || body[i:i+2] == "as"):
		atom.Element, atom.Aromatic = aromaticSymbols[body[i:i+2]], true
		i += 2
	case unicode.IsLower(rune(body[i])):
		el, ok := aromaticSymbols[body[i:i+1]]
		if !ok {
			return fmt.Errorf("unknown aromatic symbol in %q", body)
		}
		atom.Element, atom.Aromatic = el, true
		i++
	case unicode.IsUpper(rune(body[i])) || body[i] == '*':
		j := i + 1
		if body[i] != '*' && j < len(body) && unicode.IsLower(rune(body[j])) {
			j++
		}
		atom.Element = body[i:j]
		i = j
	default:
		return fmt.Errorf("invalid bracket atom %q", body)
	}

	for i < len(body) && body[i] == '@' {
		i++
	}
	if i < len(body) && body[i] == 'H' && atom.Element != molecule.Hydrogen {
		i++
		n := 1
		if i < len(body) && unicode.IsDigit(rune(body[i])) {
			n = int(body[i] - '0')
			i++
		}
		atom.ImplicitH = n
	}
	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		sym := body[i]
		i++
		mag := 1
		if i < len(body) && unicode.IsDigit(rune(body[i])) {
			mag = int(body[i] - '0')
			i++
		} else {
			for i < len(body) && body[i] == sym {
				mag++
				i++
			}
		}
		atom.Charge = sign * mag
	}
	if i < len(body) && body[i] == ':' {
		i = len(body)
	}
	if i != len(body) {
		return fmt.Errorf("trailing characters in bracket atom %q", body)
	}
	return p.addAtom(atom, false)
}

func (p *smilesParser) ringClosure(n int) error {
	if p.prev < 0 {
		return fmt.Errorf("ring bond %d before any atom", n)
	}
	if open, ok := p.rings[n]; ok {
		delete(p.rings, n)
		order := open.order
		if p.hasOrd {
			if open.set && open.order != p.order {
				return fmt.Errorf("conflicting ring bond orders for %d", n)
			}
			order = p.order
			p.hasOrd = false
		} else if !open.set {
			if p.g.Atoms[open.atom].Aromatic && p.g.Atoms[p.prev].Aromatic {
				order = molecule.BondAromatic
			} else {
				order = molecule.BondSingle
			}
		}
		_, err := p.g.AddBond(open.atom, p.prev, order)
		return err
	}
	ring := pendingRing{atom: p.prev}
	if p.hasOrd {
		ring.order, ring.set = p.order, true
		p.hasOrd = false
	}
	p.rings[n] = ring
	return nil
}

// assignImplicitHydrogens fills ImplicitH for bare organic-subset atoms using
// the lowest default valence that accommodates the explicit bonds.  Aromatic
// atoms contribute one extra valence unit for the delocalised bond.
func (p *smilesParser) assignImplicitHydrogens() {
	for i := range p.g.Atoms {
		if !p.bare[i] {
			continue
		}
		a := &p.g.Atoms[i]
		used := p.g.ValenceSum(i)
		if a.Aromatic {
			used++
		}
		a.ImplicitH = implicitHydrogens(a.Element, used)
	}
}

func implicitHydrogens(element string, used int) int {
	for _, v := range organic[element] {
		if v >= used {
			return v - used
		}
	}
	return 0
}
