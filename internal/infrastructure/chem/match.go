package chem

import (
	"fmt"
	"sort"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// DefaultIsoStepBudget bounds the number of candidate extensions an
// isomorphism check may try.
const DefaultIsoStepBudget = 2_000_000

// backEdge is a query bond to an atom placed earlier in the match order.
type backEdge struct {
	pos   int
	order molecule.BondOrder
}

// plan is a query graph flattened into a VF2-style match order.  Heavy atoms
// come first in breadth-first order, hydrogens last next to their parents, so
// that the search is constrained as early as possible.
type plan struct {
	query  *molecule.Graph
	order  []int                // match position -> query atom
	parent []int                // match position -> parent match position, -1 for component roots
	pbond  []molecule.BondOrder // bond to parent
	back   [][]backEdge         // extra bonds to earlier positions
}

func newPlan(q *molecule.Graph) *plan {
	n := q.AtomCount()
	p := &plan{query: q}
	posOf := make([]int, n)
	for i := range posOf {
		posOf[i] = -1
	}
	parentAtom := make([]int, n)

	place := func(atom, from int) {
		posOf[atom] = len(p.order)
		p.order = append(p.order, atom)
		parentAtom[atom] = from
	}

	// Heavy atoms, breadth-first per component.
	for root := 0; root < n; root++ {
		if posOf[root] >= 0 || q.Atoms[root].IsHydrogen() {
			continue
		}
		place(root, -1)
		for qi := posOf[root]; qi < len(p.order); qi++ {
			cur := p.order[qi]
			for _, nb := range q.Neighbors(cur) {
				if posOf[nb.Atom] < 0 && !q.Atoms[nb.Atom].IsHydrogen() {
					place(nb.Atom, cur)
				}
			}
		}
	}
	// Hydrogens after every heavy atom, grouped by parent.
	for _, heavy := range append([]int(nil), p.order...) {
		for _, nb := range q.Neighbors(heavy) {
			if posOf[nb.Atom] < 0 && q.Atoms[nb.Atom].IsHydrogen() {
				place(nb.Atom, heavy)
			}
		}
	}
	for i := 0; i < n; i++ {
		if posOf[i] < 0 {
			place(i, -1) // H2 or isolated hydrogen
		}
	}

	p.parent = make([]int, n)
	p.pbond = make([]molecule.BondOrder, n)
	p.back = make([][]backEdge, n)
	for pos, atom := range p.order {
		p.parent[pos] = -1
		if pa := parentAtom[atom]; pa >= 0 {
			p.parent[pos] = posOf[pa]
			bi, _ := q.BondBetween(atom, pa)
			p.pbond[pos] = q.Bonds[bi].Order
		}
		for _, nb := range q.Neighbors(atom) {
			op := posOf[nb.Atom]
			if op < pos && op != p.parent[pos] {
				p.back[pos] = append(p.back[pos], backEdge{pos: op, order: q.Bonds[nb.Bond].Order})
			}
		}
	}
	return p
}

// search is one matching attempt of a plan against a target.
type search struct {
	p      *plan
	target *molecule.Graph
	exact  bool // isomorphism: degrees must agree
	skip   func(int) bool
	busy   []bool // target atoms unusable (previous matches)
	inMap  []bool
	mapped []int // match position -> target atom
	steps  int
	budget int
}

var errBudget = fmt.Errorf("step budget exhausted")

func (s *search) compatible(qa, ta int) bool {
	q, t := s.p.query.Atoms[qa], s.target.Atoms[ta]
	if q.Element != t.Element || q.Charge != t.Charge || q.Aromatic != t.Aromatic {
		return false
	}
	if s.exact && s.p.query.Degree(qa) != s.target.Degree(ta) {
		return false
	}
	return true
}

func (s *search) free(ta int) bool {
	if s.inMap[ta] || (s.busy != nil && s.busy[ta]) {
		return false
	}
	return s.skip == nil || !s.skip(ta)
}

func (s *search) bondOK(pos, ta int) bool {
	for _, be := range s.p.back[pos] {
		bi, ok := s.target.BondBetween(ta, s.mapped[be.pos])
		if !ok || s.target.Bonds[bi].Order != be.order {
			return false
		}
	}
	return true
}

func (s *search) try(pos, ta int) (bool, error) {
	if s.budget > 0 {
		s.steps++
		if s.steps > s.budget {
			return false, errBudget
		}
	}
	if !s.free(ta) || !s.compatible(s.p.order[pos], ta) || !s.bondOK(pos, ta) {
		return false, nil
	}
	s.mapped[pos], s.inMap[ta] = ta, true
	ok, err := s.extend(pos + 1)
	if err != nil || ok {
		return ok, err
	}
	s.inMap[ta] = false
	return false, nil
}

func (s *search) extend(pos int) (bool, error) {
	if pos == len(s.p.order) {
		return true, nil
	}
	if par := s.p.parent[pos]; par >= 0 {
		anchor := s.mapped[par]
		for _, nb := range s.target.Neighbors(anchor) {
			if s.target.Bonds[nb.Bond].Order != s.p.pbond[pos] {
				continue
			}
			if ok, err := s.try(pos, nb.Atom); ok || err != nil {
				return ok, err
			}
		}
		return false, nil
	}
	for ta := range s.target.Atoms {
		if ok, err := s.try(pos, ta); ok || err != nil {
			return ok, err
		}
	}
	return false, nil
}

// result returns the mapping in query atom order.
func (s *search) result() []int {
	out := make([]int, len(s.p.order))
	for pos, qa := range s.p.order {
		out[qa] = s.mapped[pos]
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Substructure patterns
// ─────────────────────────────────────────────────────────────────────────────

// SubstructurePattern is a compiled query.  It is immutable and safe for
// concurrent use.
type SubstructurePattern struct {
	p *plan
}

// Compile implements molecule.PatternCompiler.
func (Matcher) Compile(query *molecule.Graph) (molecule.Pattern, error) {
	return CompilePattern(query)
}

// CompilePattern compiles a query graph.  The graph must not be modified
// afterwards.
func CompilePattern(query *molecule.Graph) (*SubstructurePattern, error) {
	if query.IsEmpty() {
		return nil, errors.New(errors.ErrCodeSubstructurePattern, "empty substructure query")
	}
	q := query.Clone()
	for i := range q.Atoms {
		q.Atoms[i].ImplicitH = 0
	}
	q.Neighbors(0) // build adjacency before the pattern is shared
	return &SubstructurePattern{p: newPlan(q)}, nil
}

// Size implements molecule.Pattern.
func (sp *SubstructurePattern) Size() int { return len(sp.p.order) }

// FindAll implements molecule.Pattern.
func (sp *SubstructurePattern) FindAll(target *molecule.Graph, skip func(int) bool) [][]int {
	if target.IsEmpty() || target.AtomCount() < sp.Size() {
		return nil
	}
	busy := make([]bool, target.AtomCount())
	var matches [][]int
	for anchor := range target.Atoms {
		if busy[anchor] {
			continue
		}
		s := &search{
			p:      sp.p,
			target: target,
			skip:   skip,
			busy:   busy,
			inMap:  make([]bool, target.AtomCount()),
			mapped: make([]int, len(sp.p.order)),
		}
		ok, _ := s.try(0, anchor)
		if !ok {
			continue
		}
		m := s.result()
		for _, ta := range m {
			busy[ta] = true
		}
		matches = append(matches, m)
	}
	return matches
}

// ─────────────────────────────────────────────────────────────────────────────
// Isomorphism
// ─────────────────────────────────────────────────────────────────────────────

// Matcher decides graph isomorphism and compiles substructure patterns.
type Matcher struct {
	// StepBudget caps the candidate extensions tried by Isomorphic.  Zero
	// selects DefaultIsoStepBudget.
	StepBudget int
}

// Isomorphic implements molecule.IsomorphismChecker.  Atoms must agree on
// element, charge and aromaticity and bonds on order.
func (m Matcher) Isomorphic(a, b *molecule.Graph) (bool, error) {
	if a.AtomCount() != b.AtomCount() || a.BondCount() != b.BondCount() {
		return false, nil
	}
	if a.AtomCount() == 0 {
		return true, nil
	}
	if !sameInvariants(a, b) {
		return false, nil
	}
	q := a.Clone()
	q.Neighbors(0)
	budget := m.StepBudget
	if budget <= 0 {
		budget = DefaultIsoStepBudget
	}
	s := &search{
		p:      newPlan(q),
		target: b,
		exact:  true,
		inMap:  make([]bool, b.AtomCount()),
		mapped: make([]int, a.AtomCount()),
		budget: budget,
	}
	ok, err := s.extend(0)
	if err != nil {
		return false, errors.Newf(errors.CodeIsomorphism,
			"isomorphism check abandoned after %d steps", budget).WithCause(err)
	}
	return ok, nil
}

func sameInvariants(a, b *molecule.Graph) bool {
	inv := func(g *molecule.Graph) []string {
		out := make([]string, g.AtomCount())
		for i, at := range g.Atoms {
			out[i] = fmt.Sprintf("%s/%d/%t/%d", at.Element, at.Charge, at.Aromatic, g.Degree(i))
		}
		sort.Strings(out)
		return out
	}
	x, y := inv(a), inv(b)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
