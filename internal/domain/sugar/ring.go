// Package sugar detects and removes sugar moieties from hydrogen-complete
// molecular graphs: isolated furanose/pyranose-like rings and acyclic sugar
// chains.
package sugar

import (
	"github.com/turtacn/npl-scorer/internal/domain/molecule"
)

// DefaultRingFormulas is the ring composition whitelist: one ring oxygen and
// four or five carbons.
var DefaultRingFormulas = []string{"C4O", "C5O"}

// RingRejection names the rule that rejected a ring.
type RingRejection string

const (
	RingAccepted           RingRejection = ""
	RejectFormula          RingRejection = "formula_not_whitelisted"
	RejectInternalOrder    RingRejection = "internal_bond_not_single"
	RejectExocyclicOrder   RingRejection = "exocyclic_bond_not_single"
	RejectFused            RingRejection = "fused"
	RejectNoExocyclicOxide RingRejection = "no_exocyclic_oxygen"
)

// RingVerdict is the classifier's decision for one ring.
type RingVerdict struct {
	Ring             int
	Formula          string
	Candidate        bool
	Confirmed        bool
	Reason           RingRejection
	ExocyclicOxygens int
}

// RingClassifier decides which SSSR rings are sugar rings.  It has no state
// beyond its whitelist and is safe for concurrent use.
type RingClassifier struct {
	formulas map[string]bool
}

// NewRingClassifier builds a classifier for the given formula whitelist.  An
// empty list selects DefaultRingFormulas.
func NewRingClassifier(formulas []string) *RingClassifier {
	if len(formulas) == 0 {
		formulas = DefaultRingFormulas
	}
	c := &RingClassifier{formulas: make(map[string]bool, len(formulas))}
	for _, f := range formulas {
		c.formulas[f] = true
	}
	return c
}

// Classify evaluates ring i of rs over g.
func (c *RingClassifier) Classify(g *molecule.Graph, rs *molecule.RingSet, i int) RingVerdict {
	ring := rs.Rings[i]
	v := RingVerdict{Ring: i, Formula: g.Formula(ring.Atoms)}

	if !c.formulas[v.Formula] {
		v.Reason = RejectFormula
		return v
	}
	for _, bi := range ring.Bonds {
		if g.Bonds[bi].Order != molecule.BondSingle {
			v.Reason = RejectInternalOrder
			return v
		}
	}
	v.Candidate = true

	for _, a := range ring.Atoms {
		for _, nb := range g.Neighbors(a) {
			if ring.Contains(nb.Atom) {
				continue
			}
			if g.Bonds[nb.Bond].Order != molecule.BondSingle {
				v.Reason = RejectExocyclicOrder
				return v
			}
			if g.Atoms[nb.Atom].Element == "O" {
				v.ExocyclicOxygens++
			}
		}
	}
	if rs.IsFused(i) {
		v.Reason = RejectFused
		return v
	}
	if v.ExocyclicOxygens <= 0 {
		v.Reason = RejectNoExocyclicOxide
		return v
	}
	v.Confirmed = true
	return v
}
