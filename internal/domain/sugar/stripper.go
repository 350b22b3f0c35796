package sugar

import (
	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// Default thresholds.
const (
	DefaultOnlySugarMaxHeavyAtoms = 6
	DefaultLinearMinAtoms         = 4
)

// ErrOnlySugar is reported by Result.Err when nothing usable remains after
// removal.  It is a classification, not a failure.
var ErrOnlySugar = errors.New(errors.ErrCodeSugarRemoval, "only sugar remains after removal")

// Options configures a Stripper.
type Options struct {
	RingFormulas           []string `mapstructure:"ring_formulas"`
	OnlySugarMaxHeavyAtoms int      `mapstructure:"only_sugar_max_heavy_atoms"`
	LinearMinAtoms         int      `mapstructure:"linear_min_atoms"`
}

func (o Options) withDefaults() Options {
	if len(o.RingFormulas) == 0 {
		o.RingFormulas = DefaultRingFormulas
	}
	if o.OnlySugarMaxHeavyAtoms <= 0 {
		o.OnlySugarMaxHeavyAtoms = DefaultOnlySugarMaxHeavyAtoms
	}
	if o.LinearMinAtoms <= 0 {
		o.LinearMinAtoms = DefaultLinearMinAtoms
	}
	return o
}

// Result is the outcome of stripping one molecule.
type Result struct {
	// SugarFree is the retained component with every cut bond capped by a
	// hydrogen.  It is nil when OnlySugar is set.
	SugarFree *molecule.Graph

	ContainsRingSugar   bool
	ContainsLinearSugar bool
	RemovedAtoms        int
	OnlySugar           bool

	// RingPerceptionFailed records that rings could not be perceived and ring
	// sugar detection was skipped.
	RingPerceptionFailed bool
	Verdicts             []RingVerdict
}

// Err returns ErrOnlySugar for only-sugar results and nil otherwise.
func (r Result) Err() error {
	if r.OnlySugar {
		return ErrOnlySugar
	}
	return nil
}

// Stripper removes ring and linear sugars.  It never modifies its input and is
// safe for concurrent use once built.
type Stripper struct {
	rings     *RingClassifier
	linear    LinearSugars
	perceiver molecule.RingPerceiver
	hydrogens molecule.HydrogenCompleter
	opts      Options
	logger    logging.Logger
}

// NewStripper creates a Stripper over a compiled linear sugar list.  Atoms that
// lose bonds to removed sugar atoms get hydrogens back through hydrogens.
func NewStripper(linear LinearSugars, perceiver molecule.RingPerceiver, hydrogens molecule.HydrogenCompleter, opts Options, logger logging.Logger) *Stripper {
	opts = opts.withDefaults()
	return &Stripper{
		rings:     NewRingClassifier(opts.RingFormulas),
		linear:    linear,
		perceiver: perceiver,
		hydrogens: hydrogens,
		opts:      opts,
		logger:    logger,
	}
}

// Strip runs ring detection and linear matching on g, removes every collected
// atom from a private copy (ring atoms first), and keeps the largest
// remaining component.
func (s *Stripper) Strip(g *molecule.Graph) (Result, error) {
	var res Result
	if g.IsEmpty() {
		return res, errors.New(errors.ErrCodeSugarRemoval, "cannot strip an empty graph")
	}

	rs, err := s.perceiver.Perceive(g)
	var cyclic func(int) bool
	if err != nil {
		res.RingPerceptionFailed = true
		s.logger.Debug("ring perception failed, skipping ring sugars",
			logging.String("graph", g.String()), logging.Err(err))
		flags := molecule.CyclicAtoms(g)
		cyclic = func(a int) bool { return flags[a] }
		rs = nil
	} else {
		cyclic = rs.InRing
	}

	// Collect.
	var ringAtoms []int
	for i := 0; i < rs.Len(); i++ {
		v := s.rings.Classify(g, rs, i)
		res.Verdicts = append(res.Verdicts, v)
		if !v.Confirmed {
			continue
		}
		res.ContainsRingSugar = true
		for _, a := range rs.Rings[i].Atoms {
			ringAtoms = append(ringAtoms, a)
			ringAtoms = append(ringAtoms, g.AttachedHydrogens(a)...)
		}
	}

	var linearAtoms []int
	for _, m := range s.linear.linearMatches(g, cyclic, s.opts.LinearMinAtoms) {
		res.ContainsLinearSugar = true
		for _, a := range m {
			linearAtoms = append(linearAtoms, a)
			linearAtoms = append(linearAtoms, g.AttachedHydrogens(a)...)
		}
	}

	// Remove: rings, then linear chains.  Positions shift after the first pass,
	// so the second one is resolved through the preserved atom IDs.
	work := g.Clone()
	res.RemovedAtoms = work.RemoveAtoms(ringAtoms)
	if len(linearAtoms) > 0 {
		pos := make(map[int]int, work.AtomCount())
		for i, a := range work.Atoms {
			pos[a.ID] = i
		}
		var shifted []int
		for _, a := range linearAtoms {
			if p, ok := pos[g.Atoms[a].ID]; ok {
				shifted = append(shifted, p)
			}
		}
		res.RemovedAtoms += work.RemoveAtoms(shifted)
	}

	best := largestComponent(work)
	if best == nil {
		res.OnlySugar = true
		return res, nil
	}
	kept := work.Subgraph(best)
	if kept.HeavyAtomCount() <= s.opts.OnlySugarMaxHeavyAtoms {
		res.OnlySugar = true
		return res, nil
	}
	res.SugarFree = s.completeHydrogens(g, kept)
	return res, nil
}

// completeHydrogens restores the valence each atom of kept lost when its
// neighbours in g were removed.
func (s *Stripper) completeHydrogens(g, kept *molecule.Graph) *molecule.Graph {
	src := make(map[int]int, g.AtomCount())
	for i, a := range g.Atoms {
		src[a.ID] = i
	}
	lost := make(map[int]int)
	for i, a := range kept.Atoms {
		if n := g.ValenceSum(src[a.ID]) - kept.ValenceSum(i); n > 0 {
			lost[i] = n
		}
	}
	if len(lost) == 0 {
		return kept
	}
	return s.hydrogens.CompleteHydrogens(kept, lost)
}

// largestComponent returns the component with the most atoms.  Components
// come ordered by lowest position, which follows the original atom order, so
// the first of equal size wins ties.
func largestComponent(g *molecule.Graph) []int {
	var best []int
	for _, c := range g.Components() {
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}
