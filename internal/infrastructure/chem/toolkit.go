package chem

import (
	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// Options tunes the toolkit's search limits.
type Options struct {
	IsoStepBudget     int `mapstructure:"iso_step_budget"`
	RingMaxCandidates int `mapstructure:"ring_max_candidates"`
}

// Toolkit bundles the structure services behind the molecule interfaces.
type Toolkit struct {
	Matcher
	SSSR
}

var (
	_ molecule.StructureParser    = (*Toolkit)(nil)
	_ molecule.IsomorphismChecker = (*Toolkit)(nil)
	_ molecule.RingPerceiver      = (*Toolkit)(nil)
	_ molecule.PatternCompiler    = (*Toolkit)(nil)
	_ molecule.StructureWriter    = (*Toolkit)(nil)
	_ molecule.HydrogenCompleter  = (*Toolkit)(nil)
)

// NewToolkit returns a Toolkit configured with opts.
func NewToolkit(opts Options) *Toolkit {
	return &Toolkit{
		Matcher: Matcher{StepBudget: opts.IsoStepBudget},
		SSSR:    SSSR{MaxCandidates: opts.RingMaxCandidates},
	}
}

// Parse reads text in the given format and returns a hydrogen-complete graph.
func (t *Toolkit) Parse(text string, format molecule.StructureFormat) (*molecule.Graph, error) {
	var (
		g   *molecule.Graph
		err error
	)
	switch format {
	case molecule.FormatSMILES, "":
		g, err = ParseSMILES(text)
	case molecule.FormatMolfile:
		g, err = ParseMolfile(text)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedFormat, "unsupported structure format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return AddExplicitHydrogens(g), nil
}

// CompleteHydrogens implements molecule.HydrogenCompleter.
func (t *Toolkit) CompleteHydrogens(g *molecule.Graph, lost map[int]int) *molecule.Graph {
	return CompleteHydrogens(g, lost)
}

// SMILES implements molecule.StructureWriter.
func (t *Toolkit) SMILES(g *molecule.Graph) string { return WriteSMILES(g) }

// Framework implements molecule.StructureWriter.
func (t *Toolkit) Framework(g *molecule.Graph) string { return MurckoFramework(g) }
