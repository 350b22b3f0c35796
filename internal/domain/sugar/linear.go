package sugar

import (
	"fmt"
	"sort"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// LinearSugarSet selects the reference list of acyclic sugar motifs.
type LinearSugarSet string

const (
	// LinearSugarsDefault holds aldoses, ketoses, alditols and 2-deoxyhexose.
	LinearSugarsDefault LinearSugarSet = "default"
	// LinearSugarsExtended adds polyol and oxo-acid motifs.
	LinearSugarsExtended LinearSugarSet = "extended"
)

var defaultLinearSugars = []string{
	// aldoses
	"C(C(C(C(C(C(C=O)O)O)O)O)O)O",
	"C(C(C(C(C(C=O)O)O)O)O)O",
	"C(C(C(C(C=O)O)O)O)O",
	"C(C(C(C=O)O)O)O",
	"C(C(C=O)O)O",
	// 2-ketoses
	"C(C(C(C(C(C(CO)O)O)O)O)=O)O",
	"C(C(C(C(C(CO)O)O)O)=O)O",
	"C(C(C(C(CO)O)O)=O)O",
	"C(C(C(CO)O)=O)O",
	"C(C(CO)=O)O",
	// alditols
	"C(C(C(C(C(C(CO)O)O)O)O)O)O",
	"C(C(C(C(C(CO)O)O)O)O)O",
	"C(C(C(C(CO)O)O)O)O",
	"C(C(C(CO)O)O)O",
	"C(C(CO)O)O",
	// 2-deoxyhexose
	"C(C(C(C(CC=O)O)O)O)O",
}

var extendedLinearSugars = []string{
	"C(C(CC(C(CO)O)O)O)(O)=O",
	"C(C(C(CC(=O)O)O)O)O",
	"CC(=O)OCC(O)CO",
	"CCCCC(O)C(=O)O",
	"CC(=O)CC(=O)CCC(=O)O",
	"CC(O)C(O)C(=O)O",
	"O=C(O)CC(O)CC(=O)O",
	"O=C(O)C(=O)C(=O)C(O)C(O)CO",
	"CC(O)CC(=O)O",
	"CC(CCC(=O)O)CC(=O)O",
	"O=C(O)CCC(O)C(=O)O",
}

// LinearSugarSMILES returns the SMILES of the chosen reference set.
func LinearSugarSMILES(set LinearSugarSet) ([]string, error) {
	switch set {
	case LinearSugarsDefault, "":
		return append([]string(nil), defaultLinearSugars...), nil
	case LinearSugarsExtended:
		out := append([]string(nil), defaultLinearSugars...)
		return append(out, extendedLinearSugars...), nil
	default:
		return nil, errors.Newf(errors.ErrCodeLinearSugarCompile, "unknown linear sugar set %q", set)
	}
}

// CompiledPattern is one reference motif ready for matching.
type CompiledPattern struct {
	SMILES  string
	Pattern molecule.Pattern
}

// LinearSugars is the compiled reference list, largest motif first.  Build it
// once and share it between workers; it is never modified after compilation.
type LinearSugars []CompiledPattern

// CompileLinearSugars parses and compiles the reference set.  Motifs are
// matched on heavy atoms only, so hydrogens are dropped from the parsed
// queries.
func CompileLinearSugars(parser molecule.StructureParser, compiler molecule.PatternCompiler, set LinearSugarSet) (LinearSugars, error) {
	smiles, err := LinearSugarSMILES(set)
	if err != nil {
		return nil, err
	}
	out := make(LinearSugars, 0, len(smiles))
	for _, s := range smiles {
		g, err := parser.Parse(s, molecule.FormatSMILES)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeLinearSugarCompile, fmt.Sprintf("parse linear sugar %s", s))
		}
		p, err := compiler.Compile(g.HydrogenSuppressed())
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeLinearSugarCompile, fmt.Sprintf("compile linear sugar %s", s))
		}
		out = append(out, CompiledPattern{SMILES: s, Pattern: p})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pattern.Size() > out[j].Pattern.Size()
	})
	return out, nil
}

// linearMatches runs every pattern over g in list order and returns the
// surviving matches.  Atoms claimed by an earlier survivor are skipped.
// Matches touching a cyclic atom or smaller than minAtoms are discarded.
func (ls LinearSugars) linearMatches(g *molecule.Graph, cyclic func(int) bool, minAtoms int) [][]int {
	claimed := make([]bool, g.AtomCount())
	skip := func(a int) bool { return claimed[a] }

	var out [][]int
	for _, cp := range ls {
		for _, m := range cp.Pattern.FindAll(g, skip) {
			if len(m) < minAtoms || touches(m, cyclic) {
				continue
			}
			for _, a := range m {
				claimed[a] = true
			}
			out = append(out, m)
		}
	}
	return out
}

func touches(atoms []int, pred func(int) bool) bool {
	for _, a := range atoms {
		if pred(a) {
			return true
		}
	}
	return false
}
