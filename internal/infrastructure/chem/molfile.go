package chem

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// ParseMolfile reads a V2000 connection table.  Charges come from the atom
// block charge column or from "M  CHG" property lines, the latter taking
// precedence.  Hydrogen counts are derived from default valences.
func ParseMolfile(block string) (*molecule.Graph, error) {
	g, err := parseMolfile(block)
	if err != nil {
		return nil, errors.New(errors.CodeStructureParse, "invalid molfile").WithCause(err)
	}
	SaturateFromValence(g)
	return g, nil
}

func parseMolfile(block string) (*molecule.Graph, error) {
	lines := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")

	counts := -1
	for i, line := range lines {
		if strings.Contains(line, "V3000") {
			return nil, fmt.Errorf("V3000 connection tables are not supported")
		}
		if strings.Contains(line, "V2000") {
			counts = i
			break
		}
	}
	if counts < 0 {
		if len(lines) < 4 {
			return nil, fmt.Errorf("too few lines")
		}
		counts = 3
	}
	cl := lines[counts]
	if len(cl) < 6 {
		return nil, fmt.Errorf("counts line too short")
	}
	numAtoms, err := fixedInt(cl, 0, 3)
	if err != nil {
		return nil, fmt.Errorf("atom count: %w", err)
	}
	numBonds, err := fixedInt(cl, 3, 6)
	if err != nil {
		return nil, fmt.Errorf("bond count: %w", err)
	}
	body := lines[counts+1:]
	if len(body) < numAtoms+numBonds {
		return nil, fmt.Errorf("connection table truncated: want %d atom and %d bond lines", numAtoms, numBonds)
	}

	g := molecule.NewGraph()
	for i := 0; i < numAtoms; i++ {
		l := body[i]
		if len(l) < 34 {
			return nil, fmt.Errorf("atom line %d too short", i+1)
		}
		atom := molecule.Atom{Element: strings.TrimSpace(l[31:34])}
		if atom.Element == "" {
			return nil, fmt.Errorf("atom line %d has no element", i+1)
		}
		if len(l) >= 39 {
			if code, err := fixedInt(l, 36, 39); err == nil && code != 0 && code != 4 {
				atom.Charge = 4 - code
			}
		}
		g.AddAtom(atom)
	}
	for i := 0; i < numBonds; i++ {
		l := body[numAtoms+i]
		if len(l) < 9 {
			return nil, fmt.Errorf("bond line %d too short", i+1)
		}
		a, errA := fixedInt(l, 0, 3)
		b, errB := fixedInt(l, 3, 6)
		t, errT := fixedInt(l, 6, 9)
		if errA != nil || errB != nil || errT != nil {
			return nil, fmt.Errorf("bond line %d is malformed", i+1)
		}
		var order molecule.BondOrder
		switch t {
		case 1:
			order = molecule.BondSingle
		case 2:
			order = molecule.BondDouble
		case 3:
			order = molecule.BondTriple
		case 4:
			order = molecule.BondAromatic
		default:
			return nil, fmt.Errorf("bond line %d has unsupported type %d", i+1, t)
		}
		if _, err := g.AddBond(a-1, b-1, order); err != nil {
			return nil, err
		}
		if order == molecule.BondAromatic {
			g.Atoms[a-1].Aromatic = true
			g.Atoms[b-1].Aromatic = true
		}
	}

	for _, l := range body[numAtoms+numBonds:] {
		if strings.HasPrefix(l, "M  END") {
			break
		}
		if strings.HasPrefix(l, "M  CHG") {
			if err := applyChargeLine(g, l); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func applyChargeLine(g *molecule.Graph, line string) error {
	fields := strings.Fields(line[6:])
	if len(fields) == 0 {
		return nil
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || len(fields) < 1+2*n {
		return fmt.Errorf("malformed charge line %q", line)
	}
	for k := 0; k < n; k++ {
		idx, err1 := strconv.Atoi(fields[1+2*k])
		chg, err2 := strconv.Atoi(fields[2+2*k])
		if err1 != nil || err2 != nil || idx < 1 || idx > g.AtomCount() {
			return fmt.Errorf("malformed charge entry in %q", line)
		}
		g.Atoms[idx-1].Charge = chg
	}
	return nil
}

func fixedInt(line string, from, to int) (int, error) {
	if to > len(line) {
		to = len(line)
	}
	if from >= to {
		return 0, fmt.Errorf("field %d:%d missing", from, to)
	}
	return strconv.Atoi(strings.TrimSpace(line[from:to]))
}
