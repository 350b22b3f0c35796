package testutil

import (
	"github.com/turtacn/npl-scorer/internal/domain/molecule"
)

// SMILES fixtures shared across packages.
const (
	// Glucose is a lone pyranose; nothing remains after sugar removal.
	Glucose = "OCC1OC(O)C(O)C(O)C1O"
	// Glycoside is a pyranose O-linked to a seven heavy atom aglycone.
	Glycoside = "OCC1OC(OC=CC=CCC)C(O)C(O)C1O"
	// Aglycone carries no sugar.
	Aglycone = "c1ccccc1CCCCO"
	// Ethanol is the smallest useful parse target: 3 heavy atoms, 9 in total.
	Ethanol = "CCO"
	// Unparseable has an unclosed branch and ring.
	Unparseable = "C1CC("
)

// Records builds unscored SMILES records from id/structure pairs.
func Records(pairs ...string) []*molecule.Record {
	if len(pairs)%2 != 0 {
		panic("testutil.Records: odd number of arguments")
	}
	recs := make([]*molecule.Record, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		recs = append(recs, molecule.NewRecord(pairs[i], pairs[i+1], molecule.FormatSMILES))
	}
	return recs
}
