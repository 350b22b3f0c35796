package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/internal/infrastructure/chem"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// readCorpusFile reads a .smi or .sdf file into unscored records.  Records
// without an id are named after the file and their position.
func readCorpusFile(path string) ([]*molecule.Record, error) {
	if path == "" {
		return nil, errors.InvalidParam("an input file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusImport, "open "+path)
	}
	defer f.Close()

	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	prefix := strings.TrimSuffix(base, filepath.Ext(base)) + "-"

	var entries []chem.Entry
	switch ext {
	case ".sdf", ".sd", ".mol":
		entries, err = chem.ReadSDF(f, prefix)
	case ".smi", ".smiles", ".txt", "":
		entries, err = chem.ReadSMILESFile(f, prefix)
	default:
		return nil, errors.New(errors.ErrCodeUnsupportedFormat, "unsupported corpus file extension "+ext)
	}
	if err != nil {
		return nil, err
	}

	recs := make([]*molecule.Record, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		recs = append(recs, molecule.NewRecord(e.ID, e.Structure, e.Format))
	}
	return recs, nil
}
