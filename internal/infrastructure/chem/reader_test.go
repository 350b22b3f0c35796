package chem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
)

func TestReadSMILESFile(t *testing.T) {
	in := "# header\nOCC CNP0000001\n\nc1ccccc1\tCNP0000002 benzene\nCCN\n"

	entries, err := ReadSMILESFile(strings.NewReader(in), "line-")

	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{ID: "CNP0000001", Structure: "OCC", Format: molecule.FormatSMILES}, entries[0])
	assert.Equal(t, "CNP0000002", entries[1].ID)
	assert.Equal(t, "line-5", entries[2].ID)
}

func TestReadSDF(t *testing.T) {
	withID := ethanolMolfile + "> <coconut_id>\nCNP0000099\n\n$$$$\n"
	titled := acetateMolfile + "$$$$\n"

	entries, err := ReadSDF(strings.NewReader(withID+titled), "sdf-")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "CNP0000099", entries[0].ID)
	assert.Equal(t, "acetate", entries[1].ID)
	assert.Equal(t, molecule.FormatMolfile, entries[1].Format)

	g, err := ParseMolfile(entries[0].Structure)
	require.NoError(t, err)
	assert.Equal(t, 3, g.AtomCount())
}
