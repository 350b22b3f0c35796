package molecule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRecord_StartsUnknown(t *testing.T) {
	r := NewRecord("CNP0000001", "OCC", FormatSMILES)

	assert.Equal(t, SugarUnknown, r.ContainsSugar)
	assert.False(t, r.IsScored())
	assert.Nil(t, r.NPLScore)
}

func TestRecord_MarkScoredAndSkipped(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRecord("a", "C", FormatSMILES)

	r.MarkSkipped(SkipParseError, now)
	assert.False(t, r.IsScored())
	assert.Equal(t, SkipParseError, r.SkipReason)

	r.MarkScored(now)
	assert.True(t, r.IsScored())
	assert.Equal(t, SkipNone, r.SkipReason)
}

func TestRecord_ResetScores(t *testing.T) {
	v := 1.0
	r := NewRecord("a", "C", FormatSMILES)
	r.NPLScore = &v
	r.ContainsSugar = SugarResidue
	r.Fragments = map[string]int{"[C]": 1}
	r.MarkScored(time.Now())

	r.ResetScores()

	assert.Equal(t, "a", r.ID)
	assert.Equal(t, "C", r.Structure)
	assert.Nil(t, r.NPLScore)
	assert.Nil(t, r.Fragments)
	assert.Equal(t, SugarUnknown, r.ContainsSugar)
	assert.False(t, r.IsScored())
}

func TestSugarStatus_String(t *testing.T) {
	assert.Equal(t, "none", SugarNone.String())
	assert.Equal(t, "sugar_with_residue", SugarResidue.String())
	assert.Equal(t, "only_sugar", SugarOnly.String())
	assert.Equal(t, "unknown", SugarUnknown.String())
}
