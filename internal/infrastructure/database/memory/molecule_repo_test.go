package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

func seed(t *testing.T, ids ...string) *MoleculeRepository {
	t.Helper()
	repo := NewMoleculeRepository()
	recs := make([]*molecule.Record, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, molecule.NewRecord(id, "CCO", molecule.FormatSMILES))
	}
	n, err := repo.Import(context.Background(), recs)
	require.NoError(t, err)
	require.Equal(t, len(ids), n)
	return repo
}

func TestImport_SkipsExisting(t *testing.T) {
	repo := seed(t, "b", "a")

	n, err := repo.Import(context.Background(), []*molecule.Record{
		molecule.NewRecord("a", "C", molecule.FormatSMILES),
		molecule.NewRecord("c", "CC", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	a, err := repo.FindByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "CCO", a.Structure)

	c, err := repo.FindByID(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, molecule.FormatSMILES, c.Format)
}

func TestImport_RejectsEmptyID(t *testing.T) {
	repo := NewMoleculeRepository()
	_, err := repo.Import(context.Background(), []*molecule.Record{molecule.NewRecord("", "C", molecule.FormatSMILES)})
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusImport))
}

func TestList_KeysetPaging(t *testing.T) {
	repo := seed(t, "m3", "m1", "m5", "m2", "m4")
	ctx := context.Background()

	page, err := repo.List(ctx, molecule.ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m1", page[0].ID)
	assert.Equal(t, "m2", page[1].ID)

	page, err = repo.List(ctx, molecule.ListOptions{AfterID: "m2", Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "m3", page[0].ID)
}

func TestList_SkipsScoredUnlessIncluded(t *testing.T) {
	repo := seed(t, "a", "b", "c")
	ctx := context.Background()

	b, err := repo.FindByID(ctx, "b")
	require.NoError(t, err)
	b.MarkScored(time.Now())
	require.NoError(t, repo.SaveScores(ctx, b))

	pending, err := repo.List(ctx, molecule.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := repo.List(ctx, molecule.ListOptions{IncludeScored: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := repo.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestList_CancelledContext(t *testing.T) {
	repo := seed(t, "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.List(ctx, molecule.ListOptions{})
	assert.True(t, errors.IsRepositoryFailure(err))
}

func TestSaveScores_StoresCopyWithoutGraphs(t *testing.T) {
	repo := seed(t, "a")
	ctx := context.Background()

	rec, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	rec.Fragments = map[string]int{"[C]": 2}
	rec.Graph = &molecule.Graph{}
	rec.MarkScored(time.Now())
	require.NoError(t, repo.SaveScores(ctx, rec))

	rec.Fragments["[C]"] = 99

	got, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Fragments["[C]"])
	assert.Nil(t, got.Graph)
	assert.True(t, got.IsScored())
}

func TestSaveScores_Unknown(t *testing.T) {
	repo := NewMoleculeRepository()
	err := repo.SaveScores(context.Background(), molecule.NewRecord("x", "C", molecule.FormatSMILES))
	assert.True(t, errors.IsCode(err, errors.CodeMoleculeNotFound))
}

func TestAll_InIDOrder(t *testing.T) {
	repo := seed(t, "z", "a", "m")
	all := repo.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "m", "z"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, 3, repo.Len())
}
