package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/domain/fragment"
	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/internal/domain/signature"
	"github.com/turtacn/npl-scorer/internal/domain/sugar"
	"github.com/turtacn/npl-scorer/internal/infrastructure/chem"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

const (
	glucose   = "OCC1OC(O)C(O)C(O)C1O"
	glycoside = "OCC1OC(OC=CC=CCC)C(O)C(O)C1O"
	aglycone  = "c1ccccc1CCCCO"
)

type fixture struct {
	toolkit *chem.Toolkit
	store   *fragment.MemoryStore
	scorer  *Scorer
}

func newFixture(t *testing.T, store fragment.Store, iso molecule.IsomorphismChecker) *fixture {
	t.Helper()
	tk := chem.NewToolkit(chem.Options{})
	linear, err := sugar.CompileLinearSugars(tk, tk, sugar.LinearSugarsDefault)
	require.NoError(t, err)
	mem := fragment.NewMemoryStore(signature.DefaultHeight)
	if store == nil {
		store = mem
	}
	if iso == nil {
		iso = tk
	}
	return &fixture{
		toolkit: tk,
		store:   mem,
		scorer: NewScorer(Deps{
			Parser:    tk,
			Stripper:  sugar.NewStripper(linear, tk, tk, sugar.Options{}, logging.NewNopLogger()),
			Generator: signature.NewGenerator(signature.DefaultHeight),
			Store:     store,
			Iso:       iso,
			Writer:    tk,
			Logger:    logging.NewNopLogger(),
		}),
	}
}

func TestScore_EndToEndGlycoside(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := molecule.NewRecord("CNP0000001", glycoside, molecule.FormatSMILES)

	out, err := f.scorer.Score(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, molecule.SkipNone, out.Skipped)
	assert.Equal(t, molecule.SugarResidue, rec.ContainsSugar)
	assert.True(t, rec.ContainsRingSugars)
	require.NotNil(t, rec.NPLScoreWithSugar)
	require.NotNil(t, rec.NPLScore)
	require.NotNil(t, rec.NPLScoreNoH)
	assert.InDelta(t, 1.0, *rec.NPLScoreWithSugar, 1e-9)
	assert.InDelta(t, 1.0, *rec.NPLScore, 1e-9)
	assert.InDelta(t, 1.0, *rec.NPLScoreNoH, 1e-9)

	assert.Equal(t, 7, rec.SugarFreeHeavyAtomCount)
	assert.Equal(t, 17, rec.SugarFreeAtomCount)
	assert.Equal(t, rec.TotalAtomCount, signature.Table(rec.FragmentsWithSugar).Total())

	wantNew := len(rec.FragmentsWithSugar) + len(rec.Fragments)
	assert.Equal(t, wantNew, out.FragmentsCreated)
	assert.Equal(t, wantNew, f.store.Len())

	assert.NotEmpty(t, rec.SugarFreeSMILES)
	assert.NotContains(t, rec.SugarFreeSMILES, "[")
	assert.NotEmpty(t, rec.MurckoFramework)
	assert.True(t, rec.IsScored())
}

func TestScore_SugarFreeTableMatchesFreeAglycone(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	glyc := molecule.NewRecord("glyc", glycoside, molecule.FormatSMILES)
	free := molecule.NewRecord("free", "OC=CC=CCC", molecule.FormatSMILES)

	_, err := f.scorer.Score(ctx, glyc)
	require.NoError(t, err)
	_, err = f.scorer.Score(ctx, free)
	require.NoError(t, err)

	assert.Equal(t, molecule.SugarNone, free.ContainsSugar)
	assert.Equal(t, free.Fragments, glyc.Fragments)
	assert.Equal(t, free.SugarFreeAtomCount, glyc.SugarFreeAtomCount)
	assert.Equal(t, free.SugarFreeHeavyAtomCount, glyc.SugarFreeHeavyAtomCount)
	assert.Equal(t, *free.NPLScore, *glyc.NPLScore)
}

type stripFunc func(g *molecule.Graph) (sugar.Result, error)

func (f stripFunc) Strip(g *molecule.Graph) (sugar.Result, error) { return f(g) }

func TestScore_ZeroHeavyAtomsLeavesNoHUnset(t *testing.T) {
	tk := chem.NewToolkit(chem.Options{})
	hydrogenOnly := func(*molecule.Graph) (sugar.Result, error) {
		g := molecule.NewGraph()
		a := g.AddElement(molecule.Hydrogen)
		b := g.AddElement(molecule.Hydrogen)
		g.MustBond(a, b, molecule.BondSingle)
		return sugar.Result{SugarFree: g, ContainsRingSugar: true}, nil
	}
	s := NewScorer(Deps{
		Parser:    tk,
		Stripper:  stripFunc(hydrogenOnly),
		Generator: signature.NewGenerator(signature.DefaultHeight),
		Store:     fragment.NewMemoryStore(signature.DefaultHeight),
		Iso:       tk,
	})
	rec := molecule.NewRecord("h2", "CCO", molecule.FormatSMILES)

	out, err := s.Score(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, molecule.SkipNone, out.Skipped)
	assert.Equal(t, 2, rec.SugarFreeAtomCount)
	assert.Zero(t, rec.SugarFreeHeavyAtomCount)
	assert.Nil(t, rec.NPLScoreNoH)
	require.NotNil(t, rec.NPLScore)
	require.NotNil(t, rec.NPLScoreWithSugar)
	assert.InDelta(t, 1.0, *rec.NPLScore, 1e-9)
	assert.InDelta(t, 1.0, *rec.NPLScoreWithSugar, 1e-9)
	assert.True(t, rec.IsScored())
}

func TestRatio(t *testing.T) {
	assert.Nil(t, ratio(3, 0))
	assert.Nil(t, ratio(0, 0))
	r := ratio(3, 2)
	require.NotNil(t, r)
	assert.InDelta(t, 1.5, *r, 1e-9)
}

func TestScore_Idempotent(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := molecule.NewRecord("a", glycoside, molecule.FormatSMILES)
	ctx := context.Background()

	_, err := f.scorer.Score(ctx, rec)
	require.NoError(t, err)
	first := *rec
	size := f.store.Len()

	out, err := f.scorer.Score(ctx, rec)
	require.NoError(t, err)

	assert.Zero(t, out.FragmentsCreated)
	assert.Equal(t, size, f.store.Len())
	assert.Equal(t, *first.NPLScore, *rec.NPLScore)
	assert.Equal(t, *first.NPLScoreWithSugar, *rec.NPLScoreWithSugar)
	assert.Equal(t, first.Fragments, rec.Fragments)
}

func TestScore_OnlySugar(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := molecule.NewRecord("glc", glucose, molecule.FormatSMILES)

	out, err := f.scorer.Score(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, molecule.SugarOnly, out.SugarStatus)
	assert.Equal(t, molecule.SugarOnly, rec.ContainsSugar)
	assert.Nil(t, rec.NPLScore)
	assert.Nil(t, rec.NPLScoreNoH)
	require.NotNil(t, rec.NPLScoreWithSugar)
	assert.Equal(t, 24, rec.TotalAtomCount)
	assert.Empty(t, rec.Fragments)
	assert.Equal(t, len(rec.FragmentsWithSugar), out.FragmentsCreated)
}

func TestScore_NoSugarUsesStoredScores(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	g, err := f.toolkit.Parse(aglycone, molecule.FormatSMILES)
	require.NoError(t, err)
	for sig := range signature.NewGenerator(2).Generate(g) {
		e := fragment.NewEntry(fragment.Key{Signature: sig, Context: fragment.WithoutSugar}, 2, time.Now())
		e.Score = 2.0
		require.NoError(t, f.store.Save(ctx, e))
	}

	rec := molecule.NewRecord("b", aglycone, molecule.FormatSMILES)
	_, err = f.scorer.Score(ctx, rec)
	require.NoError(t, err)

	assert.Equal(t, molecule.SugarNone, rec.ContainsSugar)
	assert.InDelta(t, 2.0, *rec.NPLScore, 1e-9)
	assert.InDelta(t, 2.0, *rec.NPLScoreNoH, 1e-9)
	assert.InDelta(t, 1.0, *rec.NPLScoreWithSugar, 1e-9)
	assert.Equal(t, "c1ccccc1", rec.MurckoFramework)
}

func TestScore_SkipsUnparsable(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := molecule.NewRecord("bad", "C1CC(", molecule.FormatSMILES)
	out, err := f.scorer.Score(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, molecule.SkipParseError, out.Skipped)
	assert.Equal(t, molecule.SkipParseError, rec.SkipReason)
	assert.False(t, rec.IsScored())

	rec = molecule.NewRecord("inchi", "InChI=1S/CH4/h1H4", molecule.StructureFormat("inchi"))
	out, err = f.scorer.Score(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, molecule.SkipUnsupported, out.Skipped)
}

func TestScore_StoreFailureIsReturned(t *testing.T) {
	down := fragment.StoreFunc(func(context.Context, string, fragment.SugarContext) (fragment.Entry, bool, error) {
		return fragment.Entry{}, false, errors.New(errors.CodeStoreUnavailable, "connection refused")
	})
	f := newFixture(t, down, nil)

	_, err := f.scorer.Score(context.Background(), molecule.NewRecord("x", glycoside, molecule.FormatSMILES))

	require.Error(t, err)
	assert.True(t, errors.IsRepositoryFailure(err))
}

type mockIso struct {
	mock.Mock
}

func (m *mockIso) Isomorphic(a, b *molecule.Graph) (bool, error) {
	args := m.Called(a, b)
	return args.Bool(0), args.Error(1)
}

func TestScore_IsomorphismFailureLeavesSugarUnknown(t *testing.T) {
	iso := new(mockIso)
	iso.On("Isomorphic", mock.Anything, mock.Anything).
		Return(false, errors.New(errors.CodeIsomorphism, "budget exhausted"))
	f := newFixture(t, nil, iso)
	rec := molecule.NewRecord("y", glycoside, molecule.FormatSMILES)

	_, err := f.scorer.Score(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, molecule.SugarUnknown, rec.ContainsSugar)
	assert.NotNil(t, rec.NPLScore, "scores are still computed")
	iso.AssertExpectations(t)
}
