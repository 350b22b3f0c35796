package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/config"
	"github.com/turtacn/npl-scorer/internal/domain/fragment"
	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/internal/testutil"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scoring.Store = config.StoreMemory
	cfg.Scoring.StoreLock = config.LockLocal
	config.ApplyDefaults(cfg)
	return cfg
}

func TestNewEngine_WithoutStore(t *testing.T) {
	cfg := memoryConfig()
	e, err := NewEngine(cfg.Scoring, nil, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Nil(t, e.Scorer)
	assert.NotNil(t, e.Stripper)

	g, err := e.Toolkit.Parse(testutil.Glucose, molecule.FormatSMILES)
	require.NoError(t, err)
	res, err := e.Stripper.Strip(g)
	require.NoError(t, err)
	assert.True(t, res.ContainsRingSugar)
	assert.True(t, res.OnlySugar)
}

func TestNewEngine_InvalidLinearSet(t *testing.T) {
	cfg := memoryConfig()
	cfg.Scoring.LinearSugarSet = "bogus"
	_, err := NewEngine(cfg.Scoring, nil, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestNewInfrastructure_Memory(t *testing.T) {
	cfg := memoryConfig()
	in, err := NewInfrastructure(context.Background(), cfg, logging.NewNopLogger(), Options{Metrics: true, Archive: true})
	require.NoError(t, err)
	defer in.Close()

	assert.Nil(t, in.Postgres)
	assert.Nil(t, in.Redis)
	assert.Nil(t, in.Producer)
	assert.Nil(t, in.Archiver())
	assert.NotNil(t, in.Metrics)
	_, cached := in.Fragments.(*fragment.Cached)
	assert.True(t, cached)
}

func TestNewInfrastructure_NoCache(t *testing.T) {
	cfg := memoryConfig()
	cfg.Scoring.CacheSize = 0
	cfg.Scoring.StoreLock = config.LockNone
	in, err := NewInfrastructure(context.Background(), cfg, logging.NewNopLogger(), Options{})
	require.NoError(t, err)
	_, ok := in.Fragments.(*fragment.MemoryStore)
	assert.True(t, ok)
	assert.Nil(t, in.Metrics)
}

func TestOrchestrator_MemoryRun(t *testing.T) {
	cfg := memoryConfig()
	cfg.Worker.Concurrency = 2
	cfg.Scoring.BatchSize = 2
	log := logging.NewNopLogger()

	in, err := NewInfrastructure(context.Background(), cfg, log, Options{Metrics: true})
	require.NoError(t, err)
	defer in.Close()

	_, err = in.Molecules.Import(context.Background(), testutil.Records(
		"m1", testutil.Glycoside,
		"m2", testutil.Aglycone,
		"m3", testutil.Unparseable,
	))
	require.NoError(t, err)

	engine, err := NewEngine(cfg.Scoring, in.Fragments, log)
	require.NoError(t, err)
	orch, err := in.NewOrchestrator(engine)
	require.NoError(t, err)

	sum, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Scored)
	assert.Equal(t, 1, sum.SkippedTotal())
	assert.Greater(t, sum.FragmentsCreated, 0)

	counts, err := in.FragmentStats.CountByContext(context.Background())
	require.NoError(t, err)
	assert.Greater(t, counts[fragment.WithSugar], int64(0))

	pending, err := in.Molecules.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestNewOrchestrator_RequiresScorer(t *testing.T) {
	cfg := memoryConfig()
	in, err := NewInfrastructure(context.Background(), cfg, logging.NewNopLogger(), Options{})
	require.NoError(t, err)
	engine, err := NewEngine(cfg.Scoring, nil, logging.NewNopLogger())
	require.NoError(t, err)
	_, err = in.NewOrchestrator(engine)
	assert.Error(t, err)
}
