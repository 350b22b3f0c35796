package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultScoringHeight, cfg.Scoring.Height)
	assert.Equal(t, DefaultScoringBatchSize, cfg.Scoring.BatchSize)
	assert.Equal(t, []string{"C4O", "C5O"}, cfg.Scoring.RingFormulas)
	assert.Equal(t, 6, cfg.Scoring.OnlySugarMaxHeavyAtoms)
	assert.Equal(t, 4, cfg.Scoring.LinearMinAtoms)
	assert.Equal(t, StorePostgres, cfg.Scoring.Store)
	assert.Equal(t, LockNone, cfg.Scoring.StoreLock)
	assert.Equal(t, DefaultWorkerConcurrency, cfg.Worker.Concurrency)
	assert.Equal(t, DefaultWorkerMaxRetries, cfg.Worker.MaxRetries)
	assert.Equal(t, DefaultOpsPort, cfg.Ops.Port)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Scoring.BatchSize = 50
	cfg.Scoring.RingFormulas = []string{"C5O"}
	cfg.Worker.Concurrency = 2
	ApplyDefaults(cfg)

	assert.Equal(t, 50, cfg.Scoring.BatchSize)
	assert.Equal(t, []string{"C5O"}, cfg.Scoring.RingFormulas)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
}

func TestApplyDefaults_DoesNotShareDefaultSlice(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Scoring.RingFormulas[0] = "C6O"

	assert.Equal(t, "C4O", DefaultScoringRingFormulas[0])
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
