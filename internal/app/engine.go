// Package app assembles the scoring engine and its infrastructure from
// configuration.  Both binaries build on it.
package app

import (
	"github.com/turtacn/npl-scorer/internal/config"
	"github.com/turtacn/npl-scorer/internal/domain/fragment"
	"github.com/turtacn/npl-scorer/internal/domain/scoring"
	"github.com/turtacn/npl-scorer/internal/domain/signature"
	"github.com/turtacn/npl-scorer/internal/domain/sugar"
	"github.com/turtacn/npl-scorer/internal/infrastructure/chem"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
)

// Engine holds the per-molecule pipeline.  Everything in it is safe for
// concurrent use.
type Engine struct {
	Toolkit   *chem.Toolkit
	Stripper  *sugar.Stripper
	Generator signature.Generator
	Scorer    *scoring.Scorer
}

// NewEngine builds the pipeline over store.  A nil store builds an engine
// that can parse, strip and sign but not score.
func NewEngine(cfg config.ScoringConfig, store fragment.Store, log logging.Logger) (*Engine, error) {
	tk := chem.NewToolkit(chem.Options{
		IsoStepBudget:     cfg.IsoStepBudget,
		RingMaxCandidates: cfg.RingMaxCandidates,
	})

	linear, err := sugar.CompileLinearSugars(tk, tk, sugar.LinearSugarSet(cfg.LinearSugarSet))
	if err != nil {
		return nil, err
	}
	stripper := sugar.NewStripper(linear, tk, tk, sugar.Options{
		RingFormulas:           cfg.RingFormulas,
		OnlySugarMaxHeavyAtoms: cfg.OnlySugarMaxHeavyAtoms,
		LinearMinAtoms:         cfg.LinearMinAtoms,
	}, log.Named("sugar"))

	e := &Engine{
		Toolkit:   tk,
		Stripper:  stripper,
		Generator: signature.NewGenerator(cfg.Height),
	}
	if store != nil {
		e.Scorer = scoring.NewScorer(scoring.Deps{
			Parser:    tk,
			Stripper:  stripper,
			Generator: e.Generator,
			Store:     store,
			Iso:       tk,
			Writer:    tk,
			Logger:    log.Named("scorer"),
		})
	}
	return e, nil
}

// NewLogger builds the process logger from the log block.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig(cfg))
}
