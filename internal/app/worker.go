package app

import (
	"context"
	"time"

	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
)

// RunFunc executes one scoring run.
type RunFunc func(ctx context.Context) error

// Schedule calls run immediately and then every interval until ctx is
// cancelled.  Runs never overlap; a run that outlasts interval delays the
// next one.  A failed run is logged and the schedule continues.
//
// With once set, or a non-positive interval, Schedule runs a single time and
// returns its error.
func Schedule(ctx context.Context, run RunFunc, interval time.Duration, once bool, log logging.Logger) error {
	if once || interval <= 0 {
		return run(ctx)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		started := time.Now()
		if err := run(ctx); err != nil && ctx.Err() == nil {
			log.Error("scoring run failed", logging.Err(err))
		}
		if ctx.Err() != nil {
			return nil
		}

		wait := interval - time.Since(started)
		if wait < 0 {
			wait = 0
		}
		log.Debug("next scoring run scheduled", logging.Duration("in", wait))
		timer.Reset(wait)
	}
}
