package app

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/internal/testutil"
)

func TestSchedule_Once(t *testing.T) {
	var calls atomic.Int32
	boom := stderrors.New("boom")
	err := Schedule(context.Background(), func(context.Context) error {
		calls.Add(1)
		return boom
	}, time.Hour, true, logging.NewNopLogger())
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSchedule_ZeroIntervalRunsOnce(t *testing.T) {
	var calls atomic.Int32
	err := Schedule(context.Background(), func(context.Context) error {
		calls.Add(1)
		return nil
	}, 0, false, logging.NewNopLogger())
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSchedule_RepeatsAndSurvivesFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	log := testutil.NewMockLogger()
	done := make(chan error, 1)
	go func() {
		done <- Schedule(ctx, func(context.Context) error {
			if calls.Add(1) >= 3 {
				cancel()
				return nil
			}
			return stderrors.New("transient")
		}, 5*time.Millisecond, false, log)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("schedule did not stop after cancellation")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
	assert.Len(t, log.Find("error", "scoring run failed"), 2)
}

func TestSchedule_CancelledBeforeFirstRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	err := Schedule(ctx, func(context.Context) error {
		calls.Add(1)
		return nil
	}, time.Hour, false, logging.NewNopLogger())
	require.NoError(t, err)
	assert.LessOrEqual(t, calls.Load(), int32(1))
}
