package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

func TestMutex_LockUnlock(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())
	ctx := context.Background()

	lock := factory.NewMutex("test-lock", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))
	assert.True(t, mr.Exists("npl:lock:test-lock"))

	ttl, err := lock.TTL(ctx)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("npl:lock:test-lock"))
}

func TestMutex_Contention(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger(), WithRetryCount(1), WithRetryDelay(time.Millisecond))
	ctx := context.Background()

	lock1 := factory.NewMutex("test-lock")
	lock2 := factory.NewMutex("test-lock")

	require.NoError(t, lock1.Lock(ctx))
	err := lock2.Lock(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreLock))

	ok, err := lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock1.Unlock(ctx))
	ok, err = lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMutex_UnlockNotHeld(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())

	err := factory.NewMutex("never-locked").Unlock(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreLock))
}

func TestMutex_ExpiresAfterTTL(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger(), WithRetryCount(1))
	ctx := context.Background()

	lock1 := factory.NewMutex("ttl-lock", WithLockTTL(time.Second))
	require.NoError(t, lock1.Lock(ctx))
	mr.FastForward(2 * time.Second)

	lock2 := factory.NewMutex("ttl-lock")
	require.NoError(t, lock2.Lock(ctx))
	assert.Error(t, lock1.Unlock(ctx))
}

func TestMutex_Extend(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())
	ctx := context.Background()

	lock := factory.NewMutex("extend-lock", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))
	ok, err := lock.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err := lock.TTL(ctx)
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second)
}

func TestFragmentLocker_SerializesSameKey(t *testing.T) {
	client, _ := newTestClient(t)
	locker := NewFragmentLocker(NewLockFactory(client, logging.NewNopLogger(), WithRetryDelay(time.Millisecond)), logging.NewNopLogger())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "1:[C]")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestFragmentLocker_CancelledContext(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger(), WithRetryDelay(10*time.Millisecond))
	locker := NewFragmentLocker(factory, logging.NewNopLogger())

	unlock, err := locker.Lock(context.Background(), "0:[O]")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "0:[O]")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreLock))
}
