package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/npl-scorer/internal/domain/fragment"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeStoreLock, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeStoreLock, "lock not held by this owner")
)

// DistributedLock is a single named lock owned by one holder at a time.
type DistributedLock interface {
	Lock(ctx context.Context) error
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) (bool, error)
	TTL(ctx context.Context) (time.Duration, error)
}

type LockOption func(*lockConfig)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

func WithRetryDelay(delay time.Duration) LockOption {
	return func(c *lockConfig) { c.retryDelay = delay }
}

func WithRetryCount(count int) LockOption {
	return func(c *lockConfig) { c.retryCount = count }
}

// WithWatchdog keeps extending the lock while it is held.
func WithWatchdog(enabled bool) LockOption {
	return func(c *lockConfig) { c.watchdogEnabled = enabled }
}

type lockConfig struct {
	ttl              time.Duration
	retryDelay       time.Duration
	retryCount       int
	watchdogEnabled  bool
	watchdogInterval time.Duration
}

// LockFactory creates mutexes sharing one client and a set of defaults.
type LockFactory struct {
	client   *Client
	log      logging.Logger
	defaults []LockOption
}

func NewLockFactory(client *Client, log logging.Logger, defaults ...LockOption) *LockFactory {
	return &LockFactory{client: client, log: log, defaults: defaults}
}

// NewMutex returns an unlocked mutex named name.  Every call yields a new
// owner token.
func (f *LockFactory) NewMutex(name string, opts ...LockOption) DistributedLock {
	cfg := lockConfig{
		ttl:        10 * time.Second,
		retryDelay: 5 * time.Millisecond,
		retryCount: 2000,
	}
	for _, opt := range f.defaults {
		opt(&cfg)
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.watchdogInterval == 0 {
		cfg.watchdogInterval = cfg.ttl / 3
	}

	return &redisMutex{
		client: f.client,
		key:    f.client.Key("lock", name),
		value:  uuid.NewString(),
		config: cfg,
		logger: f.log,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutex
// ─────────────────────────────────────────────────────────────────────────────

type redisMutex struct {
	client         *Client
	key            string
	value          string
	config         lockConfig
	logger         logging.Logger
	watchdogCancel context.CancelFunc
	watchdogDone   chan struct{}
}

var mutexUnlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var mutexExtendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

func (m *redisMutex) Lock(ctx context.Context) error {
	for i := 0; i < m.config.retryCount; i++ {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrCodeStoreLock, "lock "+m.key)
		case <-time.After(m.config.retryDelay):
		}
	}
	return ErrLockNotAcquired.WithDetail(m.key)
}

func (m *redisMutex) TryLock(ctx context.Context) (bool, error) {
	rdb, err := m.client.Underlying()
	if err != nil {
		return false, err
	}
	success, err := rdb.SetNX(ctx, m.key, m.value, m.config.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeStoreLock, "failed to set lock")
	}
	if success && m.config.watchdogEnabled {
		m.startWatchdog()
	}
	return success, nil
}

func (m *redisMutex) Unlock(ctx context.Context) error {
	m.stopWatchdog()
	rdb, err := m.client.Underlying()
	if err != nil {
		return err
	}
	res, err := mutexUnlockScript.Run(ctx, rdb, []string{m.key}, m.value).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreLock, "failed to release lock")
	}
	if res == 0 {
		return ErrLockNotHeld.WithDetail(m.key)
	}
	return nil
}

func (m *redisMutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	rdb, err := m.client.Underlying()
	if err != nil {
		return false, err
	}
	res, err := mutexExtendScript.Run(ctx, rdb, []string{m.key}, m.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (m *redisMutex) TTL(ctx context.Context) (time.Duration, error) {
	rdb, err := m.client.Underlying()
	if err != nil {
		return 0, err
	}
	return rdb.PTTL(ctx, m.key).Result()
}

func (m *redisMutex) startWatchdog() {
	ctx, cancel := context.WithCancel(context.Background())
	m.watchdogCancel = cancel
	m.watchdogDone = make(chan struct{})
	go runWatchdog(ctx, m.Extend, m.config.watchdogInterval, m.config.ttl, m.logger, m.watchdogDone)
}

func (m *redisMutex) stopWatchdog() {
	if m.watchdogCancel != nil {
		m.watchdogCancel()
		<-m.watchdogDone
		m.watchdogCancel = nil
	}
}

func runWatchdog(ctx context.Context, extendFn func(context.Context, time.Duration) (bool, error), interval time.Duration, ttl time.Duration, log logging.Logger, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := extendFn(ctx, ttl)
			if err != nil {
				log.Error("Watchdog failed to extend lock", logging.Err(err))
				return
			}
			if !ok {
				log.Warn("Watchdog lost lock")
				return
			}
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// FragmentLocker
// ─────────────────────────────────────────────────────────────────────────────

// FragmentLocker adapts the factory to fragment.Locker so that several
// processes sharing a plain fragment repository serialize the first sighting
// of each key.
type FragmentLocker struct {
	factory *LockFactory
	logger  logging.Logger
}

var _ fragment.Locker = (*FragmentLocker)(nil)

func NewFragmentLocker(factory *LockFactory, log logging.Logger) *FragmentLocker {
	return &FragmentLocker{factory: factory, logger: log}
}

// Lock implements fragment.Locker.  The returned unlock logs a failed release
// instead of reporting it; the TTL frees a lock whose release was lost.
func (l *FragmentLocker) Lock(ctx context.Context, key string) (func(), error) {
	mu := l.factory.NewMutex("fragment:" + key)
	if err := mu.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := mu.Unlock(context.Background()); err != nil {
			l.logger.Warn("Failed to release fragment lock", logging.String("key", key), logging.Err(err))
		}
	}, nil
}
