package fragment

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/npl-scorer/pkg/errors"
)

// Locker provides mutual exclusion per key.  Implementations may be local or
// distributed.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LocalLocker is a Locker over a fixed array of mutexes.  Distinct keys may
// share a mutex; that only costs throughput.
type LocalLocker struct {
	mus []sync.Mutex
}

// NewLocalLocker returns a LocalLocker with n stripes (64 when n <= 0).
func NewLocalLocker(n int) *LocalLocker {
	if n <= 0 {
		n = 64
	}
	return &LocalLocker{mus: make([]sync.Mutex, n)}
}

// Lock implements Locker.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreLock, "lock "+key)
	}
	mu := &l.mus[shardIndex(key, len(l.mus))]
	mu.Lock()
	return mu.Unlock, nil
}

// Serialized turns a plain Repository into a Store by holding a per-key lock
// around find-then-save.
type Serialized struct {
	repo   Repository
	locker Locker
	height int
	now    func() time.Time
}

// NewSerialized wraps repo.
func NewSerialized(repo Repository, locker Locker, height int) *Serialized {
	return &Serialized{repo: repo, locker: locker, height: height, now: time.Now}
}

// GetOrCreate implements Store.
func (s *Serialized) GetOrCreate(ctx context.Context, signature string, sc SugarContext) (Entry, bool, error) {
	k := Key{Signature: signature, Context: sc}
	unlock, err := s.locker.Lock(ctx, k.String())
	if err != nil {
		return Entry{}, false, err
	}
	defer unlock()

	e, found, err := s.repo.Find(ctx, k)
	if err != nil {
		return Entry{}, false, err
	}
	if found {
		return e, false, nil
	}
	e = NewEntry(k, s.height, s.now())
	if err := s.repo.Save(ctx, e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}
