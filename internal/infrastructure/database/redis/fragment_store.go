package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/npl-scorer/internal/domain/fragment"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// FragmentStore keeps fragment entries in one hash per sugar context,
// <prefix>fragment:<0|1>, field = signature, value = JSON entry.  HSETNX
// makes creation atomic on the server.
type FragmentStore struct {
	client *Client
	height int
	logger logging.Logger
	now    func() time.Time
}

var (
	_ fragment.Store      = (*FragmentStore)(nil)
	_ fragment.Repository = (*FragmentStore)(nil)
	_ fragment.Stats      = (*FragmentStore)(nil)
)

func NewFragmentStore(client *Client, height int, log logging.Logger) *FragmentStore {
	return &FragmentStore{client: client, height: height, logger: log, now: time.Now}
}

func (s *FragmentStore) hashKey(sc fragment.SugarContext) string {
	return s.client.Key("fragment", strconv.Itoa(int(sc)))
}

// GetOrCreate implements fragment.Store.
func (s *FragmentStore) GetOrCreate(ctx context.Context, signature string, sc fragment.SugarContext) (fragment.Entry, bool, error) {
	key := fragment.Key{Signature: signature, Context: sc}
	e := fragment.NewEntry(key, s.height, s.now())

	created, err := s.setNX(ctx, e)
	if err != nil {
		return fragment.Entry{}, false, err
	}
	if created {
		return e, true, nil
	}

	existing, ok, err := s.Find(ctx, key)
	if err != nil {
		return fragment.Entry{}, false, err
	}
	if !ok {
		return fragment.Entry{}, false, errors.Newf(errors.ErrCodeStoreCorrupt,
			"fragment %s conflicted on insert but is not readable", key)
	}
	return existing, false, nil
}

func (s *FragmentStore) setNX(ctx context.Context, e fragment.Entry) (bool, error) {
	rdb, err := s.client.Underlying()
	if err != nil {
		return false, errors.Wrap(err, errors.CodeStoreUnavailable, "fragment store closed")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return false, errors.Wrap(err, errors.CodeSerialization, "failed to encode fragment")
	}
	ok, err := rdb.HSetNX(ctx, s.hashKey(e.Context), e.Signature, data).Result()
	if err != nil {
		s.logger.Error("FragmentStore.setNX", logging.String("key", e.Key().String()), logging.Err(err))
		return false, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to insert fragment")
	}
	return ok, nil
}

// Find implements fragment.Repository.
func (s *FragmentStore) Find(ctx context.Context, key fragment.Key) (fragment.Entry, bool, error) {
	rdb, err := s.client.Underlying()
	if err != nil {
		return fragment.Entry{}, false, errors.Wrap(err, errors.CodeStoreUnavailable, "fragment store closed")
	}
	data, err := rdb.HGet(ctx, s.hashKey(key.Context), key.Signature).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return fragment.Entry{}, false, nil
	}
	if err != nil {
		return fragment.Entry{}, false, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to read fragment")
	}
	var e fragment.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return fragment.Entry{}, false, errors.Wrap(err, errors.ErrCodeStoreCorrupt, "failed to decode fragment "+key.String())
	}
	return e, true, nil
}

// Save implements fragment.Repository.  An existing entry is left untouched.
func (s *FragmentStore) Save(ctx context.Context, e fragment.Entry) error {
	_, err := s.setNX(ctx, e)
	return err
}

// CountByContext implements fragment.Stats.
func (s *FragmentStore) CountByContext(ctx context.Context) (map[fragment.SugarContext]int64, error) {
	rdb, err := s.client.Underlying()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "fragment store closed")
	}
	pipe := rdb.Pipeline()
	without := pipe.HLen(ctx, s.hashKey(fragment.WithoutSugar))
	with := pipe.HLen(ctx, s.hashKey(fragment.WithSugar))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to count fragments")
	}
	return map[fragment.SugarContext]int64{
		fragment.WithoutSugar: without.Val(),
		fragment.WithSugar:    with.Val(),
	}, nil
}
