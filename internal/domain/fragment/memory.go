package fragment

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const memoryShards = 64

type memoryShard struct {
	mu      sync.Mutex
	entries map[Key]Entry
}

// MemoryStore is an in-process Store over a sharded map.  It also satisfies
// Repository and Stats so it can back the Serialized decorator in tests.
type MemoryStore struct {
	height int
	now    func() time.Time
	shards [memoryShards]memoryShard
}

// NewMemoryStore creates an empty store that records height on new entries.
func NewMemoryStore(height int) *MemoryStore {
	s := &MemoryStore{height: height, now: time.Now}
	for i := range s.shards {
		s.shards[i].entries = make(map[Key]Entry)
	}
	return s
}

func (s *MemoryStore) shard(k Key) *memoryShard {
	return &s.shards[shardIndex(k.String(), memoryShards)]
}

func shardIndex(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(_ context.Context, signature string, sc SugarContext) (Entry, bool, error) {
	k := Key{Signature: signature, Context: sc}
	sh := s.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[k]; ok {
		return e, false, nil
	}
	e := NewEntry(k, s.height, s.now())
	sh.entries[k] = e
	return e, true, nil
}

// Find implements Repository.
func (s *MemoryStore) Find(_ context.Context, k Key) (Entry, bool, error) {
	sh := s.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[k]
	return e, ok, nil
}

// Save implements Repository.  An existing entry is overwritten.
func (s *MemoryStore) Save(_ context.Context, e Entry) error {
	sh := s.shard(e.Key())
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.entries[e.Key()] = e
	return nil
}

// CountByContext implements Stats.
func (s *MemoryStore) CountByContext(_ context.Context) (map[SugarContext]int64, error) {
	out := map[SugarContext]int64{WithoutSugar: 0, WithSugar: 0}
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k := range sh.entries {
			out[k.Context]++
		}
		sh.mu.Unlock()
	}
	return out, nil
}

// Len returns the total number of entries.
func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}
