package fragment

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/npl-scorer/pkg/errors"
)

// DefaultCacheSize bounds the number of entries Cached keeps in memory.
const DefaultCacheSize = 100_000

// Cached is a read-through LRU in front of another Store.  Concurrent misses
// on one key are collapsed into a single call to the backing store.  Entries
// never change after creation, so cached values do not go stale.
type Cached struct {
	next  Store
	cache *lru.Cache[Key, Entry]
	group singleflight.Group
}

// NewCached wraps next with an LRU of the given size.
func NewCached(next Store, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[Key, Entry](size)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "create fragment cache")
	}
	return &Cached{next: next, cache: c}, nil
}

type cachedResult struct {
	entry   Entry
	created bool
}

// GetOrCreate implements Store.  Only the caller whose request reached the
// backing store can observe created == true.
func (c *Cached) GetOrCreate(ctx context.Context, signature string, sc SugarContext) (Entry, bool, error) {
	k := Key{Signature: signature, Context: sc}
	if e, ok := c.cache.Get(k); ok {
		return e, false, nil
	}

	leader := false
	v, err, _ := c.group.Do(k.String(), func() (interface{}, error) {
		leader = true
		e, created, err := c.next.GetOrCreate(ctx, signature, sc)
		if err != nil {
			return nil, err
		}
		c.cache.Add(k, e)
		return cachedResult{entry: e, created: created}, nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	res := v.(cachedResult)
	return res.entry, leader && res.created, nil
}

// Len returns the number of cached entries.
func (c *Cached) Len() int { return c.cache.Len() }

// Purge empties the cache.
func (c *Cached) Purge() { c.cache.Purge() }
