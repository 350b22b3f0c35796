// Package fragment defines the Fragment Score Store: the shared mapping from
// (signature, sugar context) to a fragment score, with get-or-create
// semantics that create every key exactly once under concurrent workers.
package fragment

import (
	"context"
	"strconv"
	"time"
)

// DefaultScore is the score assigned to a newly observed fragment.
const DefaultScore = 1.0

// SugarContext says whether a fragment was observed on the molecule with its
// sugars (1) or on the sugar-free form (0).
type SugarContext int

const (
	WithoutSugar SugarContext = 0
	WithSugar    SugarContext = 1
)

func (c SugarContext) String() string {
	if c == WithSugar {
		return "with_sugar"
	}
	return "without_sugar"
}

// Key identifies one fragment entry.
type Key struct {
	Signature string
	Context   SugarContext
}

// String renders the key as "<context>:<signature>", the form used for lock
// names and singleflight groups.
func (k Key) String() string {
	return strconv.Itoa(int(k.Context)) + ":" + k.Signature
}

// Entry is a FragmentScoreEntry.  Score is fixed at creation.
type Entry struct {
	Signature string       `json:"signature"`
	Context   SugarContext `json:"with_sugar"`
	Height    int          `json:"height"`
	Score     float64      `json:"scorenp"`
	CreatedAt time.Time    `json:"created_at"`
}

// Key returns the entry's key.
func (e Entry) Key() Key {
	return Key{Signature: e.Signature, Context: e.Context}
}

// NewEntry builds the entry created on first sighting of key.
func NewEntry(key Key, height int, now time.Time) Entry {
	return Entry{
		Signature: key.Signature,
		Context:   key.Context,
		Height:    height,
		Score:     DefaultScore,
		CreatedAt: now.UTC(),
	}
}

// Store is the get-or-create contract.  Under N concurrent first sightings of
// a key exactly one caller receives created == true and all callers observe
// the same entry.
type Store interface {
	GetOrCreate(ctx context.Context, signature string, sc SugarContext) (Entry, bool, error)
}

// Repository is a plain find/save backend.  It makes no atomicity promise;
// wrap it in Serialized to obtain a Store.
type Repository interface {
	Find(ctx context.Context, key Key) (Entry, bool, error)
	Save(ctx context.Context, e Entry) error
}

// Stats reports store population per sugar context.
type Stats interface {
	CountByContext(ctx context.Context) (map[SugarContext]int64, error)
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, signature string, sc SugarContext) (Entry, bool, error)

// GetOrCreate implements Store.
func (f StoreFunc) GetOrCreate(ctx context.Context, signature string, sc SugarContext) (Entry, bool, error) {
	return f(ctx, signature, sc)
}
