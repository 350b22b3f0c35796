// Package memory provides an in-process molecule corpus for single-shot
// scoring of a structure file without a database.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// MoleculeRepository keeps records keyed by id with a sorted id index for
// keyset paging.
type MoleculeRepository struct {
	mu   sync.RWMutex
	recs map[string]*molecule.Record
	ids  []string
}

var _ molecule.Repository = (*MoleculeRepository)(nil)

func NewMoleculeRepository() *MoleculeRepository {
	return &MoleculeRepository{recs: make(map[string]*molecule.Record)}
}

// List implements molecule.Repository.
func (r *MoleculeRepository) List(ctx context.Context, opts molecule.ListOptions) ([]*molecule.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "list cancelled")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	start := sort.Search(len(r.ids), func(i int) bool { return r.ids[i] > opts.AfterID })
	out := make([]*molecule.Record, 0, limit)
	for _, id := range r.ids[start:] {
		if len(out) == limit {
			break
		}
		rec := r.recs[id]
		if !opts.IncludeScored && rec.ScoredAt != nil {
			continue
		}
		out = append(out, clone(rec))
	}
	return out, nil
}

// FindByID implements molecule.Repository.
func (r *MoleculeRepository) FindByID(_ context.Context, id string) (*molecule.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recs[id]
	if !ok {
		return nil, errors.Newf(errors.CodeMoleculeNotFound, "molecule %q not found", id)
	}
	return clone(rec), nil
}

// SaveScores implements molecule.Repository.
func (r *MoleculeRepository) SaveScores(_ context.Context, rec *molecule.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.recs[rec.ID]
	if !ok {
		return errors.Newf(errors.CodeMoleculeNotFound, "molecule %q not found", rec.ID)
	}
	next := clone(rec)
	next.Structure, next.Format = cur.Structure, cur.Format
	r.recs[rec.ID] = next
	return nil
}

// Import implements molecule.Repository.
func (r *MoleculeRepository) Import(_ context.Context, recs []*molecule.Record) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted := 0
	for _, rec := range recs {
		if rec.ID == "" {
			return inserted, errors.New(errors.ErrCodeCorpusImport, "molecule id must not be empty")
		}
		if _, ok := r.recs[rec.ID]; ok {
			continue
		}
		fresh := molecule.NewRecord(rec.ID, rec.Structure, rec.Format)
		if fresh.Format == "" {
			fresh.Format = molecule.FormatSMILES
		}
		r.recs[rec.ID] = fresh
		r.insertID(rec.ID)
		inserted++
	}
	return inserted, nil
}

func (r *MoleculeRepository) insertID(id string) {
	i := sort.SearchStrings(r.ids, id)
	r.ids = append(r.ids, "")
	copy(r.ids[i+1:], r.ids[i:])
	r.ids[i] = id
}

// CountPending implements molecule.Repository.
func (r *MoleculeRepository) CountPending(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, rec := range r.recs {
		if rec.ScoredAt == nil {
			n++
		}
	}
	return n, nil
}

// All returns every record in id order.
func (r *MoleculeRepository) All() []*molecule.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*molecule.Record, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, clone(r.recs[id]))
	}
	return out
}

// Len returns the number of records.
func (r *MoleculeRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// clone copies rec without its transient graphs.
func clone(rec *molecule.Record) *molecule.Record {
	c := *rec
	c.Graph, c.SugarFreeGraph = nil, nil
	c.FragmentsWithSugar = maps.Clone(rec.FragmentsWithSugar)
	c.Fragments = maps.Clone(rec.Fragments)
	return &c
}
