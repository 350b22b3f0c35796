package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/turtacn/npl-scorer/internal/domain/fragment"
	"github.com/turtacn/npl-scorer/internal/infrastructure/database/postgres"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// FragmentRepository
// ─────────────────────────────────────────────────────────────────────────────

// FragmentRepository is the PostgreSQL fragment score store.  GetOrCreate
// relies on the (signature, with_sugar) primary key: the insert either
// creates the row or does nothing, so concurrent first sightings across
// processes produce exactly one creator.
type FragmentRepository struct {
	db     queryExecutor
	height int
	logger logging.Logger
	now    func() time.Time
}

var (
	_ fragment.Store      = (*FragmentRepository)(nil)
	_ fragment.Repository = (*FragmentRepository)(nil)
	_ fragment.Stats      = (*FragmentRepository)(nil)
)

// NewFragmentRepository returns a repository creating entries at height.
func NewFragmentRepository(conn *postgres.Connection, height int, log logging.Logger) *FragmentRepository {
	return &FragmentRepository{db: conn.DB(), height: height, logger: log, now: time.Now}
}

const (
	insertFragmentSQL = `INSERT INTO fragments (signature, with_sugar, height, scorenp, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (signature, with_sugar) DO NOTHING`

	selectFragmentSQL = `SELECT signature, with_sugar, height, scorenp, created_at
		FROM fragments WHERE signature = $1 AND with_sugar = $2`

	countFragmentsSQL = `SELECT with_sugar, COUNT(*) FROM fragments GROUP BY with_sugar`
)

// GetOrCreate implements fragment.Store.
func (r *FragmentRepository) GetOrCreate(ctx context.Context, signature string, sc fragment.SugarContext) (fragment.Entry, bool, error) {
	key := fragment.Key{Signature: signature, Context: sc}
	e := fragment.NewEntry(key, r.height, r.now())

	inserted, err := r.insert(ctx, e)
	if err != nil {
		return fragment.Entry{}, false, err
	}
	if inserted {
		return e, true, nil
	}

	existing, ok, err := r.Find(ctx, key)
	if err != nil {
		return fragment.Entry{}, false, err
	}
	if !ok {
		return fragment.Entry{}, false, errors.Newf(errors.ErrCodeStoreCorrupt,
			"fragment %s conflicted on insert but is not readable", key)
	}
	return existing, false, nil
}

func (r *FragmentRepository) insert(ctx context.Context, e fragment.Entry) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertFragmentSQL,
		e.Signature, int(e.Context), e.Height, e.Score, e.CreatedAt)
	if err != nil {
		r.logger.Error("FragmentRepository.insert", logging.String("key", e.Key().String()), logging.Err(err))
		return false, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to insert fragment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to read insert result")
	}
	return n == 1, nil
}

// Find implements fragment.Repository.
func (r *FragmentRepository) Find(ctx context.Context, key fragment.Key) (fragment.Entry, bool, error) {
	e, err := scanFragment(r.db.QueryRowContext(ctx, selectFragmentSQL, key.Signature, int(key.Context)))
	if stderrors.Is(err, sql.ErrNoRows) {
		return fragment.Entry{}, false, nil
	}
	if err != nil {
		return fragment.Entry{}, false, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to read fragment")
	}
	return e, true, nil
}

// Save implements fragment.Repository.  An existing entry is left untouched.
func (r *FragmentRepository) Save(ctx context.Context, e fragment.Entry) error {
	_, err := r.insert(ctx, e)
	return err
}

// CountByContext implements fragment.Stats.
func (r *FragmentRepository) CountByContext(ctx context.Context) (map[fragment.SugarContext]int64, error) {
	rows, err := r.db.QueryContext(ctx, countFragmentsSQL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to count fragments")
	}
	defer rows.Close()

	out := map[fragment.SugarContext]int64{fragment.WithoutSugar: 0, fragment.WithSugar: 0}
	for rows.Next() {
		var (
			sc int
			n  int64
		)
		if err := rows.Scan(&sc, &n); err != nil {
			return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to scan fragment count")
		}
		out[fragment.SugarContext(sc)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to count fragments")
	}
	return out, nil
}

func scanFragment(s scanner) (fragment.Entry, error) {
	var (
		e  fragment.Entry
		sc int
	)
	if err := s.Scan(&e.Signature, &sc, &e.Height, &e.Score, &e.CreatedAt); err != nil {
		return fragment.Entry{}, err
	}
	e.Context = fragment.SugarContext(sc)
	return e, nil
}
