// Package repositories holds the PostgreSQL implementations of the molecule
// corpus and the fragment score store.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
)

// queryExecutor abstracts sql.DB and sql.Tx
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// nullInt stores counts only for records that were actually scored.
func nullInt(v int, valid bool) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: valid}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// jsonTable encodes a fragment table for a JSONB column; an empty table is
// stored as NULL.
func jsonTable(m map[string]int) (interface{}, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func decodeTable(b []byte) (map[string]int, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
