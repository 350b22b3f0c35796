package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/internal/infrastructure/database/postgres"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// MoleculeRepository
// ─────────────────────────────────────────────────────────────────────────────

// MoleculeRepository is the PostgreSQL molecule corpus.
type MoleculeRepository struct {
	db     *sql.DB
	logger logging.Logger
}

var _ molecule.Repository = (*MoleculeRepository)(nil)

// NewMoleculeRepository constructs a ready-to-use MoleculeRepository.
func NewMoleculeRepository(conn *postgres.Connection, log logging.Logger) *MoleculeRepository {
	return &MoleculeRepository{db: conn.DB(), logger: log}
}

const moleculeColumns = `id, structure, format,
	total_atom_number, heavy_atom_number, sugar_free_total_atom_number, sugar_free_heavy_atom_number,
	fragments_with_sugar, fragments,
	npl_sugar_score, npl_score, npl_noh_score,
	contains_sugar, contains_ring_sugars, contains_linear_sugars,
	sugar_free_smiles, murcko_framework, skip_reason, scored_at`

const (
	updateScoresSQL = `UPDATE molecules SET
		total_atom_number = $2, heavy_atom_number = $3,
		sugar_free_total_atom_number = $4, sugar_free_heavy_atom_number = $5,
		fragments_with_sugar = $6, fragments = $7,
		npl_sugar_score = $8, npl_score = $9, npl_noh_score = $10,
		contains_sugar = $11, contains_ring_sugars = $12, contains_linear_sugars = $13,
		sugar_free_smiles = $14, murcko_framework = $15, skip_reason = $16, scored_at = $17
		WHERE id = $1`

	importMoleculeSQL = `INSERT INTO molecules (id, structure, format) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`

	countPendingSQL = `SELECT COUNT(*) FROM molecules WHERE scored_at IS NULL`
)

// List implements molecule.Repository with keyset pagination on id.
func (r *MoleculeRepository) List(ctx context.Context, opts molecule.ListOptions) ([]*molecule.Record, error) {
	var q strings.Builder
	q.WriteString("SELECT ")
	q.WriteString(moleculeColumns)
	q.WriteString(" FROM molecules WHERE id > $1")
	if !opts.IncludeScored {
		q.WriteString(" AND scored_at IS NULL")
	}
	q.WriteString(" ORDER BY id LIMIT $2")

	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.db.QueryContext(ctx, q.String(), opts.AfterID, limit)
	if err != nil {
		r.logger.Error("MoleculeRepository.List", logging.String("after_id", opts.AfterID), logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to list molecules")
	}
	defer rows.Close()

	out := make([]*molecule.Record, 0, limit)
	for rows.Next() {
		rec, err := scanMolecule(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to scan molecule")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to list molecules")
	}
	return out, nil
}

// FindByID implements molecule.Repository.
func (r *MoleculeRepository) FindByID(ctx context.Context, id string) (*molecule.Record, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+moleculeColumns+" FROM molecules WHERE id = $1", id)
	rec, err := scanMolecule(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf(errors.CodeMoleculeNotFound, "molecule %q not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to read molecule")
	}
	return rec, nil
}

// SaveScores implements molecule.Repository.
func (r *MoleculeRepository) SaveScores(ctx context.Context, rec *molecule.Record) error {
	withSugar, err := jsonTable(rec.FragmentsWithSugar)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "failed to encode fragments_with_sugar")
	}
	free, err := jsonTable(rec.Fragments)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "failed to encode fragments")
	}

	scored := rec.SkipReason == molecule.SkipNone && rec.ScoredAt != nil
	var containsSugar sql.NullInt32
	if scored && rec.ContainsSugar != molecule.SugarUnknown {
		containsSugar = sql.NullInt32{Int32: int32(rec.ContainsSugar), Valid: true}
	}
	var scoredAt sql.NullTime
	if rec.ScoredAt != nil {
		scoredAt = sql.NullTime{Time: *rec.ScoredAt, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, updateScoresSQL,
		rec.ID,
		nullInt(rec.TotalAtomCount, scored), nullInt(rec.HeavyAtomCount, scored),
		nullInt(rec.SugarFreeAtomCount, scored), nullInt(rec.SugarFreeHeavyAtomCount, scored),
		withSugar, free,
		nullFloat(rec.NPLScoreWithSugar), nullFloat(rec.NPLScore), nullFloat(rec.NPLScoreNoH),
		containsSugar, rec.ContainsRingSugars, rec.ContainsLinearSugars,
		nullString(rec.SugarFreeSMILES), nullString(rec.MurckoFramework),
		nullString(string(rec.SkipReason)), scoredAt,
	)
	if err != nil {
		r.logger.Error("MoleculeRepository.SaveScores", logging.String("molecule_id", rec.ID), logging.Err(err))
		return errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to save molecule scores")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to read update result")
	}
	if n == 0 {
		return errors.Newf(errors.CodeMoleculeNotFound, "molecule %q not found", rec.ID)
	}
	return nil
}

// Import implements molecule.Repository in a single transaction.
func (r *MoleculeRepository) Import(ctx context.Context, recs []*molecule.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to begin import")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, importMoleculeSQL)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to prepare import")
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range recs {
		format := rec.Format
		if format == "" {
			format = molecule.FormatSMILES
		}
		res, err := stmt.ExecContext(ctx, rec.ID, rec.Structure, string(format))
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeCorpusImport, "failed to import molecule "+rec.ID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeCorpusImport, "failed to read import result")
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to commit import")
	}
	r.logger.Info("Imported molecules", logging.Int("submitted", len(recs)), logging.Int("inserted", inserted))
	return inserted, nil
}

// CountPending implements molecule.Repository.
func (r *MoleculeRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, countPendingSQL).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to count pending molecules")
	}
	return n, nil
}

func scanMolecule(s scanner) (*molecule.Record, error) {
	var (
		rec                         molecule.Record
		format                      string
		total, heavy                sql.NullInt64
		freeTotal, freeHeavy        sql.NullInt64
		withSugarJSON, freeJSON     []byte
		sugarScore, score, nohScore sql.NullFloat64
		containsSugar               sql.NullInt32
		ringSugars, linearSugars    sql.NullBool
		freeSMILES, murcko, skip    sql.NullString
		scoredAt                    sql.NullTime
	)
	err := s.Scan(&rec.ID, &rec.Structure, &format,
		&total, &heavy, &freeTotal, &freeHeavy,
		&withSugarJSON, &freeJSON,
		&sugarScore, &score, &nohScore,
		&containsSugar, &ringSugars, &linearSugars,
		&freeSMILES, &murcko, &skip, &scoredAt)
	if err != nil {
		return nil, err
	}

	rec.Format = molecule.StructureFormat(format)
	rec.TotalAtomCount = int(total.Int64)
	rec.HeavyAtomCount = int(heavy.Int64)
	rec.SugarFreeAtomCount = int(freeTotal.Int64)
	rec.SugarFreeHeavyAtomCount = int(freeHeavy.Int64)
	if rec.FragmentsWithSugar, err = decodeTable(withSugarJSON); err != nil {
		return nil, err
	}
	if rec.Fragments, err = decodeTable(freeJSON); err != nil {
		return nil, err
	}
	rec.NPLScoreWithSugar = floatPtr(sugarScore)
	rec.NPLScore = floatPtr(score)
	rec.NPLScoreNoH = floatPtr(nohScore)
	rec.ContainsSugar = molecule.SugarUnknown
	if containsSugar.Valid {
		rec.ContainsSugar = molecule.SugarStatus(containsSugar.Int32)
	}
	rec.ContainsRingSugars = ringSugars.Bool
	rec.ContainsLinearSugars = linearSugars.Bool
	rec.SugarFreeSMILES = freeSMILES.String
	rec.MurckoFramework = murcko.String
	rec.SkipReason = molecule.SkipReason(skip.String)
	if scoredAt.Valid {
		t := scoredAt.Time
		rec.ScoredAt = &t
	}
	return &rec, nil
}
