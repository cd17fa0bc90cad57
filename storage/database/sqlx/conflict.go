package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nexussync/clubs/core/conflict"
)

type resolutionRow struct {
	ConflictID string      `db:"conflict_id"`
	Note       string      `db:"note"`
	ResolvedBy null.String `db:"resolved_by"`
	ResolvedAt time.Time   `db:"resolved_at"`
}

type conflictRepository struct {
	db *sqlx.DB
}

var _ conflict.Repository = (*conflictRepository)(nil) // interface compliance check

func NewConflictRepository(db *sqlx.DB) *conflictRepository {
	return &conflictRepository{db: db}
}

func (repo *conflictRepository) QueryResolutions(ctx context.Context, ids ...string) ([]conflict.Resolution, error) {
	q := "SELECT conflict_id, note, resolved_by, resolved_at FROM conflict_resolutions"
	var args []interface{}
	if len(ids) > 0 {
		var err error
		if q, args, err = in(repo.db, q+" WHERE conflict_id IN (?)", ids); err != nil {
			return nil, errors.Wrap(err, "building resolutions query")
		}
	}
	var rows []resolutionRow
	if err := repo.db.SelectContext(ctx, &rows, q+" ORDER BY resolved_at DESC", args...); err != nil {
		return nil, errors.Wrap(err, "querying resolutions")
	}
	rs := make([]conflict.Resolution, 0, len(rows))
	for _, row := range rows {
		rs = append(rs, conflict.Resolution{
			ConflictID: row.ConflictID,
			Note:       row.Note,
			ResolvedBy: row.ResolvedBy.String,
			ResolvedAt: row.ResolvedAt.UTC(),
		})
	}
	return rs, nil
}

func (repo *conflictRepository) SaveResolution(ctx context.Context, r conflict.Resolution) error {
	q := repo.db.Rebind(`INSERT INTO conflict_resolutions (conflict_id, note, resolved_by, resolved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (conflict_id) DO UPDATE SET note = excluded.note, resolved_by = excluded.resolved_by,
		resolved_at = excluded.resolved_at`)
	_, err := repo.db.ExecContext(ctx, q, r.ConflictID, r.Note, nullString(r.ResolvedBy), r.ResolvedAt.UTC())
	return errors.Wrap(err, "saving resolution")
}

func (repo *conflictRepository) DeleteResolution(ctx context.Context, conflictID string) error {
	return deleteWhereIn(ctx, repo.db, "conflict_resolutions", "conflict_id", []string{conflictID})
}
