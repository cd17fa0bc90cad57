// Package sqlxrepos implements the domain repositories on top of sqlx. Queries use `?`
// placeholders rebound to the driver's bindvar, so they run on postgres and sqlite alike.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// conds accumulates the AND-ed clauses of a WHERE.
type conds struct {
	clauses []string
	args    []interface{}
}

func (c *conds) add(clause string, args ...interface{}) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *conds) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// like returns a case-insensitive LIKE pattern; match against LOWER(col).
func like(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
	return "%" + s + "%"
}

// likeTag matches a tag inside a JSON encoded tags.List, case-insensitively.
func likeTag(tag string) string {
	return like(`"` + strings.TrimSpace(tag) + `"`)
}

// in expands the IN (?) clauses of query for a slice argument and rebinds it.
func in(db sqlx.ExtContext, query string, args ...interface{}) (string, []interface{}, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return db.Rebind(q), a, nil
}

// trapNoRows maps "no rows" to notFound.
func trapNoRows(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// withTx runs fn in a transaction, committed when fn succeeds.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// lockRow holds a row lock on table.id until tx ends. sqlite serializes writers on its
// single connection and has no FOR UPDATE.
func lockRow(ctx context.Context, tx *sqlx.Tx, table, id string, notFound error) error {
	if tx.DriverName() != "postgres" {
		return nil
	}
	var got string
	q := tx.Rebind("SELECT id FROM " + table + " WHERE id = ? FOR UPDATE")
	return trapNoRows(tx.GetContext(ctx, &got, q, id), notFound, "locking "+table)
}

// isUniqueViolation reports whether err is a unique or primary key violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

// likeOp compares against a pattern built by like or likeTag.
const likeOp = ` LIKE ? ESCAPE '\'`

func joinOr(clauses []string) string {
	return strings.Join(clauses, " OR ")
}

// deleteWhereIn deletes the rows of table whose col is in vals.
func deleteWhereIn(ctx context.Context, db *sqlx.DB, table, col string, vals []string) error {
	if len(vals) == 0 {
		return nil
	}
	q, args, err := in(db, "DELETE FROM "+table+" WHERE "+col+" IN (?)", vals)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = db.ExecContext(ctx, q, args...)
	return errors.Wrapf(err, "deleting from %s", table)
}
