// Package sqlxrepos implements the repositories on PostgreSQL with sqlx and squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// conn runs statements on the database or, inside InTx, on the open transaction.
type conn struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
	tx  *sqlx.Tx
}

func newConn(db *sqlx.DB) conn {
	return conn{db: db, ext: db}
}

// inTx runs fn in a transaction, committing when fn succeeds. fn's error is returned as is.
func (c conn) inTx(ctx context.Context, fn func(tx conn) error) error {
	if c.tx != nil {
		return fn(c)
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.NewStoreError("beginning transaction", err)
	}
	if err = fn(conn{db: c.db, ext: tx, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return core.NewStoreError("committing transaction", err)
	}
	return nil
}

func (c conn) get(ctx context.Context, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, c.ext, dest, query, args...)
}

func (c conn) selectAll(ctx context.Context, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, c.ext, dest, query, args...)
}

func (c conn) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := c.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// storeErr maps "no rows" to notFound and unique violations to conflict. Other failures become store errors.
func storeErr(err error, op string, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows && notFound != nil {
		return notFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && conflict != nil {
		return conflict
	}
	return core.NewStoreError(op, err)
}

// orderBy applies the orderings whose field is a known column.
func orderBy(b sq.SelectBuilder, ordering []core.DBOrdering, columns ...string) sq.SelectBuilder {
	known := make(map[string]bool, len(columns))
	for _, col := range columns {
		known[col] = true
	}
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if !known[ord.Field] {
			continue
		}
		clause := pq.QuoteIdentifier(ord.Field) + " ASC NULLS LAST"
		if !ord.Ascending {
			clause = pq.QuoteIdentifier(ord.Field) + " DESC NULLS FIRST"
		}
		clauses = append(clauses, clause)
	}
	if len(clauses) == 0 {
		return b
	}
	return b.OrderBy(strings.Join(clauses, ", "))
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}
