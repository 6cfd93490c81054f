package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound wraps pgx.ErrNoRows so callers outside the repository layer can
// test for missing records without importing pgx.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate reports an insert that collided with an existing primary key.
var ErrDuplicate = errors.New("record already exists")

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories can be
// rebound to a transaction inside multi-write service flows.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// nullableTime lets upserts keep a caller-supplied created_at (backup restore)
// while defaulting fresh records to NOW().
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func wrapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func wrapDuplicateKey(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
