package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repositories need for single
// statements. pgx transactions satisfy it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is implemented by pgxpool.Pool and used where a repository
// needs its own transaction boundary.
type TxBeginner interface {
	DB
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("repo: not found")

// ErrDuplicate is returned on unique constraint violations.
var ErrDuplicate = errors.New("repo: duplicate")

// ErrInsufficientStock is returned when a conditional stock decrement
// matches no row, meaning the remaining stock cannot cover the quantity.
var ErrInsufficientStock = errors.New("repo: insufficient stock")

func mapRowError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
