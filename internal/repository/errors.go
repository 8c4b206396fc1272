package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound             = errors.New("record not found")
	ErrDuplicateContentHash = errors.New("content hash already exists")
)

const pgUniqueViolation = "23505"

// MapError translates driver errors to repository errors. sql.ErrNoRows becomes ErrNotFound and a
// PostgreSQL unique violation becomes ErrDuplicateContentHash. Other errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateContentHash
	}
	return err
}
