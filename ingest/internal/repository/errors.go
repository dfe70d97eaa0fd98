package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Storage error codes that are not raw driver codes.
const (
	CodeCanceled     = "canceled"
	CodeTimeout      = "timeout"
	CodeConnection   = "connection"
	CodeUnknown      = "unknown"
	codeSQLitePrefix = "sqlite:"
)

// StorageError is a batch-fatal database failure. Code carries the
// SQLSTATE for PostgreSQL, "sqlite:<extended code>" for SQLite, or one of
// the Code constants.
type StorageError struct {
	Op    string
	Table string
	Code  string
	Err   error
}

func (e *StorageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is (or wraps) a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// storageError wraps err for op. Errors that already are StorageErrors and
// lookup sentinels pass through unchanged.
func storageError(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrUnknownTable) {
		return err
	}
	return &StorageError{Op: op, Table: table, Code: classify(err), Err: err}
}

func classify(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return fmt.Sprintf("%s%d", codeSQLitePrefix, int(liteErr.ExtendedCode))
	}
	switch {
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, driver.ErrBadConn), pgconn.SafeToRetry(err):
		return CodeConnection
	}
	return CodeUnknown
}
