package database

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Dialect identifies the SQL flavour of a store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// sqliteBusyTimeout is how long a SQLite writer waits for the database
// lock, in milliseconds. Concurrent batches queue on it.
const sqliteBusyTimeout = 5000

// DSN is a parsed database URL.
type DSN struct {
	Dialect Dialect
	// Driver is the database/sql driver name.
	Driver string
	// DataSource is passed to sql.Open.
	DataSource string
	// MigrateURL is the URL golang-migrate understands for this database.
	MigrateURL string
}

// ParseDSN accepts postgres://, postgresql://, sqlite://, sqlite3:// and
// file: URLs.
func ParseDSN(raw string) (DSN, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DSN{}, fmt.Errorf("database url is empty")
	}

	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		if _, err := url.Parse(raw); err != nil {
			return DSN{}, fmt.Errorf("invalid postgres url: %w", err)
		}
		return DSN{
			Dialect:    DialectPostgres,
			Driver:     "pgx",
			DataSource: raw,
			MigrateURL: raw,
		}, nil

	case strings.HasPrefix(raw, "sqlite3://"):
		return sqliteDSN(strings.TrimPrefix(raw, "sqlite3://"))
	case strings.HasPrefix(raw, "sqlite://"):
		return sqliteDSN(strings.TrimPrefix(raw, "sqlite://"))
	case strings.HasPrefix(raw, "file:"):
		return sqliteDSN(strings.TrimPrefix(raw, "file:"))
	}

	return DSN{}, fmt.Errorf("unsupported database url %q (want postgres:// or sqlite://)", raw)
}

func sqliteDSN(path string) (DSN, error) {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return DSN{}, fmt.Errorf("sqlite url needs a file path")
	}

	params := url.Values{}
	params.Set("_busy_timeout", strconv.Itoa(sqliteBusyTimeout))
	params.Set("_txlock", "immediate")
	params.Set("_journal_mode", "WAL")

	return DSN{
		Dialect:    DialectSQLite,
		Driver:     "sqlite3",
		DataSource: "file:" + path + "?" + params.Encode(),
		MigrateURL: "sqlite3://" + path,
	}, nil
}

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
