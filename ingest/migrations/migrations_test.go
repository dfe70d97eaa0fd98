package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedScriptsArePaired(t *testing.T) {
	for _, dialect := range []string{Postgres, SQLite} {
		entries, err := fs.ReadDir(files, dialect)
		require.NoError(t, err)

		ups, downs := 0, 0
		for _, e := range entries {
			switch {
			case strings.HasSuffix(e.Name(), ".up.sql"):
				ups++
			case strings.HasSuffix(e.Name(), ".down.sql"):
				downs++
			}
		}
		assert.Positive(t, ups, dialect)
		assert.Equal(t, ups, downs, dialect)
	}
}

func TestUnsupportedURL(t *testing.T) {
	err := Up(context.Background(), "mysql://x", Options{})
	assert.ErrorContains(t, err, "unsupported database url")

	_, _, _, err = Version("")
	assert.Error(t, err)
}

func TestSQLiteUpIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pmap.db")
	url := "sqlite://" + path

	require.NoError(t, Up(context.Background(), url, Options{}))
	require.NoError(t, Up(context.Background(), url, Options{}))

	version, dirty, ok, err := Version(url)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"properties", "units", "tenants", "leases", "payments", "raw_payloads", "audit_events"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestSQLiteDown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pmap.db")
	url := "sqlite://" + path

	require.NoError(t, Up(context.Background(), url, Options{}))
	require.NoError(t, Down(url, Options{}))

	_, _, ok, err := Version(url)
	require.NoError(t, err)
	assert.False(t, ok)
}
