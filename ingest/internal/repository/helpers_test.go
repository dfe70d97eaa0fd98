package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/normalizer"
	"github.com/dmaynor/property-mangement-pane/ingest/migrations"
)

// openMigrated opens rawURL after applying the schema.
func openMigrated(t *testing.T, rawURL string) *Store {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, migrations.Up(ctx, rawURL, migrations.Options{}))

	store, err := Open(ctx, rawURL, DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	return openMigrated(t, "sqlite://"+filepath.Join(t.TempDir(), "pmap.db"))
}

// newPostgresStore starts a PostgreSQL testcontainer. Skipped in -short
// mode or when no container runtime is available.
func newPostgresStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("pmap_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return openMigrated(t, connStr)
}

// forEachStore runs fn against SQLite and, when available, PostgreSQL.
func forEachStore(t *testing.T, fn func(t *testing.T, s *Store)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newSQLiteStore(t))
	})
	t.Run("postgres", func(t *testing.T) {
		fn(t, newPostgresStore(t))
	})
}

var testNormalizer = func() *normalizer.Normalizer {
	n, err := normalizer.New(normalizer.WithClock(func() time.Time {
		return time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	}))
	if err != nil {
		panic(err)
	}
	return n
}()

func canonical(t *testing.T, entityType string, record map[string]any) *models.CanonicalRecord {
	t.Helper()
	rec, err := testNormalizer.Normalize("appfolio", entityType, record)
	require.NoError(t, err)
	return rec
}

// upsertOne runs a single upsert in its own committed batch.
func upsertOne(t *testing.T, s *Store, rec *models.CanonicalRecord) bool {
	t.Helper()
	ctx := context.Background()

	b, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	defer b.Rollback()

	changed, err := b.Upsert(ctx, rec)
	require.NoError(t, err)
	require.NoError(t, b.Commit())
	return changed
}
