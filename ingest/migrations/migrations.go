// Package migrations embeds the pmap schema and applies it with
// golang-migrate. Each supported dialect has its own directory of
// numbered up/down scripts describing the same tables.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/dmaynor/property-mangement-pane/common/database"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialect directories.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// Options tune a migration run.
type Options struct {
	Logger *slog.Logger
}

func newMigrate(databaseURL string, opts Options) (*migrate.Migrate, error) {
	dsn, err := database.ParseDSN(databaseURL)
	if err != nil {
		return nil, err
	}
	dialect := string(dsn.Dialect)
	if dialect != Postgres && dialect != SQLite {
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
	src, err := iofs.New(files, dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s migrations: %w", dialect, err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn.MigrateURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise migrations: %w", err)
	}
	if opts.Logger != nil {
		m.Log = slogAdapter{opts.Logger}
	}
	return m, nil
}

// Up applies every pending migration to the database at databaseURL, which
// takes the same forms as the service's database.url. An up-to-date schema is not an error.
// Cancelling ctx stops the run after the migration in progress.
func Up(ctx context.Context, databaseURL string, opts Options) error {
	m, err := newMigrate(databaseURL, opts)
	if err != nil {
		return err
	}
	defer m.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-stop:
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return ctx.Err()
}

// Down reverts every applied migration.
func Down(databaseURL string, opts Options) error {
	m, err := newMigrate(databaseURL, opts)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}
	return nil
}

// Version reports the applied schema version. ok is false on an empty
// database.
func Version(databaseURL string) (version uint, dirty, ok bool, err error) {
	m, err := newMigrate(databaseURL, Options{})
	if err != nil {
		return 0, false, false, err
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, dirty, true, nil
}

type slogAdapter struct {
	log *slog.Logger
}

func (a slogAdapter) Printf(format string, v ...any) {
	a.log.Info(fmt.Sprintf(format, v...), slog.String("component", "migrate"))
}

func (a slogAdapter) Verbose() bool {
	return false
}
