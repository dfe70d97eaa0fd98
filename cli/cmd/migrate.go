package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmaynor/property-mangement-pane/cli/pkg/output"
	"github.com/dmaynor/property-mangement-pane/common/logging"
	"github.com/dmaynor/property-mangement-pane/ingest/migrations"
)

type schemaStatus struct {
	DatabaseURL string `json:"database_url"`
	Applied     bool   `json:"applied"`
	Version     uint   `json:"version"`
	Dirty       bool   `json:"dirty"`
}

func newMigrateCmd(g *globals) *cobra.Command {
	var (
		databaseURL string
		verbose     bool
	)

	dbURL := func() string {
		if databaseURL != "" {
			return databaseURL
		}
		return g.cfg.DatabaseURL(g.profile)
	}
	opts := func() migrations.Options {
		if !verbose {
			return migrations.Options{}
		}
		return migrations.Options{Logger: logging.NewWithWriter(os.Stderr, slog.LevelInfo, "text").Logger}
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the pmap database schema",
		Long: `Apply, revert or inspect the pmap schema. PostgreSQL (postgres://)
and SQLite (sqlite://, file:) databases are supported.`,
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "database URL (overrides the profile)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log each migration step")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrations.Up(cmd.Context(), dbURL(), opts()); err != nil {
				return err
			}
			output.Success("Schema is up to date")
			return nil
		},
	})

	var yes bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert every migration, dropping all pmap tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop the schema without --yes")
			}
			if err := migrations.Down(dbURL(), opts()); err != nil {
				return err
			}
			output.Success("Schema reverted")
			return nil
		},
	}
	down.Flags().BoolVar(&yes, "yes", false, "confirm dropping every pmap table")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, dirty, ok, err := migrations.Version(dbURL())
			if err != nil {
				return err
			}
			st := schemaStatus{DatabaseURL: dbURL(), Applied: ok, Version: version, Dirty: dirty}
			return output.Print(g.format(), st, func() {
				switch {
				case !ok:
					output.Warn("No migrations applied")
				case dirty:
					output.Warn("Schema version %d is dirty", version)
				default:
					output.Success("Schema version %d", version)
				}
			})
		},
	})

	return cmd
}
