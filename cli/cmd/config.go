package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dmaynor/property-mangement-pane/cli/pkg/output"
)

func newConfigCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pmapctl profiles",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show profiles and the endpoints they resolve to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return output.Print(g.format(), g.cfg, func() {
				output.Info("Config file:     %s", g.cfg.Path())
				output.Info("Current profile: %s", g.cfg.CurrentProfile)

				names := make([]string, 0, len(g.cfg.Profiles))
				for name := range g.cfg.Profiles {
					names = append(names, name)
				}
				sort.Strings(names)

				table := output.NewTable("PROFILE", "INGEST URL", "DATABASE URL")
				for _, name := range names {
					table.AddRow(name, g.cfg.IngestURL(name), g.cfg.DatabaseURL(name))
				}
				table.Render()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set-url <ingest-url>",
		Short:   "Set the ingest service URL of a profile",
		Example: `  pmapctl config set-url http://pmap.internal:8000 --profile prod`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.cfg.SetIngestURL(g.profile, args[0]); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			output.Success("Ingest URL set for profile %s", profileName(g))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-database <database-url>",
		Short: "Set the database URL used by migrate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.cfg.SetDatabaseURL(g.profile, args[0]); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			output.Success("Database URL set for profile %s", profileName(g))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "use <profile>",
		Short: "Switch the current profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.cfg.UseProfile(args[0]); err != nil {
				return err
			}
			output.Success("Switched to profile %s", args[0])
			return nil
		},
	})

	return cmd
}

func profileName(g *globals) string {
	if g.profile != "" {
		return g.profile
	}
	return g.cfg.CurrentProfile
}
