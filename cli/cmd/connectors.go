package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmaynor/property-mangement-pane/cli/internal/client"
	"github.com/dmaynor/property-mangement-pane/cli/pkg/output"
)

func newConnectorsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connectors",
		Aliases: []string{"connector"},
		Short:   "Vendor connector commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered connectors",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			connectors, err := g.client().Connectors(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list connectors: %w", err)
			}
			return output.Print(g.format(), connectors, func() {
				table := output.NewTable("NAME")
				for _, c := range connectors {
					table.AddRow(c.Name)
				}
				table.Render()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "discover <name>",
		Short: "Describe what a connector can read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := g.client().Discover(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to discover %s: %w", args[0], err)
			}
			return output.Print(g.format(), d, func() {
				output.Info("Source app: %s", d.SourceApp)
				output.Info("Mode:       %s", d.Mode)
				output.Info("Version:    %s", d.Version)
				output.Info("Webhooks:   %t", d.WebhookSupported)
				output.Info("Resources:  %v", d.Resources)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pull <name>",
		Short: "Pull every record from a connector as one batch",
		Example: `  pmapctl connectors pull appfolio
  pmapctl connectors pull appfolio -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := g.client().Pull(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("pull failed: %w", err)
			}
			return output.Print(g.format(), res, func() { renderBatch(res) })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile <name>",
		Short: "Compare vendor record counts with stored counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := g.client().Reconcile(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}
			return output.Print(g.format(), rec, func() { renderReconciliation(rec) })
		},
	})

	return cmd
}

func renderBatch(res *client.BatchResult) {
	output.Info("Ingest %s (%s, %s)", res.IngestID, res.SourceApp, res.Trigger)

	table := output.NewTable("ENTITY", "EXTERNAL ID", "TABLE", "STATUS", "EVENT", "ERROR")
	for _, r := range res.Results {
		table.AddRow(r.EntityType, r.ExternalID, r.Table, r.Status, r.EventType, r.Error)
	}
	table.Render()

	s := res.Summary
	if s.Failed > 0 {
		output.Warn("Processed %d: %d changed, %d unchanged, %d failed", s.Processed, s.Changed, s.Noop, s.Failed)
		return
	}
	output.Success("Processed %d: %d changed, %d unchanged", s.Processed, s.Changed, s.Noop)
}

func renderReconciliation(rec *client.Reconciliation) {
	resources := make([]string, 0, len(rec.SnapshotCounts))
	for r := range rec.SnapshotCounts {
		resources = append(resources, r)
	}
	sort.Strings(resources)

	drift := 0
	table := output.NewTable("RESOURCE", "VENDOR", "STORED")
	for _, r := range resources {
		vendor, stored := rec.SnapshotCounts[r], rec.LocalCounts[r]
		if int64(vendor) != stored {
			drift++
		}
		table.AddRow(r, strconv.Itoa(vendor), strconv.FormatInt(stored, 10))
	}
	table.Render()

	if drift > 0 {
		output.Warn("%d resource(s) differ from %s", drift, rec.SourceApp)
		return
	}
	output.Success("%s is in sync", rec.SourceApp)
}
