package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmaynor/property-mangement-pane/cli/internal/client"
	"github.com/dmaynor/property-mangement-pane/cli/pkg/output"
)

func newEventsCmd(g *globals) *cobra.Command {
	var q client.EventQuery

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List audit events, newest first",
		Example: `  pmapctl events --limit 20
  pmapctl events --ingest-id 0192f5d3-... -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if q.Limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			events, err := g.client().Events(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("failed to list events: %w", err)
			}
			return output.Print(g.format(), events, func() {
				table := output.NewTable("ID", "CREATED", "SOURCE", "EVENT", "EXTERNAL ID", "LATENCY", "MESSAGE")
				for _, e := range events {
					table.AddRow(
						strconv.FormatInt(e.ID, 10),
						e.CreatedAt,
						e.SourceApp,
						e.EventType,
						e.ExternalID,
						fmt.Sprintf("%dms", e.LatencyMS),
						e.Message,
					)
				}
				table.Render()
			})
		},
	}

	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 50, "maximum events to return (server caps at 500)")
	cmd.Flags().StringVar(&q.IngestID, "ingest-id", "", "only events of this ingest batch")
	cmd.Flags().StringVar(&q.SourceApp, "source-app", "", "only events from this source app")
	return cmd
}
