package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dmaynor/property-mangement-pane/cli/internal/client"
	"github.com/dmaynor/property-mangement-pane/cli/internal/config"
	"github.com/dmaynor/property-mangement-pane/cli/pkg/output"
)

// errSilent marks a failure that has already been reported to the user.
var errSilent = errors.New("")

// globals are the persistent flags shared by every command.
type globals struct {
	cfgFile   string
	profile   string
	outputFmt string
	ingestURL string

	cfg *config.Config
}

// NewRootCmd builds the pmapctl command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "pmapctl",
		Short: "Property management ingest CLI",
		Long: `pmapctl drives the pmap ingest service.

Pull and reconcile vendor connectors, replay webhooks, browse the audit
trail, verify stored checksums and manage the database schema.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.cfgFile)
			if err != nil {
				return err
			}
			g.cfg = cfg
			_, err = output.ParseFormat(g.outputFmt)
			return err
		},
	}

	root.PersistentFlags().StringVar(&g.cfgFile, "config", "", "config file (default: $HOME/.pmap/config.yaml)")
	root.PersistentFlags().StringVar(&g.profile, "profile", "", "profile to use (default: current profile)")
	root.PersistentFlags().StringVarP(&g.outputFmt, "output", "o", "table", "output format: table, json, yaml")
	root.PersistentFlags().StringVar(&g.ingestURL, "ingest-url", "", "ingest service URL (overrides the profile)")

	root.AddCommand(
		newConnectorsCmd(g),
		newWebhookCmd(g),
		newEventsCmd(g),
		newVerifyCmd(g),
		newMigrateCmd(g),
		newConfigCmd(g),
		newSeedCmd(g),
	)
	return root
}

// Execute runs pmapctl with os.Args.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil && !errors.Is(err, errSilent) {
		output.Error("%v", err)
	}
	return err
}

func (g *globals) client() *client.IngestClient {
	if g.ingestURL != "" {
		return client.NewIngestClient(g.ingestURL)
	}
	return client.NewIngestClient(g.cfg.IngestURL(g.profile))
}

func (g *globals) format() output.Format {
	f, _ := output.ParseFormat(g.outputFmt)
	return f
}
