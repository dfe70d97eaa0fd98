package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmaynor/property-mangement-pane/cli/internal/seeder"
	"github.com/dmaynor/property-mangement-pane/cli/pkg/output"
	"github.com/dmaynor/property-mangement-pane/common/logging"
)

func newSeedCmd(g *globals) *cobra.Command {
	var (
		seederCfgFile string
		portfolios    int
		seed          int64
		faultRate     float64
		redeliver     bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Push generated portfolios through the webhook endpoint",
		Long: `Generate linked property, unit, tenant, lease and payment records and
deliver each one as a webhook.

Configuration cascade (priority order):
  1. Command-line flags
  2. ./seeder.yaml (project directory)
  3. ~/.pmap/seeder.yaml (user directory)
  4. Built-in defaults`,
		Example: `  pmapctl seed --portfolios 100
  pmapctl seed --fault-rate 0.1 --redeliver`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := seeder.LoadConfig(seederCfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			flags := cmd.Flags()
			if flags.Changed("portfolios") {
				cfg.Defaults.Portfolios = portfolios
			}
			if flags.Changed("seed") {
				cfg.Defaults.Seed = seed
			}
			if flags.Changed("fault-rate") {
				cfg.Defaults.FaultRate = faultRate
			}
			if flags.Changed("redeliver") {
				cfg.Defaults.Redeliver = redeliver
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.NewWithWriter(cmd.ErrOrStderr(), slog.LevelInfo, "text")
			runner := seeder.NewRunner(cfg, g.client(), logger)
			sum, err := runner.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("seeder failed: %w", err)
			}

			return output.Print(g.format(), sum, func() {
				output.Info("Deliveries: %d (%d sent, %d failed)", sum.Deliveries, sum.Sent, sum.Failed)
				output.Info("Tuples:     %d changed, %d unchanged, %d rejected", sum.Changed, sum.Noop, sum.Rejected)
				if sum.Unexpected > 0 {
					output.Warn("%d deliveries had an unexpected outcome", sum.Unexpected)
					return
				}
				output.Success("Seeding complete")
			})
		},
	}

	cmd.Flags().StringVar(&seederCfgFile, "seeder-config", "", "seeder config file (default: ./seeder.yaml or ~/.pmap/seeder.yaml)")
	cmd.Flags().IntVarP(&portfolios, "portfolios", "p", 0, "number of portfolios to generate")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().Float64Var(&faultRate, "fault-rate", 0, "share of deliveries sent without an id")
	cmd.Flags().BoolVar(&redeliver, "redeliver", false, "send every delivery twice")
	return cmd
}
