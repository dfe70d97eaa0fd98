package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmaynor/property-mangement-pane/cli/pkg/output"
)

func newVerifyCmd(g *globals) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute stored checksums and report mismatches",
		Long: `Recompute the checksum of every stored canonical row and compare it
with the stored value. Exits non-zero when any row disagrees.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := g.client().Verify(cmd.Context(), table)
			if err != nil {
				return fmt.Errorf("verify failed: %w", err)
			}

			err = output.Print(g.format(), res, func() {
				t := output.NewTable("TABLE", "CHECKED", "MISMATCHES")
				for _, r := range res.Tables {
					t.AddRow(r.Table, strconv.Itoa(r.Checked), strconv.Itoa(len(r.Mismatches)))
				}
				t.Render()

				for _, r := range res.Tables {
					for _, m := range r.Mismatches {
						output.Warn("%s %s/%s: stored %s, computed %s", r.Table, m.SourceApp, m.ExternalID, m.Stored, m.Computed)
					}
				}
				if res.OK {
					output.Success("All checksums match")
				}
			})
			if err != nil {
				return err
			}
			if !res.OK {
				output.Error("checksum mismatches found")
				return errSilent
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "only verify this table")
	return cmd
}
