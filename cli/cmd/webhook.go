package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmaynor/property-mangement-pane/cli/pkg/output"
)

func newWebhookCmd(g *globals) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "webhook <connector>",
		Short: "Deliver a webhook payload to a connector",
		Long: `Deliver a vendor webhook payload as if the vendor had pushed it.

The payload is read from --file, or from stdin when --file is "-".`,
		Example: `  pmapctl webhook appfolio --file unit.json
  echo '{"entity_type":"unit","data":{"id":"unit_2001","property_id":"prop_1001"}}' | pmapctl webhook appfolio -f -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd, file)
			if err != nil {
				return err
			}

			res, err := g.client().Webhook(cmd.Context(), args[0], payload)
			if err != nil {
				return fmt.Errorf("webhook failed: %w", err)
			}
			return output.Print(g.format(), res, func() { renderBatch(res) })
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", `payload file, or "-" for stdin`)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readPayload(cmd *cobra.Command, file string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}
	return data, nil
}
