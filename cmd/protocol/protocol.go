package protocol

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knesset-annotations/catmaset/internal/conf"
	"github.com/knesset-annotations/catmaset/internal/pipeline"
)

// Command creates the protocol command that builds the table of one
// protocol directory.
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "protocol [dir]",
		Short: "Write the annotation table of a single protocol directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := pipeline.NewFromSettings(settings)
			if err != nil {
				return err
			}
			res, err := runner.Protocol(cmd.Context(), args[0], output)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d rows written to %s\n", res.Rows, res.Output)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output table path (default: configured output path)")

	return cmd
}
