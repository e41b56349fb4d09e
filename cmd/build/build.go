package build

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/knesset-annotations/catmaset/internal/conf"
	"github.com/knesset-annotations/catmaset/internal/pipeline"
)

// Command creates the build command for a full corpus run.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Unpack the corpus and write the annotation table",
		Long: `Unpack the corpus archive, extract every annotation collection of every
annotated protocol directory and write the deduplicated, label-normalized
table to the output path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := pipeline.NewFromSettings(settings)
			if err != nil {
				return err
			}
			res, err := runner.Build(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d rows from %d protocols written to %s\n",
				res.Rows, res.Protocols, res.Output)
			return err
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags configures flags specific to the build command.
func setupFlags(cmd *cobra.Command) {
	cmd.Flags().String("data-dir", conf.DefaultDataDir, "Directory holding the corpus archive")
	cmd.Flags().String("archive", conf.DefaultArchive, "Corpus zip file name inside the data directory")
	cmd.Flags().StringP("output", "o", conf.DefaultOutputPath, "Output table path")
	cmd.Flags().StringP("format", "f", conf.DefaultOutputFormat, "Output format: auto, tsv, csv, xlsx")

	_ = viper.BindPFlag("input.datadir", cmd.Flags().Lookup("data-dir"))
	_ = viper.BindPFlag("input.archive", cmd.Flags().Lookup("archive"))
	_ = viper.BindPFlag("output.path", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("output.format", cmd.Flags().Lookup("format"))
}
