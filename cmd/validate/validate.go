package validate

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/knesset-annotations/catmaset/internal/conf"
	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/pipeline"
)

// Command creates the validate command. It reports every inconsistency
// instead of stopping at the first and exits non-zero if any was found.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check annotation collections for inconsistencies",
		Long: `Parse every annotation collection of every annotated protocol directory,
or of the given protocol directory only, and list all problems found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) == 1 {
				dir = args[0]
			}

			runner, err := pipeline.NewFromSettings(settings)
			if err != nil {
				return err
			}
			report, err := runner.Validate(cmd.Context(), dir)

			out := cmd.OutOrStdout()
			for _, p := range report.Problems {
				fmt.Fprintf(out, "%s: [%s] %v\n", filepath.Base(p.Dir), errors.CategoryOf(p.Err), p.Err)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%d protocol dirs checked, no problems found\n", report.Checked)
			return err
		},
	}
}
