package commands

import (
	"github.com/spf13/cobra"

	"github.com/dataplatform-labs/columnlineage/internal/cli/output"
	"github.com/dataplatform-labs/columnlineage/internal/cliconfig"
)

// NewDiagnosticsCommand creates the diagnostics command: run the full
// pipeline and print only the diagnostic stream, for CI checks that care
// about skipped models and unresolved references rather than row output.
func NewDiagnosticsCommand(cfgFn func() *cliconfig.Config) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Run the pipeline and print diagnostics only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := cfgFn()
			if outputFormat != "" {
				cfg.Output = outputFormat
			}

			result, err := runPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return output.Diagnostics(cmd.OutOrStdout(), result.Sink.All(), output.Mode(cfg.Output))
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format (table|json)")
	return cmd
}
