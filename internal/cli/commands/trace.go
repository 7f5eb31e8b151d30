package commands

import (
	"github.com/spf13/cobra"

	"github.com/dataplatform-labs/columnlineage/internal/cli/output"
	"github.com/dataplatform-labs/columnlineage/internal/cliconfig"
)

// NewTraceCommand creates the trace command: run the full pipeline over a
// manifest + catalog pair and print the resulting lineage rows.
func NewTraceCommand(cfgFn func() *cliconfig.Config) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Trace column-level lineage for every model in the manifest",
		Long: `Loads a manifest.json + catalog.json pair, resolves ref()/source()
references, expands star projections, and traces each output column back to
its base-table origin, printing one row per traced column.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := cfgFn()
			if outputFormat != "" {
				cfg.Output = outputFormat
			}

			result, err := runPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if err := output.Rows(cmd.OutOrStdout(), result.Rows, output.Mode(cfg.Output)); err != nil {
				return err
			}
			if cfg.Verbose {
				return output.Summary(cmd.ErrOrStderr(), result.Summary, output.Mode(cfg.Output))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format (table|json)")
	return cmd
}
