// Package cli provides the command-line interface for columnlineage.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dataplatform-labs/columnlineage/internal/cli/commands"
	"github.com/dataplatform-labs/columnlineage/internal/cliconfig"
)

// Version information, set at build time.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

var (
	cfgFile string
	cfg     *cliconfig.Config
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "columnlineage",
		Short: "columnlineage - column-level SQL lineage engine",
		Long: `columnlineage traces column-level data lineage through a warehouse's dbt-shaped
manifest.json and catalog.json: resolving ref()/source() references, expanding
star projections, and tracing every output column back to its base-table origin.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			var err error
			cfg, err = cliconfig.Load(cfgFile, cmd.Root().PersistentFlags())
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./columnlineage.yaml)")
	rootCmd.PersistentFlags().String("manifest-path", "", "Path to manifest.json")
	rootCmd.PersistentFlags().String("catalog-path", "", "Path to catalog.json")
	rootCmd.PersistentFlags().Int("workers", 0, "Number of models to trace concurrently")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (table|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	getConfig := func() *cliconfig.Config { return cfg }

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewTraceCommand(getConfig))
	rootCmd.AddCommand(commands.NewDiagnosticsCommand(getConfig))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
