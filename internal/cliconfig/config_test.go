package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	withWorkdir(t, t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, DefaultManifestPath, cfg.ManifestPath)
	require.Equal(t, DefaultCatalogPath, cfg.CatalogPath)
	require.Equal(t, DefaultOutput, cfg.Output)
	require.Equal(t, DefaultWorkers, cfg.Workers)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	withWorkdir(t, dir)

	yamlBody := "manifest_path: custom_manifest.json\noutput: json\nworkers: 4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "columnlineage.yaml"), []byte(yamlBody), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, "custom_manifest.json", cfg.ManifestPath)
	require.Equal(t, "json", cfg.Output)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, DefaultCatalogPath, cfg.CatalogPath)
}

func TestLoadEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	withWorkdir(t, dir)

	yamlBody := "output: json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "columnlineage.yaml"), []byte(yamlBody), 0o644))

	t.Setenv("COLUMNLINEAGE_OUTPUT", "table")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, "table", cfg.Output)
}

func TestLoadFlagsOverrideEverything(t *testing.T) {
	dir := t.TempDir()
	withWorkdir(t, dir)

	yamlBody := "output: json\nworkers: 4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "columnlineage.yaml"), []byte(yamlBody), 0o644))
	t.Setenv("COLUMNLINEAGE_OUTPUT", "table")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "", "")
	flags.Int("workers", 0, "")
	require.NoError(t, flags.Set("output", "text"))
	require.NoError(t, flags.Set("workers", "2"))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	require.Equal(t, "text", cfg.Output)
	require.Equal(t, 2, cfg.Workers)
}

func TestLoadUnchangedFlagsDoNotOverride(t *testing.T) {
	withWorkdir(t, t.TempDir())

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "table", "")

	cfg, err := Load("", flags)
	require.NoError(t, err)
	require.Equal(t, DefaultOutput, cfg.Output)
}

// withWorkdir switches the process working directory to dir for the
// duration of the test, restoring the original on cleanup. findConfigFile
// searches the working directory, so config-file-discovery tests need this.
func withWorkdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(orig)
	})
}
