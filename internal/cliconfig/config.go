// Package cliconfig loads the engine's CLI configuration the way the
// teacher project's internal/cli/config does: koanf layering defaults, a
// YAML config file, environment variables, then flags, in ascending
// precedence. This package drops the teacher's project-root inference and
// target/warehouse machinery (no Non-goal here carries a connection target)
// but keeps the same provider stack and layering order.
package cliconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Default configuration values.
const (
	DefaultManifestPath = "manifest.json"
	DefaultCatalogPath  = "catalog.json"
	DefaultOutput       = "table"
	DefaultWorkers      = 8
)

// Config holds every option the CLI needs to run a pipeline pass.
type Config struct {
	ManifestPath string `koanf:"manifest_path"`
	CatalogPath  string `koanf:"catalog_path"`
	Output       string `koanf:"output"`
	Workers      int    `koanf:"workers"`
	Verbose      bool   `koanf:"verbose"`
}

// EnvPrefix is the environment variable prefix flags and config keys are
// also reachable under, e.g. COLUMNLINEAGE_MANIFEST_PATH.
const EnvPrefix = "COLUMNLINEAGE_"

// configFileNames are searched for, in order, when cfgFile is not given
// explicitly.
var configFileNames = []string{"columnlineage.yaml", "columnlineage.yml"}

// findConfigFile resolves which config file to load: an explicit path, or
// the first of configFileNames present in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds a Config from, in ascending precedence: built-in defaults,
// an optional YAML config file, COLUMNLINEAGE_-prefixed environment
// variables, and any flags the caller passed that were explicitly set.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"manifest_path": DefaultManifestPath,
		"catalog_path":  DefaultCatalogPath,
		"output":        DefaultOutput,
		"workers":       DefaultWorkers,
		"verbose":       false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("cliconfig: load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("cliconfig: read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("cliconfig: load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("cliconfig: load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("cliconfig: decode config: %w", err)
	}
	return &cfg, nil
}
