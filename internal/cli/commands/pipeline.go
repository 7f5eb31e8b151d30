package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/dataplatform-labs/columnlineage/internal/catalog"
	"github.com/dataplatform-labs/columnlineage/internal/cliconfig"
	"github.com/dataplatform-labs/columnlineage/internal/diagnostics"
	"github.com/dataplatform-labs/columnlineage/internal/pipeline"
)

// runPipeline loads the manifest/catalog pair named by cfg and runs the
// full 4-stage pipeline over every model it contains.
func runPipeline(ctx context.Context, cfg *cliconfig.Config) (*pipeline.Result, error) {
	manifestFile, err := os.Open(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", cfg.ManifestPath, err)
	}
	defer manifestFile.Close()

	catalogFile, err := os.Open(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", cfg.CatalogPath, err)
	}
	defer catalogFile.Close()

	loadSink := diagnostics.NewSink()
	cat, err := catalog.Load(manifestFile, catalogFile, loadSink)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	result, err := pipeline.Run(ctx, cat, cfg.Workers, nil)
	if err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}

	merged := diagnostics.NewSink()
	merged.Merge(loadSink)
	merged.Merge(result.Sink)
	result.Sink = merged
	result.Summary.DiagnosticCounts = merged.CountByKind()
	return result, nil
}
