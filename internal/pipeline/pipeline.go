// Package pipeline is the orchestrating layer that wires stages 1-4
// together model by model: resolve refs (internal/refresolve), parse
// (pkg/sqlparser), expand stars (internal/expander), trace lineage
// (internal/tracer). The catalog (stage 1) is loaded once by the caller and
// shared read-only across every model task.
//
// Per-model work is fanned out with golang.org/x/sync/errgroup and a bounded
// worker limit, the same pattern the teacher project uses for its
// concurrent UI/discovery work (internal/ui.Server.Serve's errgroup.WithContext),
// applied here to §5's "parallelism, if desired, is trivially attained by
// sharding on ModelRecord".
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dataplatform-labs/columnlineage/internal/catalog"
	"github.com/dataplatform-labs/columnlineage/internal/dag"
	"github.com/dataplatform-labs/columnlineage/internal/diagnostics"
	"github.com/dataplatform-labs/columnlineage/internal/expander"
	"github.com/dataplatform-labs/columnlineage/internal/normalize"
	"github.com/dataplatform-labs/columnlineage/internal/refresolve"
	"github.com/dataplatform-labs/columnlineage/internal/tracer"
	"github.com/dataplatform-labs/columnlineage/pkg/sqlparser"
	"github.com/dataplatform-labs/columnlineage/pkg/sqlprint"
)

// DefaultWorkers bounds the per-model fan-out when callers don't override it.
const DefaultWorkers = 8

// Row is one output column's fully qualified lineage, the external shape
// spec.md's §6 defines: a tracer.LineageRow with the owning model's identity
// attached.
type Row struct {
	UniqueKey         string `json:"unique_key"`
	Database          string `json:"database"`
	Schema            string `json:"schema"`
	Table             string `json:"table"`
	Column            string `json:"column"`
	ColumnDescription string `json:"column_description"`
	ResourceType      string `json:"resource_type"`
	RawSQL            string `json:"raw_sql"`
	ExpandedSQL       string `json:"expanded_sql"`
	Reference         string `json:"reference"`
	FinalColumn       string `json:"final_column"`
	SourceDatabase    string `json:"source_database"`
	SourceSchema      string `json:"source_schema"`
	SourceTable       string `json:"source_table"`
	SourceColumns     string `json:"source_columns"`
	Transformation    string `json:"transformation"`
}

// RunSummary aggregates counts from one pipeline run, for CLI reporting and
// for correlating a run's diagnostics in logs.
type RunSummary struct {
	RunID            uuid.UUID
	ModelsProcessed  int
	ModelsSkipped    int
	RowsEmitted      int
	DiagnosticCounts map[diagnostics.Kind]int
}

// Result is the full output of a pipeline run.
type Result struct {
	Rows    []Row
	Sink    *diagnostics.Sink
	Summary RunSummary
}

// Run processes every model in cat, in dependency order, and returns every
// traced row plus a merged diagnostic stream. A model that depends on
// another model not present in cat is still processed; only the edge is
// dropped by internal/dag.
func Run(ctx context.Context, cat *catalog.Catalog, workers int, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	order, err := orderModels(cat)
	if err != nil {
		// A dependency cycle among models does not block tracing: each model
		// is still resolved, parsed, expanded and traced independently, so
		// fall back to the catalog's own deterministic (sorted) order and
		// let the tracer's visited-set and depth cap handle any cycle a
		// single model's own CTEs introduce.
		logger.Warn("model dependency graph has a cycle; falling back to sorted order", "error", err)
		order = cat.ModelKeys()
	}

	runID := uuid.New()
	rows := make([][]Row, len(order))
	sinks := make([]*diagnostics.Sink, len(order))
	skipped := make([]bool, len(order))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, nodeKey := range order {
		i, nodeKey := i, nodeKey
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			sink := diagnostics.NewSink()
			sinks[i] = sink

			model := cat.Models[nodeKey]
			if model == nil {
				skipped[i] = true
				return nil
			}

			modelRows, ok := processModel(model, cat, sink)
			if !ok {
				skipped[i] = true
				return nil
			}
			rows[i] = modelRows
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := diagnostics.NewSink()
	result := &Result{}
	summary := RunSummary{RunID: runID}
	for i := range order {
		merged.Merge(sinks[i])
		if skipped[i] {
			summary.ModelsSkipped++
			continue
		}
		summary.ModelsProcessed++
		result.Rows = append(result.Rows, rows[i]...)
	}
	summary.RowsEmitted = len(result.Rows)
	summary.DiagnosticCounts = merged.CountByKind()

	result.Sink = merged
	result.Summary = summary
	return result, nil
}

// processModel runs stages 2-4 for a single model and attaches its identity
// to every traced row. It returns false if the resolved SQL fails to parse
// or star expansion fails on one of its CTEs; each such failure is recorded
// on sink. A statement with no WITH clause is traced unexpanded, after the
// expander has recorded its NoWithClause diagnostic.
func processModel(model *catalog.ModelRecord, cat *catalog.Catalog, sink *diagnostics.Sink) ([]Row, bool) {
	resolver := refresolve.New()
	resolved := resolver.Resolve(model.UniqueID, model.RawSQL, cat.References, sink)

	stmt, err := sqlparser.Parse(resolved.SQL)
	if err != nil {
		sink.Addf(diagnostics.ParseFailure, diagnostics.SeverityModel, model.UniqueID,
			"failed to parse resolved SQL: %v", err)
		return nil, false
	}

	exp := expander.New()
	expanded, ok := exp.Expand(model.UniqueID, stmt, cat.Schemas, sink)
	if !ok {
		if stmt.With != nil && len(stmt.With.CTEs) > 0 {
			return nil, false
		}
		// No WITH clause: Expand has recorded NoWithClause and left stmt
		// untouched, so it is traced as-is (the no-WITH passthrough).
		expanded = &expander.Result{NodeKey: model.UniqueID, Stmt: stmt, SQL: sqlprint.Statement(stmt)}
	}

	refJSON, err := json.Marshal(modelReferenceMap(model, cat))
	if err != nil {
		refJSON = []byte("{}")
	}

	descriptions := make(map[string]string, len(model.Columns))
	for _, col := range model.Columns {
		descriptions[normalize.Name(col.Name)] = col.Description
	}

	traced := tracer.Trace(model.UniqueID, expanded.Stmt, sink)
	rows := make([]Row, 0, len(traced))
	for _, tr := range traced {
		column := tr.FinalColumn
		rows = append(rows, Row{
			UniqueKey:         model.QualifiedName() + "." + column,
			Database:          model.Database,
			Schema:            model.Schema,
			Table:             model.Name,
			Column:            column,
			ColumnDescription: descriptions[normalize.Name(column)],
			ResourceType:      "model",
			RawSQL:            model.RawSQL,
			ExpandedSQL:       expanded.SQL,
			Reference:         string(refJSON),
			FinalColumn:       tr.FinalColumn,
			SourceDatabase:    tr.SourceDatabase,
			SourceSchema:      tr.SourceSchema,
			SourceTable:       tr.SourceTable,
			SourceColumns:     tr.SourceColumns,
			Transformation:    tr.Transformation,
		})
	}
	return rows, true
}

// modelReferenceMap builds the model's own ReferenceMap: full_name -> [column
// names] for each of its dependencies, the way
// create_manifest_catalog_ref.py's reference_info is built per node from
// node_info["depends_on"]["nodes"] rather than from the whole catalog. A
// dependency missing from the catalog, or reporting no columns, is left out
// of the map entirely (mirroring the original's "Skipping" dependency
// warnings) rather than being included as an empty entry.
func modelReferenceMap(model *catalog.ModelRecord, cat *catalog.Catalog) map[string][]string {
	refs := make(map[string][]string, len(model.DependsOn))
	for _, dep := range model.DependsOn {
		info, ok := cat.Nodes[dep]
		if !ok || len(info.Columns) == 0 {
			continue
		}
		refs[info.FullName] = info.Columns
	}
	return refs
}

// orderModels builds a dag.Graph from a catalog's DependsOn edges and
// returns a deterministic topological order. Edges to keys the catalog
// skipped (tests, missing catalog entries) are simply absent from the
// graph, per dag.Graph.AddEdge's no-op-on-unknown-node behavior.
func orderModels(cat *catalog.Catalog) ([]string, error) {
	g := dag.NewGraph()
	keys := cat.ModelKeys()
	for _, k := range keys {
		g.AddNode(k)
	}
	for _, k := range keys {
		for _, dep := range cat.Models[k].DependsOn {
			g.AddEdge(dep, k)
		}
	}
	return g.TopologicalSort()
}
