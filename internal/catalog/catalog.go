// Package catalog implements stage 1 of the pipeline: loading a dbt-shaped
// manifest.json + catalog.json pair into ModelRecords and a ReferenceMap.
// Field names and the unique_id shapes (`model.<pkg>.<name>`,
// `source.<pkg>.<src>.<name>`) are taken directly from
// original_source/create_manifest_catalog_ref.py, which builds the same
// reference_info structure from the same two files.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dataplatform-labs/columnlineage/internal/diagnostics"
	"github.com/dataplatform-labs/columnlineage/internal/normalize"
)

// ColumnRecord is one column of a model or source, as reported by
// catalog.json.
type ColumnRecord struct {
	Name        string
	Description string
}

// ModelRecord is a loaded, catalog-backed model ready for reference
// resolution. Non-model resource types (seeds, tests, snapshots, ...) never
// become ModelRecords; they are diagnosed and dropped at load time.
type ModelRecord struct {
	UniqueID  string
	Database  string
	Schema    string
	Name      string
	RawSQL    string
	Columns   []ColumnRecord
	DependsOn []string // validated unique_ids of models/sources this model references
}

// QualifiedName is the fully-qualified db.schema.name this model resolves
// to wherever `ref()` points at it.
func (m *ModelRecord) QualifiedName() string {
	return strings.Join([]string{m.Database, m.Schema, m.Name}, ".")
}

// ReferenceMap maps a ref()/source() key to the fully-qualified table name
// it resolves to. Keys are normalized and take the form "ref:<name>" or
// "source:<source_name>.<table_name>".
type ReferenceMap map[string]string

// RefKey builds the ReferenceMap key for a `{{ ref('name') }}` token.
func RefKey(name string) string {
	return "ref:" + normalize.Name(name)
}

// SourceKey builds the ReferenceMap key for a `{{ source('src', 'table') }}`
// token.
func SourceKey(sourceName, tableName string) string {
	return "source:" + normalize.Name(sourceName) + "." + normalize.Name(tableName)
}

// Catalog is the output of stage 1: every loadable model plus the reference
// map used by stage 2 to rewrite ref()/source() tokens.
type Catalog struct {
	Models     map[string]*ModelRecord // keyed by unique_id
	References ReferenceMap
	// Schemas maps a normalized fully-qualified table name to its column
	// names, for both models and sources. The star expander consults this
	// when a CTE's FROM target is a base table rather than another CTE.
	Schemas map[string][]string
	// Nodes maps a manifest unique_id (model or source) to the fully-qualified
	// name and catalog columns it resolved to. Stage 5 joins a model's
	// DependsOn against this to build that model's own full_name -> [columns]
	// reference map, the way create_manifest_catalog_ref.py builds
	// reference_info per node from its own dependencies.
	Nodes map[string]NodeInfo
}

// NodeInfo is what a dependency resolves to: the table it names and the
// columns catalog.json reports for it.
type NodeInfo struct {
	FullName string
	Columns  []string
}

// ModelKeys returns the catalog's model unique_ids in sorted order, for
// callers (internal/pipeline) that want deterministic iteration.
func (c *Catalog) ModelKeys() []string {
	keys := make([]string, 0, len(c.Models))
	for k := range c.Models {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type manifestDoc struct {
	Nodes   map[string]manifestNode `json:"nodes"`
	Sources map[string]manifestNode `json:"sources"`
}

type manifestNode struct {
	ResourceType string         `json:"resource_type"`
	Database     string         `json:"database"`
	Schema       string         `json:"schema"`
	Name         string         `json:"name"`
	SourceName   string         `json:"source_name"`
	RawCode      string         `json:"raw_code"`
	DependsOn    dependsOnBlock `json:"depends_on"`
}

type dependsOnBlock struct {
	Nodes []string `json:"nodes"`
}

type catalogDoc struct {
	Nodes   map[string]catalogNode `json:"nodes"`
	Sources map[string]catalogNode `json:"sources"`
}

type catalogNode struct {
	Metadata catalogMetadata          `json:"metadata"`
	Columns  map[string]catalogColumn `json:"columns"`
}

type catalogMetadata struct {
	Database string `json:"database"`
	Schema   string `json:"schema"`
	Name     string `json:"name"`
}

type catalogColumn struct {
	Description string `json:"description"`
}

// Load decodes a manifest and catalog document pair and builds a Catalog.
// Any node-level problem (unsupported resource type, missing catalog entry,
// empty catalog columns, malformed dependency key) is recorded on sink and
// the offending node or dependency edge is dropped rather than failing the
// whole load, per the pipeline's "never abort over one bad record" policy.
func Load(manifest, catalogFile io.Reader, sink *diagnostics.Sink) (*Catalog, error) {
	var mdoc manifestDoc
	if err := json.NewDecoder(manifest).Decode(&mdoc); err != nil {
		return nil, fmt.Errorf("catalog: decode manifest: %w", err)
	}
	var cdoc catalogDoc
	if err := json.NewDecoder(catalogFile).Decode(&cdoc); err != nil {
		return nil, fmt.Errorf("catalog: decode catalog: %w", err)
	}

	cat := &Catalog{
		Models:     make(map[string]*ModelRecord),
		References: make(ReferenceMap),
		Schemas:    make(map[string][]string),
		Nodes:      make(map[string]NodeInfo),
	}

	// Iteration runs over sorted unique_ids rather than the raw JSON-decoded
	// maps so that the "first encountered wins" tie-break below is
	// deterministic across runs.
	sourceIDs := make([]string, 0, len(mdoc.Sources))
	for uniqueID := range mdoc.Sources {
		sourceIDs = append(sourceIDs, uniqueID)
	}
	sort.Strings(sourceIDs)

	for _, uniqueID := range sourceIDs {
		src := mdoc.Sources[uniqueID]
		entry, ok := cdoc.Sources[uniqueID]
		db, schema, name := src.Database, src.Schema, src.Name
		if ok {
			db, schema, name = entry.Metadata.Database, entry.Metadata.Schema, entry.Metadata.Name
		}
		fqn := strings.Join([]string{db, schema, name}, ".")
		setReference(cat, sink, SourceKey(src.SourceName, src.Name), fqn, uniqueID)
		if ok {
			cols := columnNames(entry.Columns)
			cat.Schemas[normalize.Name(fqn)] = cols
			cat.Nodes[uniqueID] = NodeInfo{FullName: fqn, Columns: cols}
		}
	}

	nodeIDs := make([]string, 0, len(mdoc.Nodes))
	for uniqueID := range mdoc.Nodes {
		nodeIDs = append(nodeIDs, uniqueID)
	}
	sort.Strings(nodeIDs)

	for _, uniqueID := range nodeIDs {
		node := mdoc.Nodes[uniqueID]
		if node.ResourceType != "model" {
			sink.Addf(diagnostics.UnsupportedResourceType, diagnostics.SeverityModel, uniqueID,
				"resource_type %q is not traced", node.ResourceType)
			continue
		}

		entry, ok := cdoc.Nodes[uniqueID]
		if !ok {
			sink.Addf(diagnostics.MissingCatalogEntry, diagnostics.SeverityModel, uniqueID,
				"no catalog.json entry for model %q", node.Name)
			continue
		}
		if len(entry.Columns) == 0 {
			sink.Addf(diagnostics.EmptyColumns, diagnostics.SeverityModel, uniqueID,
				"no columns found for model %q in catalog", node.Name)
			continue
		}

		record := &ModelRecord{
			UniqueID: uniqueID,
			Database: entry.Metadata.Database,
			Schema:   entry.Metadata.Schema,
			Name:     entry.Metadata.Name,
			RawSQL:   node.RawCode,
		}
		for colName, col := range entry.Columns {
			record.Columns = append(record.Columns, ColumnRecord{Name: colName, Description: col.Description})
		}
		sort.Slice(record.Columns, func(i, j int) bool { return record.Columns[i].Name < record.Columns[j].Name })

		for _, dep := range node.DependsOn.Nodes {
			if !validDependencyKey(dep) {
				sink.Addf(diagnostics.MalformedDependencyKey, diagnostics.SeverityModel, uniqueID,
					"dependency key %q does not match model.<pkg>.<name> or source.<pkg>.<src>.<name>", dep)
				continue
			}
			record.DependsOn = append(record.DependsOn, dep)
		}

		cols := columnNames(entry.Columns)
		cat.Models[uniqueID] = record
		setReference(cat, sink, RefKey(record.Name), record.QualifiedName(), uniqueID)
		cat.Schemas[normalize.Name(record.QualifiedName())] = cols
		cat.Nodes[uniqueID] = NodeInfo{FullName: record.QualifiedName(), Columns: cols}
	}

	return cat, nil
}

// setReference records a ReferenceMap entry, honoring the resolver's
// "first encountered wins" tie-break: a key that already resolves to a
// different full_name is left untouched and reported as ambiguous rather
// than silently overwritten.
func setReference(cat *Catalog, sink *diagnostics.Sink, key, fqn, nodeKey string) {
	if existing, ok := cat.References[key]; ok {
		if existing != fqn {
			sink.Addf(diagnostics.AmbiguousReference, diagnostics.SeverityModel, nodeKey,
				"reference key %q already resolves to %q; keeping it over %q", key, existing, fqn)
		}
		return
	}
	cat.References[key] = fqn
}

func columnNames(cols map[string]catalogColumn) []string {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validDependencyKey checks a unique_id against the two shapes the pipeline
// understands: `model.<pkg>.<name>` (3 parts) or
// `source.<pkg>.<src>.<name>` (4 parts).
func validDependencyKey(key string) bool {
	parts := strings.Split(key, ".")
	switch parts[0] {
	case "model":
		return len(parts) == 3 && allNonEmpty(parts)
	case "source":
		return len(parts) == 4 && allNonEmpty(parts)
	default:
		return false
	}
}

func allNonEmpty(parts []string) bool {
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
