package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dataplatform-labs/columnlineage/internal/catalog"
	"github.com/dataplatform-labs/columnlineage/internal/diagnostics"
)

const manifestJSON = `{
  "nodes": {
    "model.analytics.stg_orders": {
      "resource_type": "model",
      "database": "warehouse",
      "schema": "analytics",
      "name": "stg_orders",
      "raw_code": "SELECT id FROM {{ source('raw', 'orders') }}",
      "depends_on": {"nodes": ["source.analytics.raw.orders"]}
    },
    "model.analytics.orders_enriched": {
      "resource_type": "model",
      "database": "warehouse",
      "schema": "analytics",
      "name": "orders_enriched",
      "raw_code": "WITH a AS (SELECT id FROM {{ ref('stg_orders') }}) SELECT id AS customer_id FROM a",
      "depends_on": {"nodes": ["model.analytics.stg_orders"]}
    },
    "model.analytics.broken": {
      "resource_type": "model",
      "database": "warehouse",
      "schema": "analytics",
      "name": "broken",
      "raw_code": "SELECT id FROM {{ ref('missing') }}"
    }
  },
  "sources": {
    "source.analytics.raw.orders": {
      "database": "warehouse",
      "schema": "raw",
      "name": "orders",
      "source_name": "raw"
    }
  }
}`

const catalogJSON = `{
  "nodes": {
    "model.analytics.stg_orders": {
      "metadata": {"database": "warehouse", "schema": "analytics", "name": "stg_orders"},
      "columns": {"id": {"description": "surrogate key"}}
    },
    "model.analytics.orders_enriched": {
      "metadata": {"database": "warehouse", "schema": "analytics", "name": "orders_enriched"},
      "columns": {"customer_id": {"description": "renamed surrogate key"}}
    },
    "model.analytics.broken": {
      "metadata": {"database": "warehouse", "schema": "analytics", "name": "broken"},
      "columns": {"id": {"description": "unreachable"}}
    }
  },
  "sources": {
    "source.analytics.raw.orders": {
      "metadata": {"database": "warehouse", "schema": "raw", "name": "orders"},
      "columns": {"id": {"description": "surrogate key"}}
    }
  }
}`

func loadTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	sink := diagnostics.NewSink()
	cat, err := catalog.Load(strings.NewReader(manifestJSON), strings.NewReader(catalogJSON), sink)
	require.NoError(t, err)
	return cat
}

func TestRunTracesEveryModelAndAttachesIdentity(t *testing.T) {
	cat := loadTestCatalog(t)
	result, err := Run(context.Background(), cat, 2, nil)
	require.NoError(t, err)

	require.Equal(t, 2, result.Summary.ModelsProcessed)
	require.Equal(t, 1, result.Summary.ModelsSkipped)
	require.Equal(t, len(result.Rows), result.Summary.RowsEmitted)

	var enrichedRow *Row
	for i := range result.Rows {
		if result.Rows[i].Table == "orders_enriched" {
			enrichedRow = &result.Rows[i]
		}
	}
	require.NotNil(t, enrichedRow)
	require.Equal(t, "warehouse", enrichedRow.Database)
	require.Equal(t, "analytics", enrichedRow.Schema)
	require.Equal(t, "customer_id", enrichedRow.FinalColumn)
	require.Equal(t, "warehouse.analytics.orders_enriched.customer_id", enrichedRow.UniqueKey)
	require.Equal(t, "renamed surrogate key", enrichedRow.ColumnDescription)
	require.Equal(t, "model", enrichedRow.ResourceType)
	require.Equal(t, "warehouse.analytics.stg_orders", enrichedRow.SourceTable)
	require.NotEmpty(t, enrichedRow.ExpandedSQL)
	require.NotEmpty(t, enrichedRow.RawSQL)

	var refs map[string][]string
	require.NoError(t, json.Unmarshal([]byte(enrichedRow.Reference), &refs))
	require.Equal(t, []string{"id"}, refs["warehouse.analytics.stg_orders"])
}

func TestRunSkipsUnresolvedReferenceWithoutAbortingOtherModels(t *testing.T) {
	cat := loadTestCatalog(t)
	result, err := Run(context.Background(), cat, 1, nil)
	require.NoError(t, err)

	foundUnresolved := false
	foundParseFailure := false
	for _, d := range result.Sink.All() {
		if d.Kind == diagnostics.UnresolvedReference && d.NodeKey == "model.analytics.broken" {
			foundUnresolved = true
		}
		if d.Kind == diagnostics.ParseFailure && d.NodeKey == "model.analytics.broken" {
			foundParseFailure = true
		}
	}
	require.True(t, foundUnresolved, "expected an UnresolvedReference diagnostic for the broken model")
	require.True(t, foundParseFailure, "expected a ParseFailure diagnostic once the unresolved token fails to parse")

	for _, row := range result.Rows {
		require.NotEqual(t, "broken", row.Table)
	}
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	cat := loadTestCatalog(t)
	single, err := Run(context.Background(), cat, 1, nil)
	require.NoError(t, err)
	many, err := Run(context.Background(), cat, 8, nil)
	require.NoError(t, err)

	require.Equal(t, len(single.Rows), len(many.Rows))
	require.Equal(t, single.Summary.ModelsProcessed, many.Summary.ModelsProcessed)
	require.Equal(t, single.Summary.ModelsSkipped, many.Summary.ModelsSkipped)
}
