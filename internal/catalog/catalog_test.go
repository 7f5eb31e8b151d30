package catalog

import (
	"strings"
	"testing"

	"github.com/dataplatform-labs/columnlineage/internal/diagnostics"
	"github.com/stretchr/testify/require"
)

const manifestJSON = `{
  "nodes": {
    "model.analytics.orders_enriched": {
      "resource_type": "model",
      "database": "warehouse",
      "schema": "analytics",
      "name": "orders_enriched",
      "raw_code": "SELECT id FROM {{ ref('stg_orders') }}",
      "depends_on": {"nodes": ["model.analytics.stg_orders", "bogus_key"]}
    },
    "model.analytics.stg_orders": {
      "resource_type": "model",
      "database": "warehouse",
      "schema": "analytics",
      "name": "stg_orders",
      "raw_code": "SELECT * FROM {{ source('raw', 'orders') }}",
      "depends_on": {"nodes": ["source.analytics.raw.orders"]}
    },
    "test.analytics.not_null_orders_id": {
      "resource_type": "test",
      "database": "warehouse",
      "schema": "analytics",
      "name": "not_null_orders_id"
    },
    "model.analytics.missing_catalog_entry": {
      "resource_type": "model",
      "database": "warehouse",
      "schema": "analytics",
      "name": "missing_catalog_entry",
      "raw_code": "SELECT 1"
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
    "model.analytics.orders_enriched": {
      "metadata": {"database": "warehouse", "schema": "analytics", "name": "orders_enriched"},
      "columns": {"id": {"description": "surrogate key"}}
    },
    "model.analytics.stg_orders": {
      "metadata": {"database": "warehouse", "schema": "analytics", "name": "stg_orders"},
      "columns": {"id": {"description": "surrogate key"}, "amount": {"description": "order total"}}
    }
  },
  "sources": {
    "source.analytics.raw.orders": {
      "metadata": {"database": "warehouse", "schema": "raw", "name": "orders"},
      "columns": {"id": {"description": "surrogate key"}}
    }
  }
}`

func TestLoadBuildsModelsAndReferences(t *testing.T) {
	sink := diagnostics.NewSink()
	cat, err := Load(strings.NewReader(manifestJSON), strings.NewReader(catalogJSON), sink)
	require.NoError(t, err)

	require.Len(t, cat.Models, 2)
	stgOrders := cat.Models["model.analytics.stg_orders"]
	require.NotNil(t, stgOrders)
	require.Equal(t, "warehouse.analytics.stg_orders", stgOrders.QualifiedName())
	require.Equal(t, []string{"source.analytics.raw.orders"}, stgOrders.DependsOn)

	require.Equal(t, "warehouse.analytics.stg_orders", cat.References["ref:stg_orders"])
	require.Equal(t, "warehouse.raw.orders", cat.References["source:raw.orders"])

	for _, col := range stgOrders.Columns {
		if col.Name == "amount" {
			require.Equal(t, "order total", col.Description)
		}
	}
}

func TestLoadDiagnosesUnsupportedResourceType(t *testing.T) {
	sink := diagnostics.NewSink()
	_, err := Load(strings.NewReader(manifestJSON), strings.NewReader(catalogJSON), sink)
	require.NoError(t, err)

	found := false
	for _, d := range sink.All() {
		if d.Kind == diagnostics.UnsupportedResourceType && d.NodeKey == "test.analytics.not_null_orders_id" {
			found = true
		}
	}
	require.True(t, found, "expected an UnsupportedResourceType diagnostic for the test node")
}

func TestLoadDiagnosesMissingCatalogEntry(t *testing.T) {
	sink := diagnostics.NewSink()
	_, err := Load(strings.NewReader(manifestJSON), strings.NewReader(catalogJSON), sink)
	require.NoError(t, err)

	found := false
	for _, d := range sink.All() {
		if d.Kind == diagnostics.MissingCatalogEntry && d.NodeKey == "model.analytics.missing_catalog_entry" {
			found = true
		}
	}
	require.True(t, found)
}

func TestLoadDiagnosesEmptyColumns(t *testing.T) {
	manifest := `{
	  "nodes": {
	    "model.analytics.empty_model": {
	      "resource_type": "model",
	      "database": "warehouse",
	      "schema": "analytics",
	      "name": "empty_model",
	      "raw_code": "SELECT 1"
	    }
	  },
	  "sources": {}
	}`
	catalogDoc := `{
	  "nodes": {
	    "model.analytics.empty_model": {
	      "metadata": {"database": "warehouse", "schema": "analytics", "name": "empty_model"},
	      "columns": {}
	    }
	  },
	  "sources": {}
	}`

	sink := diagnostics.NewSink()
	cat, err := Load(strings.NewReader(manifest), strings.NewReader(catalogDoc), sink)
	require.NoError(t, err)

	require.Nil(t, cat.Models["model.analytics.empty_model"])

	found := false
	for _, d := range sink.All() {
		if d.Kind == diagnostics.EmptyColumns && d.NodeKey == "model.analytics.empty_model" {
			found = true
		}
	}
	require.True(t, found, "expected an EmptyColumns diagnostic for the columnless model")
}

func TestLoadReportsAmbiguousReferenceAndKeepsFirstMatch(t *testing.T) {
	manifest := `{
	  "nodes": {
	    "model.analytics.orders": {
	      "resource_type": "model",
	      "database": "warehouse",
	      "schema": "analytics",
	      "name": "orders",
	      "raw_code": "SELECT 1"
	    },
	    "model.reporting.orders": {
	      "resource_type": "model",
	      "database": "warehouse",
	      "schema": "reporting",
	      "name": "orders",
	      "raw_code": "SELECT 1"
	    }
	  },
	  "sources": {}
	}`
	catalogDoc := `{
	  "nodes": {
	    "model.analytics.orders": {
	      "metadata": {"database": "warehouse", "schema": "analytics", "name": "orders"},
	      "columns": {"id": {"description": "surrogate key"}}
	    },
	    "model.reporting.orders": {
	      "metadata": {"database": "warehouse", "schema": "reporting", "name": "orders"},
	      "columns": {"id": {"description": "surrogate key"}}
	    }
	  },
	  "sources": {}
	}`

	sink := diagnostics.NewSink()
	cat, err := Load(strings.NewReader(manifest), strings.NewReader(catalogDoc), sink)
	require.NoError(t, err)

	// Both models load despite the colliding ref() name; only the
	// ReferenceMap's "ref:orders" entry is contested.
	require.Len(t, cat.Models, 2)
	require.Equal(t, "warehouse.analytics.orders", cat.References["ref:orders"])

	found := false
	for _, d := range sink.All() {
		if d.Kind == diagnostics.AmbiguousReference && d.NodeKey == "model.reporting.orders" {
			found = true
		}
	}
	require.True(t, found, "expected an AmbiguousReference diagnostic for the colliding ref() name")
}

func TestLoadDiagnosesMalformedDependencyKey(t *testing.T) {
	sink := diagnostics.NewSink()
	_, err := Load(strings.NewReader(manifestJSON), strings.NewReader(catalogJSON), sink)
	require.NoError(t, err)

	found := false
	for _, d := range sink.All() {
		if d.Kind == diagnostics.MalformedDependencyKey && d.NodeKey == "model.analytics.orders_enriched" {
			found = true
		}
	}
	require.True(t, found)
}
