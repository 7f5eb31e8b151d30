package refresolve

import (
	"testing"

	"github.com/dataplatform-labs/columnlineage/internal/catalog"
	"github.com/dataplatform-labs/columnlineage/internal/diagnostics"
	"github.com/stretchr/testify/require"
)

func TestResolveSubstitutesRefAndSource(t *testing.T) {
	refs := catalog.ReferenceMap{
		catalog.RefKey("stg_orders"):       "warehouse.analytics.stg_orders",
		catalog.SourceKey("raw", "orders"): "warehouse.raw.orders",
	}
	sink := diagnostics.NewSink()
	r := New()

	out := r.Resolve("model.analytics.orders_enriched",
		"SELECT id FROM {{ ref('stg_orders') }} JOIN {{  source( 'raw' , 'orders' )  }} USING (id)",
		refs, sink)

	require.Equal(t, "SELECT id FROM warehouse.analytics.stg_orders JOIN warehouse.raw.orders USING (id)", out.SQL)
	require.Empty(t, sink.All())
}

func TestResolveDiagnosesUnresolvedRef(t *testing.T) {
	sink := diagnostics.NewSink()
	r := New()

	out := r.Resolve("model.analytics.x", "SELECT * FROM {{ ref('missing') }}", catalog.ReferenceMap{}, sink)

	require.Contains(t, out.SQL, "{{ ref('missing') }}")
	require.Len(t, sink.All(), 1)
	require.Equal(t, diagnostics.UnresolvedReference, sink.All()[0].Kind)
}
