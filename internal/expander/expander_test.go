package expander

import (
	"testing"

	"github.com/dataplatform-labs/columnlineage/internal/diagnostics"
	"github.com/dataplatform-labs/columnlineage/pkg/sqlast"
	"github.com/dataplatform-labs/columnlineage/pkg/sqlparser"
	"github.com/stretchr/testify/require"
)

func TestExpandBareStarAgainstBaseTable(t *testing.T) {
	stmt, err := sqlparser.Parse(`
		WITH base AS (
			SELECT * FROM warehouse.raw.orders
		)
		SELECT * FROM base
	`)
	require.NoError(t, err)

	schemas := map[string][]string{"warehouse.raw.orders": {"id", "amount"}}
	sink := diagnostics.NewSink()
	res, ok := New().Expand("m", stmt, schemas, sink)
	require.True(t, ok)
	require.Empty(t, sink.All())

	base := stmt.With.CTEs[0].Select.Core
	require.Len(t, base.Items, 2)
	require.Equal(t, "id", base.Items[0].Expr.(*sqlast.ColumnRef).Column)
	require.Equal(t, "amount", base.Items[1].Expr.(*sqlast.ColumnRef).Column)

	require.Len(t, res.Stmt.Core.Items, 2)
}

func TestOuterStarTiesToLastDeclaredCTE(t *testing.T) {
	// The outer SELECT's FROM names `base`, but per the documented
	// deviation its bare `*` expands against `totals` — the CTE declared
	// last — not against `base`.
	stmt, err := sqlparser.Parse(`
		WITH base AS (
			SELECT id, amount FROM warehouse.raw.orders
		),
		totals AS (
			SELECT id, amount AS total FROM base
		)
		SELECT * FROM base
	`)
	require.NoError(t, err)

	schemas := map[string][]string{"warehouse.raw.orders": {"id", "amount"}}
	sink := diagnostics.NewSink()
	res, ok := New().Expand("m", stmt, schemas, sink)
	require.True(t, ok)

	require.Len(t, res.Stmt.Core.Items, 2)
	require.Equal(t, "id", res.Stmt.Core.Items[0].Expr.(*sqlast.ColumnRef).Column)
	require.Equal(t, "total", res.Stmt.Core.Items[1].Expr.(*sqlast.ColumnRef).Column)
}

func TestTableStarAgainstBaseTableLeftUnexpanded(t *testing.T) {
	stmt, err := sqlparser.Parse(`
		WITH base AS (
			SELECT o.* FROM warehouse.raw.orders o
		)
		SELECT id FROM base
	`)
	require.NoError(t, err)

	schemas := map[string][]string{"warehouse.raw.orders": {"id", "amount"}}
	sink := diagnostics.NewSink()
	_, ok := New().Expand("m", stmt, schemas, sink)
	require.True(t, ok)

	base := stmt.With.CTEs[0].Select.Core
	require.Len(t, base.Items, 1)
	require.Equal(t, "o", base.Items[0].TableStar, "unresolvable table.* is left as-is")
}

func TestExpandDiagnosesNoWithClause(t *testing.T) {
	stmt, err := sqlparser.Parse("SELECT * FROM warehouse.raw.orders")
	require.NoError(t, err)

	sink := diagnostics.NewSink()
	_, ok := New().Expand("m", stmt, nil, sink)
	require.False(t, ok)
	require.Len(t, sink.All(), 1)
	require.Equal(t, diagnostics.NoWithClause, sink.All()[0].Kind)
}

func TestExpandDiagnosesUnknownSource(t *testing.T) {
	stmt, err := sqlparser.Parse(`
		WITH base AS (SELECT * FROM nowhere.missing.table)
		SELECT * FROM base
	`)
	require.NoError(t, err)

	sink := diagnostics.NewSink()
	_, ok := New().Expand("m", stmt, map[string][]string{}, sink)
	require.False(t, ok)
	require.Equal(t, diagnostics.UnknownSource, sink.All()[0].Kind)
}
