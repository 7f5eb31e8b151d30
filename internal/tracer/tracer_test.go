package tracer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dataplatform-labs/columnlineage/internal/diagnostics"
	"github.com/dataplatform-labs/columnlineage/pkg/sqlparser"
	"github.com/stretchr/testify/require"
)

func TestTraceSimpleRename(t *testing.T) {
	stmt, err := sqlparser.Parse(`
		WITH a AS (SELECT id FROM db.sch.raw)
		SELECT id AS customer_id FROM a
	`)
	require.NoError(t, err)

	sink := diagnostics.NewSink()
	rows := Trace("m", stmt, sink)
	require.Empty(t, sink.All())
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, "customer_id", row.FinalColumn)
	require.Equal(t, "db.sch.raw", row.SourceTable)
	require.Equal(t, "id", row.SourceColumns)
	require.Contains(t, row.Transformation, "ID")
}

func TestTraceStarExpansion(t *testing.T) {
	stmt, err := sqlparser.Parse(`
		WITH a AS (SELECT name, qty FROM db.sch.raw)
		SELECT * FROM a
	`)
	require.NoError(t, err)

	sink := diagnostics.NewSink()
	rows := Trace("m", stmt, sink)
	require.Empty(t, sink.All())
	require.Len(t, rows, 2)

	finals := []string{rows[0].FinalColumn, rows[1].FinalColumn}
	require.ElementsMatch(t, []string{"NAME", "QTY"}, finals)
	for _, row := range rows {
		require.Equal(t, "db.sch.raw", row.SourceTable)
	}
}

func TestTraceArithmetic(t *testing.T) {
	stmt, err := sqlparser.Parse(`
		WITH a AS (SELECT price, qty FROM db.sch.orders)
		SELECT price * qty AS revenue FROM a
	`)
	require.NoError(t, err)

	sink := diagnostics.NewSink()
	rows := Trace("m", stmt, sink)
	require.Empty(t, sink.All())
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, "revenue", row.FinalColumn)
	require.Equal(t, "price, qty", row.SourceColumns)
	require.Equal(t, "db.sch.orders", row.SourceTable)
	require.Contains(t, row.Transformation, "PRICE")
	require.Contains(t, row.Transformation, "QTY")
	require.Contains(t, row.Transformation, " * ")
}

func TestTraceDeepChainExceedsDepthCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("WITH c1 AS (SELECT x FROM db.sch.base)")
	for i := 2; i <= 11; i++ {
		fmt.Fprintf(&b, ", c%d AS (SELECT x FROM c%d)", i, i-1)
	}
	b.WriteString(" SELECT x FROM c11")

	stmt, err := sqlparser.Parse(b.String())
	require.NoError(t, err)

	sink := diagnostics.NewSink()
	rows := Trace("m", stmt, sink)
	require.Len(t, rows, 1)

	found := false
	for _, d := range sink.All() {
		if d.Kind == diagnostics.TraceDepthExceeded {
			found = true
		}
	}
	require.True(t, found, "expected a TraceDepthExceeded diagnostic for an 11-deep CTE chain")
}

func TestTraceCycleTerminatesWithoutHangingAndWithoutDepthDiagnostic(t *testing.T) {
	// A 2-cycle is caught by the visited-set long before the depth cap, so
	// it resolves quietly rather than emitting TraceDepthExceeded.
	stmt, err := sqlparser.Parse(`
		WITH c1 AS (SELECT x FROM c2), c2 AS (SELECT x FROM c1)
		SELECT x FROM c1
	`)
	require.NoError(t, err)

	sink := diagnostics.NewSink()
	rows := Trace("m", stmt, sink)
	require.Len(t, rows, 1)
}

func TestTraceNoWithClauseIsPassthrough(t *testing.T) {
	stmt, err := sqlparser.Parse(`SELECT id FROM db.sch.raw`)
	require.NoError(t, err)

	sink := diagnostics.NewSink()
	rows := Trace("m", stmt, sink)
	require.Empty(t, sink.All())
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, "id", row.FinalColumn)
	require.Equal(t, "id", row.SourceColumns)
	require.Equal(t, "db.sch.raw", row.SourceTable)
}

func TestTraceLiteralProjectionHasNoSourceColumns(t *testing.T) {
	stmt, err := sqlparser.Parse(`SELECT 1 AS x`)
	require.NoError(t, err)

	sink := diagnostics.NewSink()
	rows := Trace("m", stmt, sink)
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, "x", row.FinalColumn)
	require.Empty(t, row.SourceColumns)
	require.Equal(t, "constant", row.SourceTable)
}

func TestTraceAggregateWithDistinctPreservesFlag(t *testing.T) {
	stmt, err := sqlparser.Parse(`
		WITH a AS (SELECT id FROM db.sch.raw)
		SELECT COUNT(DISTINCT id) AS n FROM a
	`)
	require.NoError(t, err)

	sink := diagnostics.NewSink()
	rows := Trace("m", stmt, sink)
	require.Empty(t, sink.All())
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, "n", row.FinalColumn)
	require.Equal(t, "id", row.SourceColumns)
	require.Contains(t, row.Transformation, "DISTINCT")
	require.Contains(t, row.Transformation, "COUNT(")
}

func TestTraceTableStarAgainstBaseTableFallsBackToBaseAttribution(t *testing.T) {
	// T.* where T is a base table alias (not a CTE) survives expansion
	// unresolved; the tracer falls back to attributing it to the base table
	// the alias names.
	stmt, err := sqlparser.Parse(`
		WITH a AS (SELECT o.* FROM db.sch.orders o)
		SELECT id FROM a
	`)
	require.NoError(t, err)

	sink := diagnostics.NewSink()
	rows := Trace("m", stmt, sink)
	require.Len(t, rows, 1)
	require.Equal(t, "id", rows[0].FinalColumn)
	require.Equal(t, "db.sch.orders", rows[0].SourceTable)
}
