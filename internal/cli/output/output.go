// Package output renders pipeline results for the CLI, in text/table form
// via github.com/jedib0t/go-pretty/v6/table (already a teacher dependency,
// used the same way the teacher's commands/query_render.go renders query
// results) or as JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dataplatform-labs/columnlineage/internal/diagnostics"
	"github.com/dataplatform-labs/columnlineage/internal/pipeline"
)

// Mode selects the rendering format.
type Mode string

const (
	ModeTable Mode = "table"
	ModeJSON  Mode = "json"
)

// Rows renders a pipeline run's lineage rows to w in the requested mode.
func Rows(w io.Writer, rows []pipeline.Row, mode Mode) error {
	if mode == ModeJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	return rowsTable(w, rows)
}

func rowsTable(w io.Writer, rows []pipeline.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Final Column", "Source Table", "Source Columns", "Transformation"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Table, r.FinalColumn, r.SourceTable, r.SourceColumns, r.Transformation})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

// Diagnostics renders a diagnostic stream to w in the requested mode.
func Diagnostics(w io.Writer, diags []diagnostics.Diagnostic, mode Mode) error {
	if mode == ModeJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(diags)
	}
	return diagnosticsTable(w, diags)
}

func diagnosticsTable(w io.Writer, diags []diagnostics.Diagnostic) error {
	if len(diags) == 0 {
		_, _ = fmt.Fprintln(w, "(0 diagnostics)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Severity", "Kind", "Node", "Message"})
	for _, d := range diags {
		t.AppendRow(table.Row{d.Severity, d.Kind, d.NodeKey, d.Message})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d diagnostics)\n", len(diags))
	return nil
}

// Summary renders a run summary to w in the requested mode.
func Summary(w io.Writer, summary pipeline.RunSummary, mode Mode) error {
	if mode == ModeJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	_, err := fmt.Fprintf(w, "run %s: %d models processed, %d skipped, %d rows emitted\n",
		summary.RunID, summary.ModelsProcessed, summary.ModelsSkipped, summary.RowsEmitted)
	return err
}
