package sqlprint

import (
	"fmt"
	"strings"

	"github.com/dataplatform-labs/columnlineage/pkg/sqlast"
)

// Statement renders a full SELECT statement, WITH clause included, as
// pretty-printed, upper-cased SQL text — the form ExpandedSql is reported
// in, matching the reference implementation's `parsed.sql(pretty=True).upper()`.
func Statement(stmt *sqlast.SelectStmt) string {
	var b strings.Builder
	writeStatement(&b, stmt, 0)
	return strings.ToUpper(b.String())
}

func writeStatement(b *strings.Builder, stmt *sqlast.SelectStmt, indent int) {
	pad := strings.Repeat("  ", indent)
	if stmt.With != nil && len(stmt.With.CTEs) > 0 {
		b.WriteString(pad)
		b.WriteString("WITH\n")
		for i, cte := range stmt.With.CTEs {
			fmt.Fprintf(b, "%s  %s AS (\n", pad, strings.ToUpper(cte.Name))
			writeStatement(b, cte.Select, indent+2)
			fmt.Fprintf(b, "\n%s  )", pad)
			if i < len(stmt.With.CTEs)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
	}
	writeCore(b, stmt.Core, indent)
}

func writeCore(b *strings.Builder, core *sqlast.SelectCore, indent int) {
	pad := strings.Repeat("  ", indent)
	b.WriteString(pad)
	b.WriteString("SELECT")
	if core.Distinct {
		b.WriteString(" DISTINCT")
	}
	b.WriteString("\n")
	for i, item := range core.Items {
		fmt.Fprintf(b, "%s  %s", pad, renderSelectItem(item))
		if i < len(core.Items)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	if core.From != nil {
		fmt.Fprintf(b, "%sFROM %s", pad, renderTableRef(core.From.Source))
	}
}

func renderSelectItem(item sqlast.SelectItem) string {
	switch {
	case item.Star:
		return "*"
	case item.TableStar != "":
		return item.TableStar + ".*"
	}
	s := Expr(item.Expr)
	if item.Alias != "" {
		s += " AS " + item.Alias
	}
	return s
}

func renderTableRef(ref sqlast.TableRef) string {
	switch n := ref.(type) {
	case *sqlast.TableName:
		s := n.QualifiedName()
		if n.Alias != "" {
			s += " AS " + n.Alias
		}
		return s
	case *sqlast.DerivedTable:
		s := "(" + Statement(n.Select) + ")"
		if n.Alias != "" {
			s += " AS " + n.Alias
		}
		return s
	default:
		return fmt.Sprintf("<unprintable %T>", ref)
	}
}
