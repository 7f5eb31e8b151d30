// Package sqlprint renders sqlast nodes back to SQL text, grounded on the
// teacher project's format.Printer. Expr renders a single expression on one
// line — the form the tracer reports each rewritten transformation in — and
// Statement (statement.go) renders a full statement as multi-line,
// upper-cased text, the form ExpandedSql is reported in.
package sqlprint

import (
	"fmt"
	"strings"

	"github.com/dataplatform-labs/columnlineage/pkg/sqlast"
)

// Expr renders a single expression to single-line SQL text with keywords,
// function names, identifiers and type names upper-cased; string literal
// values and RawExpr text are written as they appear in the source.
func Expr(e sqlast.Expr) string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

func writeExpr(b *strings.Builder, e sqlast.Expr) {
	switch n := e.(type) {
	case nil:
		return
	case *sqlast.ColumnRef:
		if n.Table != "" {
			fmt.Fprintf(b, "%s.%s", strings.ToUpper(n.Table), strings.ToUpper(n.Column))
		} else {
			b.WriteString(strings.ToUpper(n.Column))
		}
	case *sqlast.Identifier:
		b.WriteString(strings.ToUpper(n.Name))
	case *sqlast.Literal:
		switch n.Kind {
		case sqlast.LiteralString:
			fmt.Fprintf(b, "'%s'", n.Value)
		default:
			b.WriteString(n.Value)
		}
	case *sqlast.BooleanLiteral:
		if n.Value {
			b.WriteString("TRUE")
		} else {
			b.WriteString("FALSE")
		}
	case *sqlast.ParenExpr:
		b.WriteByte('(')
		writeExpr(b, n.Expr)
		b.WriteByte(')')
	case *sqlast.UnaryExpr:
		b.WriteString(keyword(n.Op))
		if n.Op != "-" {
			b.WriteByte(' ')
		}
		writeExpr(b, n.Expr)
	case *sqlast.BinaryExpr:
		writeExpr(b, n.Left)
		fmt.Fprintf(b, " %s ", n.Op)
		writeExpr(b, n.Right)
	case *sqlast.FuncCall:
		b.WriteString(strings.ToUpper(n.Name))
		b.WriteByte('(')
		if n.Star {
			b.WriteByte('*')
		} else {
			if n.Distinct {
				b.WriteString("DISTINCT ")
			}
			for i, a := range n.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				writeExpr(b, a)
			}
		}
		b.WriteByte(')')
	case *sqlast.CaseExpr:
		b.WriteString("CASE")
		for _, w := range n.Whens {
			b.WriteString(" WHEN ")
			writeExpr(b, w.Cond)
			b.WriteString(" THEN ")
			writeExpr(b, w.Result)
		}
		if n.Else != nil {
			b.WriteString(" ELSE ")
			writeExpr(b, n.Else)
		}
		b.WriteString(" END")
	case *sqlast.CastExpr:
		b.WriteString("CAST(")
		writeExpr(b, n.Expr)
		b.WriteString(" AS ")
		b.WriteString(strings.ToUpper(n.Type))
		b.WriteByte(')')
	case *sqlast.CoalesceExpr:
		b.WriteString("COALESCE(")
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, a)
		}
		b.WriteByte(')')
	case *sqlast.TimestampTruncExpr:
		b.WriteString("TIMESTAMP_TRUNC(")
		writeExpr(b, n.Expr)
		fmt.Fprintf(b, ", %s", strings.ToUpper(n.Unit))
		if n.Zone != "" {
			fmt.Fprintf(b, ", %s", strings.ToUpper(n.Zone))
		}
		b.WriteByte(')')
	case *sqlast.RawExpr:
		b.WriteString(n.Text)
	default:
		fmt.Fprintf(b, "<unprintable %T>", e)
	}
}

func keyword(op string) string {
	if op == "-" {
		return op
	}
	return strings.ToUpper(op)
}
