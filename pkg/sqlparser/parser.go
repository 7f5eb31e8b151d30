// Package sqlparser is a small recursive-descent parser for the subset of
// SQL the lineage pipeline needs to understand: WITH/CTE, SELECT
// projections, a single FROM target (joins are recognized but not modeled,
// since multi-source FROM lineage is a documented Non-goal), and the
// expression forms the tracer dispatches on (column refs, literals,
// arithmetic/comparison, CASE, CAST, COALESCE, TIMESTAMP_TRUNC, and
// aggregate calls). Everything past a FROM clause that cannot affect column
// provenance — WHERE, GROUP BY, HAVING, ORDER BY, LIMIT/OFFSET — is scanned
// past rather than parsed into a clause node.
package sqlparser

import (
	"fmt"

	"github.com/dataplatform-labs/columnlineage/pkg/sqlast"
)

// ParseError reports a syntactic error with the byte offset it occurred at.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sqlparser: parse error at %d: %s", e.Pos, e.Message)
}

var fromBoundary = map[string]bool{
	"JOIN": true, "LEFT": true, "RIGHT": true, "INNER": true, "FULL": true,
	"CROSS": true, "NATURAL": true, "ON": true, "USING": true,
	"WHERE": true, "GROUP": true, "HAVING": true, "ORDER": true,
	"LIMIT": true, "OFFSET": true, "UNION": true, "QUALIFY": true, "WINDOW": true,
}

var selectItemBoundary = map[string]bool{
	"FROM": true, "WHERE": true, "GROUP": true, "HAVING": true, "ORDER": true,
	"LIMIT": true, "OFFSET": true, "UNION": true, "QUALIFY": true, "WINDOW": true,
	"AS": true,
}

var joinKeyword = map[string]bool{
	"JOIN": true, "LEFT": true, "RIGHT": true, "INNER": true, "FULL": true, "CROSS": true, "NATURAL": true,
}

// Parse parses a single SELECT statement (optionally preceded by a WITH
// clause). Trailing clauses the tracer never consults (WHERE, GROUP BY,
// ORDER BY, LIMIT, ...) are accepted and discarded.
func Parse(sql string) (*sqlast.SelectStmt, error) {
	p, err := newParser(sql)
	if err != nil {
		return nil, err
	}
	stmt, err := p.parseSelectStmt()
	if err != nil {
		return nil, err
	}
	p.skipToTerminator()
	if p.peek().kind != eofKind {
		return nil, p.errorf("unexpected trailing input")
	}
	return stmt, nil
}

type parser struct {
	toks []token
	pos  int
	src  string
}

func newParser(src string) (*parser, error) {
	lx := newLexer(src)
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == eofKind {
			break
		}
	}
	return &parser{toks: toks, src: src}, nil
}

func (p *parser) peek() token      { return p.toks[p.pos] }
func (p *parser) peekAt(n int) token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}
func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}
func (p *parser) peekKind(k tokenKind) bool { return p.peek().kind == k }
func (p *parser) peekKeyword(kw string) bool {
	t := p.peek()
	return t.kind == identKind && t.upper() == kw
}
func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Pos: p.peek().pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expectIdent() (string, error) {
	t := p.peek()
	if t.kind != identKind {
		return "", p.errorf("expected identifier, got %q", t.text)
	}
	p.next()
	return t.text, nil
}

func (p *parser) expect(k tokenKind, desc string) error {
	if !p.peekKind(k) {
		return p.errorf("expected %s", desc)
	}
	p.next()
	return nil
}

// parseSelectStmt parses [WITH ctes] SELECT ... and stops right after the
// FROM clause / its trailing skip, without requiring the caller's enclosing
// parens to already be consumed.
func (p *parser) parseSelectStmt() (*sqlast.SelectStmt, error) {
	stmt := &sqlast.SelectStmt{}
	if p.peekKeyword("WITH") {
		p.next()
		with, err := p.parseWithClause()
		if err != nil {
			return nil, err
		}
		stmt.With = with
	}
	if !p.peekKeyword("SELECT") {
		return nil, p.errorf("expected SELECT")
	}
	p.next()
	core, err := p.parseSelectCore()
	if err != nil {
		return nil, err
	}
	stmt.Core = core
	return stmt, nil
}

func (p *parser) parseWithClause() (*sqlast.WithClause, error) {
	if p.peekKeyword("RECURSIVE") {
		p.next()
	}
	with := &sqlast.WithClause{}
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if !p.peekKeyword("AS") {
			return nil, p.errorf("expected AS in CTE definition")
		}
		p.next()
		if err := p.expect(lparenKind, "("); err != nil {
			return nil, err
		}
		inner, err := p.parseSelectStmt()
		if err != nil {
			return nil, err
		}
		p.skipToTerminator()
		if err := p.expect(rparenKind, ")"); err != nil {
			return nil, err
		}
		with.CTEs = append(with.CTEs, &sqlast.CTE{Name: name, Select: inner})
		if p.peekKind(commaKind) {
			p.next()
			continue
		}
		break
	}
	return with, nil
}

func (p *parser) parseSelectCore() (*sqlast.SelectCore, error) {
	core := &sqlast.SelectCore{}
	if p.peekKeyword("DISTINCT") {
		p.next()
		core.Distinct = true
	} else if p.peekKeyword("ALL") {
		p.next()
	}

	items, err := p.parseSelectItems()
	if err != nil {
		return nil, err
	}
	core.Items = items

	if p.peekKeyword("FROM") {
		p.next()
		from, err := p.parseFromClause()
		if err != nil {
			return nil, err
		}
		core.From = from
	}
	return core, nil
}

func (p *parser) parseSelectItems() ([]sqlast.SelectItem, error) {
	var items []sqlast.SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.peekKind(commaKind) {
			p.next()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseSelectItem() (sqlast.SelectItem, error) {
	if p.peekKind(starKind) {
		p.next()
		return sqlast.SelectItem{Star: true}, nil
	}
	if p.peek().kind == identKind && p.peekAt(1).kind == dotKind && p.peekAt(2).kind == starKind {
		tbl := p.next().text
		p.next() // dot
		p.next() // star
		return sqlast.SelectItem{TableStar: tbl}, nil
	}

	expr, err := p.parseExpr()
	if err != nil {
		return sqlast.SelectItem{}, err
	}
	item := sqlast.SelectItem{Expr: expr}

	if p.peekKeyword("AS") {
		p.next()
		alias, err := p.expectIdent()
		if err != nil {
			return sqlast.SelectItem{}, err
		}
		item.Alias = alias
	} else if p.peek().kind == identKind && !selectItemBoundary[p.peek().upper()] {
		item.Alias = p.next().text
	}
	return item, nil
}

func (p *parser) parseFromClause() (*sqlast.FromClause, error) {
	src, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	from := &sqlast.FromClause{Source: src}
	if p.peekKind(commaKind) || p.peekJoinKeyword() {
		// A second source is joined in. Its exact shape does not matter: a
		// multi-source CTE FROM is an unsupported shape the expander
		// diagnoses rather than guesses at, so we record only that a join
		// happened.
		from.Joins = append(from.Joins, &sqlast.Join{})
	}
	return from, nil
}

func (p *parser) peekJoinKeyword() bool {
	t := p.peek()
	return t.kind == identKind && joinKeyword[t.upper()]
}

func (p *parser) parseTableRef() (sqlast.TableRef, error) {
	if p.peekKind(lparenKind) {
		p.next()
		inner, err := p.parseSelectStmt()
		if err != nil {
			return nil, err
		}
		p.skipToTerminator()
		if err := p.expect(rparenKind, ")"); err != nil {
			return nil, err
		}
		dt := &sqlast.DerivedTable{Select: inner}
		dt.Alias = p.parseOptionalTableAlias()
		return dt, nil
	}

	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	tn := &sqlast.TableName{Name: name}
	for p.peekKind(dotKind) {
		p.next()
		part, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		tn.Catalog = tn.Schema
		tn.Schema = tn.Name
		tn.Name = part
	}
	tn.Alias = p.parseOptionalTableAlias()
	return tn, nil
}

func (p *parser) parseOptionalTableAlias() string {
	if p.peekKeyword("AS") {
		p.next()
		if p.peek().kind == identKind {
			return p.next().text
		}
		return ""
	}
	if p.peek().kind == identKind && !fromBoundary[p.peek().upper()] {
		return p.next().text
	}
	return ""
}

// skipToTerminator discards tokens up to (but not including) the next
// unbalanced ')' or end of input. It is used after a SELECT core's FROM
// clause to pass over WHERE/GROUP BY/HAVING/ORDER BY/LIMIT/OFFSET and any
// join tails, none of which affect column provenance, and again after a
// CTE/derived-table body to land exactly on its closing paren.
func (p *parser) skipToTerminator() {
	depth := 0
	for {
		t := p.peek()
		if t.kind == eofKind {
			return
		}
		if t.kind == rparenKind {
			if depth == 0 {
				return
			}
			depth--
			p.next()
			continue
		}
		if t.kind == lparenKind {
			depth++
		}
		p.next()
	}
}
