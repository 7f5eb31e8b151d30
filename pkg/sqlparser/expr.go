package sqlparser

import (
	"strings"

	"github.com/dataplatform-labs/columnlineage/pkg/sqlast"
)

// parseExpr parses a full expression, including the logical operators
// (OR/AND/NOT) and the postfix predicates (IS [NOT] NULL, IN, BETWEEN, LIKE)
// that can appear in a CASE WHEN condition. Those predicates are not part of
// the tracer's dispatch table (§4.4 only defines arithmetic/comparison,
// aggregates, CASE, CAST, COALESCE, TIMESTAMP_TRUNC), so rather than model
// them as dedicated AST nodes they collapse to a RawExpr capturing their
// source text — the tracer's default case already treats such expressions
// as column-free, matching the reference implementation's fallback branch.
func (p *parser) parseExpr() (sqlast.Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (sqlast.Expr, error) {
	start := p.peek().pos
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peekKeyword("OR") {
		p.next()
		if _, err := p.parseAnd(); err != nil {
			return nil, err
		}
		left = p.rawSince(start)
	}
	return left, nil
}

func (p *parser) parseAnd() (sqlast.Expr, error) {
	start := p.peek().pos
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peekKeyword("AND") {
		p.next()
		if _, err := p.parseNot(); err != nil {
			return nil, err
		}
		left = p.rawSince(start)
	}
	return left, nil
}

func (p *parser) parseNot() (sqlast.Expr, error) {
	start := p.peek().pos
	if p.peekKeyword("NOT") {
		p.next()
		if _, err := p.parseNot(); err != nil {
			return nil, err
		}
		return p.rawSince(start), nil
	}
	return p.parseComparisonFrom(start)
}

var comparisonOps = map[tokenKind]string{
	eqKind: "=", neqKind: "!=", ltKind: "<", leKind: "<=", gtKind: ">", geKind: ">=",
}

func (p *parser) parseComparisonFrom(start int) (sqlast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonOps[p.peek().kind]; ok {
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Left: left, Op: op, Right: right}
	}
	return p.parsePredicateSuffix(left, start)
}

// parsePredicateSuffix consumes IS [NOT] NULL / IN (...) / BETWEEN x AND y /
// [NOT] LIKE pattern following an already-parsed expression, collapsing the
// whole thing (from start) to a RawExpr when present.
func (p *parser) parsePredicateSuffix(left sqlast.Expr, start int) (sqlast.Expr, error) {
	switch {
	case p.peekKeyword("IS"):
		p.next()
		if p.peekKeyword("NOT") {
			p.next()
		}
		if !p.peekKeyword("NULL") && !p.peekKeyword("TRUE") && !p.peekKeyword("FALSE") {
			return nil, p.errorf("expected NULL/TRUE/FALSE after IS")
		}
		p.next()
		return p.rawSince(start), nil
	case p.peekKeyword("NOT"):
		p.next()
		return p.finishInBetweenLike(start)
	case p.peekKeyword("IN") || p.peekKeyword("BETWEEN") || p.peekKeyword("LIKE"):
		return p.finishInBetweenLike(start)
	}
	return left, nil
}

func (p *parser) finishInBetweenLike(mark int) (sqlast.Expr, error) {
	switch {
	case p.peekKeyword("IN"):
		p.next()
		if err := p.expect(lparenKind, "("); err != nil {
			return nil, err
		}
		depth := 1
		for depth > 0 {
			t := p.peek()
			if t.kind == eofKind {
				return nil, p.errorf("unterminated IN list")
			}
			if t.kind == lparenKind {
				depth++
			}
			if t.kind == rparenKind {
				depth--
			}
			p.next()
		}
	case p.peekKeyword("BETWEEN"):
		p.next()
		if _, err := p.parseAdditive(); err != nil {
			return nil, err
		}
		if !p.peekKeyword("AND") {
			return nil, p.errorf("expected AND in BETWEEN")
		}
		p.next()
		if _, err := p.parseAdditive(); err != nil {
			return nil, err
		}
	case p.peekKeyword("LIKE"):
		p.next()
		if _, err := p.parseAdditive(); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf("expected IN, BETWEEN, or LIKE")
	}
	return p.rawSince(mark), nil
}

var additiveOps = map[tokenKind]string{plusKind: "+", minusKind: "-"}
var multiplicativeOps = map[tokenKind]string{starKind: "*", slashKind: "/"}

func (p *parser) parseAdditive() (sqlast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := additiveOps[p.peek().kind]
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Left: left, Op: op, Right: right}
	}
}

func (p *parser) parseMultiplicative() (sqlast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := multiplicativeOps[p.peek().kind]
		if !ok || p.isSelectStarLookalike() {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Left: left, Op: op, Right: right}
	}
}

// isSelectStarLookalike always reports false: parseSelectItem already
// special-cases a standalone `*`/`table.*` before any expression is parsed,
// so every `*` parseMultiplicative meets is treated as multiplication.
func (p *parser) isSelectStarLookalike() bool { return false }

func (p *parser) parseUnary() (sqlast.Expr, error) {
	if p.peekKind(minusKind) {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &sqlast.UnaryExpr{Op: "-", Expr: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (sqlast.Expr, error) {
	t := p.peek()
	switch t.kind {
	case lparenKind:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(rparenKind, ")"); err != nil {
			return nil, err
		}
		return &sqlast.ParenExpr{Expr: inner}, nil
	case numberKind:
		p.next()
		return &sqlast.Literal{Kind: sqlast.LiteralNumber, Value: t.text}, nil
	case stringKind:
		p.next()
		return &sqlast.Literal{Kind: sqlast.LiteralString, Value: t.text}, nil
	case identKind:
		return p.parseIdentOrCall()
	}
	return nil, p.errorf("unexpected token %q", t.text)
}

func (p *parser) parseIdentOrCall() (sqlast.Expr, error) {
	t := p.next()
	switch t.upper() {
	case "NULL":
		return &sqlast.Literal{Kind: sqlast.LiteralNull, Value: "NULL"}, nil
	case "TRUE":
		return &sqlast.BooleanLiteral{Value: true}, nil
	case "FALSE":
		return &sqlast.BooleanLiteral{Value: false}, nil
	case "CASE":
		return p.parseCase()
	case "CAST":
		return p.parseCast()
	case "COALESCE":
		return p.parseCoalesce()
	case "TIMESTAMP_TRUNC":
		return p.parseTimestampTrunc()
	}

	if p.peekKind(lparenKind) {
		return p.parseFuncCall(t.text)
	}
	if p.peekKind(dotKind) {
		p.next()
		col, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &sqlast.ColumnRef{Table: t.text, Column: col}, nil
	}
	return &sqlast.ColumnRef{Column: t.text}, nil
}

func (p *parser) parseFuncCall(name string) (sqlast.Expr, error) {
	p.next() // (
	call := &sqlast.FuncCall{Name: name}
	if p.peekKind(starKind) {
		p.next()
		call.Star = true
		if err := p.expect(rparenKind, ")"); err != nil {
			return nil, err
		}
		return call, nil
	}
	if p.peekKeyword("DISTINCT") {
		p.next()
		call.Distinct = true
	}
	if !p.peekKind(rparenKind) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.peekKind(commaKind) {
				p.next()
				continue
			}
			break
		}
	}
	if err := p.expect(rparenKind, ")"); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *parser) parseCase() (sqlast.Expr, error) {
	ce := &sqlast.CaseExpr{}
	if !p.peekKeyword("WHEN") {
		// Simple CASE (CASE x WHEN ...) is not in the grammar table; treat
		// the operand plus branches as opaque rather than guess at intent.
		start := p.peek().pos
		for !p.peekKeyword("END") {
			if p.peek().kind == eofKind {
				return nil, p.errorf("unterminated CASE")
			}
			p.next()
		}
		p.next()
		return p.rawFromPos(start), nil
	}
	for p.peekKeyword("WHEN") {
		p.next()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.peekKeyword("THEN") {
			return nil, p.errorf("expected THEN")
		}
		p.next()
		result, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, sqlast.WhenClause{Cond: cond, Result: result})
	}
	if p.peekKeyword("ELSE") {
		p.next()
		elseExpr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Else = elseExpr
	}
	if !p.peekKeyword("END") {
		return nil, p.errorf("expected END")
	}
	p.next()
	return ce, nil
}

func (p *parser) parseCast() (sqlast.Expr, error) {
	if err := p.expect(lparenKind, "("); err != nil {
		return nil, err
	}
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.peekKeyword("AS") {
		return nil, p.errorf("expected AS in CAST")
	}
	p.next()
	var typeParts []string
	for p.peek().kind == identKind {
		typeParts = append(typeParts, p.next().text)
	}
	if p.peekKind(lparenKind) {
		// type parameters, e.g. NUMERIC(10, 2); kept verbatim.
		start := p.peek().pos
		p.next()
		depth := 1
		for depth > 0 {
			t := p.peek()
			if t.kind == eofKind {
				return nil, p.errorf("unterminated type parameter list")
			}
			if t.kind == lparenKind {
				depth++
			}
			if t.kind == rparenKind {
				depth--
			}
			p.next()
		}
		typeParts = append(typeParts, p.src[start:p.toks[p.pos-1].pos+1])
	}
	if err := p.expect(rparenKind, ")"); err != nil {
		return nil, err
	}
	return &sqlast.CastExpr{Expr: inner, Type: strings.Join(typeParts, " ")}, nil
}

func (p *parser) parseCoalesce() (sqlast.Expr, error) {
	if err := p.expect(lparenKind, "("); err != nil {
		return nil, err
	}
	ce := &sqlast.CoalesceExpr{}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Args = append(ce.Args, arg)
		if p.peekKind(commaKind) {
			p.next()
			continue
		}
		break
	}
	if err := p.expect(rparenKind, ")"); err != nil {
		return nil, err
	}
	return ce, nil
}

func (p *parser) parseTimestampTrunc() (sqlast.Expr, error) {
	if err := p.expect(lparenKind, "("); err != nil {
		return nil, err
	}
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(commaKind, ","); err != nil {
		return nil, err
	}
	unit, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	tt := &sqlast.TimestampTruncExpr{Expr: inner, Unit: unit}
	if p.peekKind(commaKind) {
		p.next()
		zone, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		tt.Zone = zone
	}
	if err := p.expect(rparenKind, ")"); err != nil {
		return nil, err
	}
	return tt, nil
}

// rawSince and rawFromPos capture already-consumed source text as a RawExpr
// when a construct (AND/OR/NOT, IS NULL, IN, BETWEEN, LIKE, simple CASE)
// falls outside the tracer's dispatch table.
func (p *parser) rawSince(startPos int) sqlast.Expr {
	return p.rawFromPos(startPos)
}

func (p *parser) rawFromPos(startPos int) sqlast.Expr {
	end := p.toks[p.pos].pos
	if p.pos > 0 {
		prev := p.toks[p.pos-1]
		end = prev.pos + len(prev.text)
		// A string literal or quoted identifier spans more source than its
		// unquoted text; re-lex it to find where it really ends.
		lx := &lexer{src: p.src, pos: prev.pos}
		if _, err := lx.next(); err == nil {
			end = lx.pos
		}
	}
	if end > len(p.src) {
		end = len(p.src)
	}
	if startPos > end {
		startPos = end
	}
	return &sqlast.RawExpr{Text: p.src[startPos:end]}
}
