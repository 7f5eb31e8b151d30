// Package refresolve implements stage 2: replacing `{{ ref('X') }}` and
// `{{ source('S', 'T') }}` tokens in a model's raw SQL with the
// fully-qualified table name the catalog resolved them to. It is a
// deliberately text-level stage — the tokens are not valid SQL syntax
// themselves, so rewriting them before parsing (rather than trying to teach
// the parser about them) mirrors
// original_source/create_manifest_catalog_ref.py's ref_replacer/
// source_replacer closures exactly.
package refresolve

import (
	"regexp"

	"github.com/dataplatform-labs/columnlineage/internal/catalog"
	"github.com/dataplatform-labs/columnlineage/internal/diagnostics"
)

// ResolvedSQL is a model's raw SQL with every resolvable ref()/source()
// token substituted.
type ResolvedSQL struct {
	NodeKey string
	SQL     string
}

var (
	refToken    = regexp.MustCompile(`\{\{\s*ref\s*\(\s*'([^']*)'\s*\)\s*\}\}`)
	sourceToken = regexp.MustCompile(`\{\{\s*source\s*\(\s*'([^']*)'\s*,\s*'([^']*)'\s*\)\s*\}\}`)
)

// Resolver rewrites ref()/source() tokens against a ReferenceMap.
type Resolver struct{}

// New returns a Resolver. It carries no state: resolution is a pure
// function of the SQL text and the reference map passed to Resolve.
func New() *Resolver {
	return &Resolver{}
}

// Resolve substitutes every ref()/source() token in sql. A token with no
// matching catalog entry is left in place and reported as an
// UnresolvedReference diagnostic rather than failing the whole model — a
// later stage will simply fail to parse or trace through the untouched
// token, which is diagnosed again at that point.
func (r *Resolver) Resolve(nodeKey, sql string, refs catalog.ReferenceMap, sink *diagnostics.Sink) ResolvedSQL {
	out := sourceToken.ReplaceAllStringFunc(sql, func(match string) string {
		sub := sourceToken.FindStringSubmatch(match)
		key := catalog.SourceKey(sub[1], sub[2])
		if fqn, ok := refs[key]; ok {
			return fqn
		}
		sink.Addf(diagnostics.UnresolvedReference, diagnostics.SeverityModel, nodeKey,
			"source(%q, %q) has no resolvable catalog entry", sub[1], sub[2])
		return match
	})

	out = refToken.ReplaceAllStringFunc(out, func(match string) string {
		sub := refToken.FindStringSubmatch(match)
		key := catalog.RefKey(sub[1])
		if fqn, ok := refs[key]; ok {
			return fqn
		}
		sink.Addf(diagnostics.UnresolvedReference, diagnostics.SeverityModel, nodeKey,
			"ref(%q) has no resolvable catalog entry", sub[1])
		return match
	})

	return ResolvedSQL{NodeKey: nodeKey, SQL: out}
}
