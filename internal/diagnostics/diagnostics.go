// Package diagnostics is the append-only sink every pipeline stage reports
// recoverable failures to. The engine never aborts a run because one model
// failed to load or one projection could not be traced; it records a
// Diagnostic and moves on, matching the "per-projection recovery" policy the
// reference implementation enforces with a try/except around each
// projection (original_source/gen_upstream_lineage.py's
// process_with_and_select).
package diagnostics

import "fmt"

// Kind closes the set of diagnosable failures the pipeline can report.
type Kind string

const (
	MissingCatalogEntry     Kind = "missing_catalog_entry"
	UnsupportedResourceType Kind = "unsupported_resource_type"
	MalformedDependencyKey  Kind = "malformed_dependency_key"
	EmptyColumns            Kind = "empty_columns"
	AmbiguousReference      Kind = "ambiguous_reference"
	UnresolvedReference     Kind = "unresolved_reference"
	ParseFailure            Kind = "parse_failure"
	NoWithClause            Kind = "no_with_clause"
	UnknownSource           Kind = "unknown_source"
	UnsupportedFromShape    Kind = "unsupported_from_shape"
	TraceDepthExceeded      Kind = "trace_depth_exceeded"
	TraceInternal           Kind = "trace_internal"
)

// Severity distinguishes diagnostics that skip a whole model from ones that
// only degrade a single projection to an "Unknown" row.
type Severity string

const (
	SeverityModel      Severity = "model"
	SeverityProjection Severity = "projection"
)

// Diagnostic is one recorded failure.
type Diagnostic struct {
	Kind     Kind
	NodeKey  string // the model/CTE/column the failure is about
	Message  string
	Severity Severity
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s (%s)", d.Severity, d.Kind, d.Message, d.NodeKey)
}

// Sink collects diagnostics in recording order. It has no locking (see
// Add). The zero value is ready to use.
type Sink struct {
	entries []Diagnostic
}

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Add appends a diagnostic. Safe for sequential use only; callers running
// model processing concurrently (internal/pipeline) hold one Sink per
// model task and merge them after the errgroup completes, since a shared Sink
// written from multiple goroutines would need its own locking and the
// pipeline's fan-out is already structured to avoid that.
func (s *Sink) Add(d Diagnostic) {
	s.entries = append(s.entries, d)
}

// Addf builds and appends a Diagnostic.
func (s *Sink) Addf(kind Kind, severity Severity, nodeKey, format string, args ...interface{}) {
	s.Add(Diagnostic{Kind: kind, Severity: severity, NodeKey: nodeKey, Message: fmt.Sprintf(format, args...)})
}

// All returns every diagnostic recorded so far, in recording order.
func (s *Sink) All() []Diagnostic {
	return s.entries
}

// Merge appends another sink's entries onto this one.
func (s *Sink) Merge(other *Sink) {
	if other == nil {
		return
	}
	s.entries = append(s.entries, other.entries...)
}

// CountByKind tallies diagnostics per kind, for RunSummary reporting.
func (s *Sink) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, d := range s.entries {
		counts[d.Kind]++
	}
	return counts
}
