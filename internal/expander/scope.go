package expander

import "github.com/dataplatform-labs/columnlineage/internal/normalize"

// CteScope tracks, in declaration order, the output column names each CTE
// processed so far resolves to. Order matters: the outer SELECT's bare `*`
// ties to whichever CTE was declared last, not to its own FROM target — a
// deliberate, documented deviation preserved from
// original_source/expand_sql_ref.py (`last_cte_name =
// list(cte_columns.keys())[-1]`).
type CteScope struct {
	Order   []string
	columns map[string][]string
}

func newCteScope() *CteScope {
	return &CteScope{columns: make(map[string][]string)}
}

func (s *CteScope) add(name string, columns []string) {
	key := normalize.Name(name)
	if _, exists := s.columns[key]; !exists {
		s.Order = append(s.Order, name)
	}
	s.columns[key] = columns
}

func (s *CteScope) lookup(name string) ([]string, bool) {
	cols, ok := s.columns[normalize.Name(name)]
	return cols, ok
}

// last returns the most recently declared CTE's columns.
func (s *CteScope) last() ([]string, bool) {
	if len(s.Order) == 0 {
		return nil, false
	}
	cols, _ := s.lookup(s.Order[len(s.Order)-1])
	return cols, true
}
