package dataprocessing

import (
	"maps"

	"tpcpower/pkg/contracts/domain"
)

// matcher evaluates the four row predicates for one set of criteria
type matcher struct {
	criteria domain.FilterCriteria
	types    map[string]struct{}
	names    map[string]struct{}
}

func newMatcher(c domain.FilterCriteria) *matcher {
	m := &matcher{criteria: c, types: toSet(c.Types)}
	if c.SiteFilterActive() {
		m.names = toSet(c.Names)
	}
	return m
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Match reports whether r satisfies every predicate
func (m *matcher) Match(r domain.Reading) bool {
	c := m.criteria
	if r.Date < c.DateFrom || r.Date > c.DateTo {
		return false
	}
	if r.TOD < c.TimeFrom || r.TOD > c.TimeTo {
		return false
	}
	if _, ok := m.types[r.Type]; !ok {
		return false
	}
	if m.names != nil {
		if _, ok := m.names[r.Name]; !ok {
			return false
		}
	}
	return true
}

// Filter returns the rows of table matching criteria, in table order.
//
// The site restriction applies only when exactly one type is selected; with
// several types Names is ignored. The result has its own row slice and never
// aliases the input's. Invalid criteria are rejected with a validation error.
func Filter(table *domain.Table, criteria domain.FilterCriteria) (*domain.Table, error) {
	if err := ValidateCriteria(criteria); err != nil {
		return nil, err
	}

	out := &domain.Table{Rows: []domain.Reading{}}
	if table == nil {
		return out, nil
	}
	out.Columns = append([]string(nil), table.Columns...)
	out.Kinds = maps.Clone(table.Kinds)
	out.Source = table.Source

	m := newMatcher(criteria)
	for _, r := range table.Rows {
		if m.Match(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out, nil
}
