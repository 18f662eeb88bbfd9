package domain

import "time"

// FilterCriteria is the user's selection for one filter-aggregate-export cycle.
// Bounds are inclusive. Names only restrict the result when exactly one type
// is selected; an empty Names means no site restriction.
type FilterCriteria struct {
	DateFrom Date      `json:"date_from"`
	DateTo   Date      `json:"date_to"`
	TimeFrom TimeOfDay `json:"time_from"`
	TimeTo   TimeOfDay `json:"time_to"`
	Types    []string  `json:"types"`
	Names    []string  `json:"names,omitempty"`
}

// SiteFilterActive reports whether the site restriction applies to these
// criteria. Types counts as a set, so a repeated label is one type.
func (c FilterCriteria) SiteFilterActive() bool {
	return len(c.Names) > 0 && len(Distinct(c.Types)) == 1
}

// Distinct returns values without repeats, keeping first occurrences in order
func Distinct(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// DefaultCriteria selects every row of the table: its full date span,
// the whole day and all types.
func DefaultCriteria(t *Table) FilterCriteria {
	from, to, ok := t.DateBounds()
	if !ok {
		today := DateOf(time.Now().UTC())
		from, to = today, today
	}
	return FilterCriteria{
		DateFrom: from,
		DateTo:   to,
		TimeFrom: StartOfDay,
		TimeTo:   EndOfDay,
		Types:    t.Types(),
	}
}

// AggregatedPoint holds the measures summed across all matching readings at one timestamp
type AggregatedPoint struct {
	Time        time.Time `json:"time"`
	CapacitySum NullFloat `json:"capacity_sum"`
	UsedSum     NullFloat `json:"used_sum"`
}

// AggregatedSeries is ordered ascending by Time with no duplicate timestamps
type AggregatedSeries []AggregatedPoint
