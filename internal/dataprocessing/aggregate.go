package dataprocessing

import (
	"sort"
	"time"

	"tpcpower/pkg/contracts/domain"
)

// sum accumulates one measure; it stays missing until a present value is added
type sum struct {
	total float64
	valid bool
}

func (s *sum) add(v domain.NullFloat) {
	if !v.Valid {
		return
	}
	s.total += v.Value
	s.valid = true
}

func (s sum) result() domain.NullFloat {
	if !s.valid {
		return domain.Missing()
	}
	return domain.Float(s.total)
}

type group struct {
	time     time.Time
	capacity sum
	used     sum
}

// Aggregate sums capacity and used across all rows sharing a timestamp.
//
// A measure is missing in the output only when every row of its group is
// missing it; otherwise missing contributors count as zero. Points are
// ordered by ascending time with one point per distinct timestamp.
func Aggregate(table *domain.Table) domain.AggregatedSeries {
	if table == nil || len(table.Rows) == 0 {
		return domain.AggregatedSeries{}
	}

	groups := make(map[int64]*group)
	for _, r := range table.Rows {
		key := r.Time.UnixNano()
		g, ok := groups[key]
		if !ok {
			g = &group{time: r.Time}
			groups[key] = g
		}
		g.capacity.add(r.Capacity)
		g.used.add(r.Used)
	}

	keys := make([]int64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	series := make(domain.AggregatedSeries, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		series = append(series, domain.AggregatedPoint{
			Time:        g.time,
			CapacitySum: g.capacity.result(),
			UsedSum:     g.used.result(),
		})
	}
	return series
}
