package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Well-known column names of the power information dataset
const (
	ColumnTime     = "time"
	ColumnType     = "type"
	ColumnName     = "name"
	ColumnCapacity = "capacity"
	ColumnUsed     = "used"
)

// TimestampLayout is the layout used when a timestamp is rendered as text
const TimestampLayout = "2006-01-02 15:04:05"

// NullFloat is a float64 measure that may be missing.
// A missing value is distinct from zero.
type NullFloat struct {
	Value float64
	Valid bool
}

// Float returns a present measure. NaN and infinities are treated as missing.
func Float(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Value: v, Valid: true}
}

// Missing returns an absent measure
func Missing() NullFloat {
	return NullFloat{}
}

// Ptr returns a pointer to the value, or nil when missing
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// String renders the value for text exports; missing renders as an empty string
func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// MarshalJSON encodes a missing value as null
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON decodes null as a missing value
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid measure value: %w", err)
	}
	*n = Float(v)
	return nil
}

// Reading is one observation row keyed by (time, type, name).
type Reading struct {
	Time     time.Time         `json:"time"`
	Date     Date              `json:"date"`
	TOD      TimeOfDay         `json:"tod"`
	Type     string            `json:"type"`
	Name     string            `json:"name"`
	Capacity NullFloat         `json:"capacity"`
	Used     NullFloat         `json:"used"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// NewReading builds a reading and derives its calendar date and time of day.
func NewReading(ts time.Time, typ, name string, capacity, used NullFloat) Reading {
	ts = ts.UTC()
	return Reading{
		Time:     ts,
		Date:     DateOf(ts),
		TOD:      TimeOfDayOf(ts),
		Type:     typ,
		Name:     name,
		Capacity: capacity,
		Used:     used,
	}
}

// Attr returns a passthrough attribute and whether it is present
func (r Reading) Attr(column string) (string, bool) {
	v, ok := r.Extra[column]
	return v, ok
}

// Source identifies the file a table was loaded from.
// Two sources are the same dataset when all three fields match.
type Source struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Same reports whether s and o identify the same file contents
func (s Source) Same(o Source) bool {
	return s.Path == o.Path && s.Size == o.Size && s.ModTime.Equal(o.ModTime)
}

// LoadStats counts the data quality issues found while loading a table
type LoadStats struct {
	RowsRead        int `json:"rows_read"`
	RowsDropped     int `json:"rows_dropped"`
	CapacityCoerced int `json:"capacity_coerced"`
	UsedCoerced     int `json:"used_coerced"`
}

// RowsKept returns the number of rows that made it into the table
func (s LoadStats) RowsKept() int {
	return s.RowsRead - s.RowsDropped
}

// ColumnKind is the stored type of a passthrough column. Reading.Extra holds
// every passthrough value as text; the kind says how to store it again.
type ColumnKind string

const (
	KindText      ColumnKind = "text"
	KindFloat     ColumnKind = "float"
	KindInt       ColumnKind = "int"
	KindBool      ColumnKind = "bool"
	KindTimestamp ColumnKind = "timestamp"
)

// Table is an in-memory, read-only set of readings.
// Columns lists the passthrough columns in source order; Kinds records the
// non-text ones.
type Table struct {
	Columns []string              `json:"columns"`
	Kinds   map[string]ColumnKind `json:"kinds,omitempty"`
	Rows    []Reading             `json:"rows"`
	Source  Source                `json:"source"`
}

// KindOf returns the stored type of a passthrough column, text by default
func (t *Table) KindOf(column string) ColumnKind {
	if t == nil {
		return KindText
	}
	if k, ok := t.Kinds[column]; ok {
		return k
	}
	return KindText
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Types returns the distinct type labels in first-seen order
func (t *Table) Types() []string {
	seen := make(map[string]struct{})
	var types []string
	for _, r := range t.Rows {
		if _, ok := seen[r.Type]; ok {
			continue
		}
		seen[r.Type] = struct{}{}
		types = append(types, r.Type)
	}
	return types
}

// NamesFor returns the distinct site names recorded for a type, in first-seen order
func (t *Table) NamesFor(typ string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, r := range t.Rows {
		if r.Type != typ {
			continue
		}
		if _, ok := seen[r.Name]; ok {
			continue
		}
		seen[r.Name] = struct{}{}
		names = append(names, r.Name)
	}
	return names
}

// DateBounds returns the earliest and latest calendar dates in the table.
// ok is false for an empty table.
func (t *Table) DateBounds() (min, max Date, ok bool) {
	for i, r := range t.Rows {
		if i == 0 || r.Date < min {
			min = r.Date
		}
		if i == 0 || r.Date > max {
			max = r.Date
		}
	}
	return min, max, len(t.Rows) > 0
}
