package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullFloat(t *testing.T) {
	assert.False(t, Float(math.NaN()).Valid)
	assert.False(t, Float(math.Inf(1)).Valid)
	assert.True(t, Float(0).Valid)
	assert.Nil(t, Missing().Ptr())
	assert.Equal(t, 1.5, *Float(1.5).Ptr())
	assert.Equal(t, "", Missing().String())
	assert.Equal(t, "12.25", Float(12.25).String())

	data, err := json.Marshal([]NullFloat{Float(3), Missing()})
	require.NoError(t, err)
	assert.JSONEq(t, `[3, null]`, string(data))

	var back []NullFloat
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []NullFloat{Float(3), Missing()}, back)

	var bad NullFloat
	assert.Error(t, json.Unmarshal([]byte(`"x"`), &bad))
}

func TestDate(t *testing.T) {
	d := MustParseDate("2024-02-29")
	assert.Equal(t, "2024-02-29", d.String())
	assert.Equal(t, d, DateOf(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, d+1, MustParseDate("2024-03-01"))
	assert.Equal(t, Date(0), MustParseDate("1970-01-01"))

	_, err := ParseDate("2024/02/29")
	assert.Error(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-02-29"`, string(data))

	var back Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want TimeOfDay
		str  string
	}{
		{"00:00", StartOfDay, "00:00"},
		{"23:59", NewTimeOfDay(23, 59, 0), "23:59"},
		{"23:59:59", EndOfDay, "23:59:59"},
		{" 08:05 ", NewTimeOfDay(8, 5, 0), "08:05"},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.str, got.String())
	}

	for _, bad := range []string{"24:00", "8h", ""} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, NewTimeOfDay(13, 45, 30), TimeOfDayOf(time.Date(2024, 1, 1, 13, 45, 30, 0, time.UTC)))
}

func TestReadingDerivesCalendarFields(t *testing.T) {
	r := NewReading(time.Date(2024, 1, 2, 18, 30, 0, 0, time.FixedZone("UTC+8", 8*3600)), "solar", "A", Float(1), Missing())
	assert.Equal(t, time.UTC, r.Time.Location())
	assert.Equal(t, MustParseDate("2024-01-02"), r.Date)
	assert.Equal(t, NewTimeOfDay(10, 30, 0), r.TOD)

	_, ok := r.Attr("status")
	assert.False(t, ok)
}

func TestTableAccessors(t *testing.T) {
	at := func(s string) time.Time {
		v, _ := time.Parse(TimestampLayout, s)
		return v
	}
	table := &Table{Rows: []Reading{
		NewReading(at("2024-01-03 00:00:00"), "wind", "C", Missing(), Missing()),
		NewReading(at("2024-01-01 00:00:00"), "solar", "B", Missing(), Missing()),
		NewReading(at("2024-01-02 00:00:00"), "solar", "A", Missing(), Missing()),
		NewReading(at("2024-01-02 00:10:00"), "solar", "B", Missing(), Missing()),
	}}

	assert.Equal(t, 4, table.Len())
	assert.Equal(t, []string{"wind", "solar"}, table.Types())
	assert.Equal(t, []string{"B", "A"}, table.NamesFor("solar"))
	assert.Empty(t, table.NamesFor("coal"))

	lo, hi, ok := table.DateBounds()
	require.True(t, ok)
	assert.Equal(t, MustParseDate("2024-01-01"), lo)
	assert.Equal(t, MustParseDate("2024-01-03"), hi)

	c := DefaultCriteria(table)
	assert.Equal(t, lo, c.DateFrom)
	assert.Equal(t, hi, c.DateTo)
	assert.Equal(t, StartOfDay, c.TimeFrom)
	assert.Equal(t, EndOfDay, c.TimeTo)
	assert.Equal(t, []string{"wind", "solar"}, c.Types)
	assert.False(t, c.SiteFilterActive())

	var nilTable *Table
	assert.Zero(t, nilTable.Len())
	_, _, ok = (&Table{}).DateBounds()
	assert.False(t, ok)
}

func TestSiteFilterActive(t *testing.T) {
	assert.True(t, FilterCriteria{Types: []string{"solar"}, Names: []string{"A"}}.SiteFilterActive())
	assert.False(t, FilterCriteria{Types: []string{"solar"}}.SiteFilterActive())
	assert.False(t, FilterCriteria{Types: []string{"solar", "wind"}, Names: []string{"A"}}.SiteFilterActive())
	assert.True(t, FilterCriteria{Types: []string{"solar", "solar"}, Names: []string{"A"}}.SiteFilterActive())
}

func TestDistinct(t *testing.T) {
	assert.Nil(t, Distinct(nil))
	assert.Equal(t, []string{}, Distinct([]string{}))
	assert.Equal(t, []string{"solar", "wind"}, Distinct([]string{"solar", "wind", "solar"}))
}
