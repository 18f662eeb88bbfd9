package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tpcpower/pkg/contracts/domain"
)

// Outcome classifies the result of coercing one raw value
type Outcome int

const (
	// Present means the value parsed
	Present Outcome = iota
	// Blank means the value was empty or a recognised null token
	Blank
	// Invalid means the value was non-empty but could not be parsed; it is
	// treated as missing and counted
	Invalid
)

// DefaultTimeLayouts are tried in order when a timestamp is stored as text
var DefaultTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
}

var nullTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"null": {},
	"none": {},
	"na":   {},
	"n/a":  {},
	"-":    {},
}

func isNullToken(s string) bool {
	_, ok := nullTokens[strings.ToLower(s)]
	return ok
}

// CoerceFloat converts a raw text measure to a nullable float. Only plain
// decimal or exponent notation parses; grouped digits such as "1,234" and
// non-finite results are invalid.
func CoerceFloat(raw string) (domain.NullFloat, Outcome) {
	s := strings.TrimSpace(raw)
	if isNullToken(s) {
		return domain.Missing(), Blank
	}

	if !plainNumber(s) {
		return domain.Missing(), Invalid
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.Missing(), Invalid
	}
	return domain.Float(v), Present
}

// plainNumber rejects the forms strconv accepts beyond plain decimals:
// digit separators, hex and the textual infinities
func plainNumber(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}

// CoerceInt converts a raw text value to an integer. Integral floats such as
// "12.0" are accepted; fractional values are invalid.
func CoerceInt(raw string) (int64, Outcome) {
	s := strings.TrimSpace(raw)
	if isNullToken(s) {
		return 0, Blank
	}

	if !plainNumber(s) {
		return 0, Invalid
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, Present
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f > math.MaxInt64 || f < math.MinInt64 {
		return 0, Invalid
	}
	return int64(f), Present
}

// ParseTimestamp parses a textual timestamp with the first matching layout.
// The result is the written wall-clock time carried in UTC: an explicit
// offset is dropped rather than applied, so the derived date and time of
// day match the text.
func ParseTimestamp(raw string, layouts []string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if len(layouts) == 0 {
		layouts = DefaultTimeLayouts
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
