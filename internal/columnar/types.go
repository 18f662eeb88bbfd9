package columnar

import (
	"errors"
	"time"
)

// OrderKey is the key/value metadata entry holding the writer's column order.
const OrderKey = "tpcpower.columns"

var (
	ErrDuplicateColumn   = errors.New("duplicate column name")
	ErrUnsupportedColumn = errors.New("unsupported column kind")
	ErrRowWidth          = errors.New("row width does not match schema")
	ErrNullRequired      = errors.New("null value in required column")
)

// Kind is the logical type of a column
type Kind int

const (
	KindUnsupported Kind = iota
	KindString
	KindDouble
	KindInt64
	KindTimestamp
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindDouble:
		return "double"
	case KindInt64:
		return "int64"
	case KindTimestamp:
		return "timestamp"
	case KindBool:
		return "bool"
	default:
		return "unsupported"
	}
}

// Column describes one leaf column of a flat schema
type Column struct {
	Name     string
	Kind     Kind
	Required bool
}

// Value is a single cell. Exactly one payload field is meaningful, selected
// by the column's Kind, unless Null is set.
type Value struct {
	Null  bool
	Str   string
	Float float64
	Int   int64
	Bool  bool
	Time  time.Time
}

func NullValue() Value { return Value{Null: true} }
func StringValue(s string) Value { return Value{Str: s} }
func FloatValue(f float64) Value { return Value{Float: f} }
func IntValue(i int64) Value { return Value{Int: i} }
func BoolValue(b bool) Value { return Value{Bool: b} }
func TimeValue(t time.Time) Value { return Value{Time: t} }
