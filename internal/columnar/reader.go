package columnar

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// File is an opened Parquet file with a flat schema
type File struct {
	pf      *parquet.File
	columns []Column
	units   []time.Duration // timestamp resolution per position, zero otherwise
	pos     map[int]int     // leaf column index -> position in columns
}

// Open reads the footer of a Parquet file and resolves its columns
func Open(r io.ReaderAt, size int64) (*File, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	schema := pf.Schema()
	fields := make(map[string]parquet.Field)
	var order []string
	for _, field := range schema.Fields() {
		fields[field.Name()] = field
		order = append(order, field.Name())
	}

	if stored, ok := pf.Lookup(OrderKey); ok {
		if names := strings.Split(stored, ","); sameNames(names, order) {
			order = names
		}
	}

	f := &File{
		pf:      pf,
		columns: make([]Column, len(order)),
		units:   make([]time.Duration, len(order)),
		pos:     make(map[int]int, len(order)),
	}
	for i, name := range order {
		kind, unit := kindOf(fields[name])
		f.columns[i] = Column{Name: name, Kind: kind, Required: fields[name].Required()}
		f.units[i] = unit
		if lc, ok := schema.Lookup(name); ok && kind != KindUnsupported {
			f.pos[lc.ColumnIndex] = i
		}
	}
	return f, nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(b))
	for _, n := range b {
		seen[n] = true
	}
	for _, n := range a {
		if !seen[n] {
			return false
		}
		delete(seen, n)
	}
	return len(seen) == 0
}

func kindOf(field parquet.Field) (Kind, time.Duration) {
	if !field.Leaf() {
		return KindUnsupported, 0
	}
	typ := field.Type()
	switch typ.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return KindString, 0
	case parquet.Double, parquet.Float:
		return KindDouble, 0
	case parquet.Boolean:
		return KindBool, 0
	case parquet.Int32, parquet.Int64:
		if lt := typ.LogicalType(); lt != nil && lt.Timestamp != nil {
			switch {
			case lt.Timestamp.Unit.Nanos != nil:
				return KindTimestamp, time.Nanosecond
			case lt.Timestamp.Unit.Micros != nil:
				return KindTimestamp, time.Microsecond
			default:
				return KindTimestamp, time.Millisecond
			}
		}
		return KindInt64, 0
	}
	return KindUnsupported, 0
}

// Columns returns the schema in writer order when known, else schema order
func (f *File) Columns() []Column {
	return f.columns
}

// Lookup returns a key/value metadata entry from the footer
func (f *File) Lookup(key string) (string, bool) {
	return f.pf.Lookup(key)
}

// NumRows returns the total row count across row groups
func (f *File) NumRows() int64 {
	return f.pf.NumRows()
}

// Scan calls fn for every row. The slice passed to fn is reused between calls.
// Unsupported columns are always reported as null.
func (f *File) Scan(fn func(row []Value) error) error {
	buf := make([]parquet.Row, rowBufferSize)
	values := make([]Value, len(f.columns))

	for _, rg := range f.pf.RowGroups() {
		if err := f.scanGroup(rg, buf, values, fn); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) scanGroup(rg parquet.RowGroup, buf []parquet.Row, values []Value, fn func([]Value) error) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			for i := range values {
				values[i] = NullValue()
			}
			for _, v := range row {
				i, ok := f.pos[v.Column()]
				if !ok || v.IsNull() {
					continue
				}
				values[i] = f.decode(i, v)
			}
			if ferr := fn(values); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read rows: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

func (f *File) decode(i int, v parquet.Value) Value {
	switch f.columns[i].Kind {
	case KindString:
		return StringValue(string(v.ByteArray()))
	case KindDouble:
		if v.Kind() == parquet.Float {
			return FloatValue(float64(v.Float()))
		}
		return FloatValue(v.Double())
	case KindBool:
		return BoolValue(v.Boolean())
	case KindInt64:
		return IntValue(intOf(v))
	case KindTimestamp:
		n := intOf(v)
		switch f.units[i] {
		case time.Nanosecond:
			return TimeValue(time.Unix(0, n).UTC())
		case time.Microsecond:
			return TimeValue(time.UnixMicro(n).UTC())
		default:
			return TimeValue(time.UnixMilli(n).UTC())
		}
	}
	return NullValue()
}

func intOf(v parquet.Value) int64 {
	if v.Kind() == parquet.Int32 {
		return int64(v.Int32())
	}
	return v.Int64()
}
