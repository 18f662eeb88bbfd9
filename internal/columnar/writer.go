package columnar

import (
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
)

const rowBufferSize = 1024

// Writer writes rows to a single Parquet file
type Writer struct {
	pw      *parquet.Writer
	columns []Column
	leaf    []int // leaf column index per caller position
	buf     []parquet.Row
	rows    int64
}

// NewWriter creates a Writer for the given column layout. Extra metadata
// entries are stored in the file footer alongside the column order.
func NewWriter(out io.Writer, columns []Column, meta map[string]string) (*Writer, error) {
	group := make(parquet.Group, len(columns))
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		if _, dup := group[col.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, col.Name)
		}
		node, err := nodeFor(col)
		if err != nil {
			return nil, err
		}
		group[col.Name] = node
		names = append(names, col.Name)
	}

	schema := parquet.NewSchema("tpcpower", group)

	leaf := make([]int, len(columns))
	for i, col := range columns {
		lc, ok := schema.Lookup(col.Name)
		if !ok {
			return nil, fmt.Errorf("column %s missing from schema", col.Name)
		}
		leaf[i] = lc.ColumnIndex
	}

	options := []parquet.WriterOption{
		schema,
		parquet.KeyValueMetadata(OrderKey, strings.Join(names, ",")),
	}
	for k, v := range meta {
		options = append(options, parquet.KeyValueMetadata(k, v))
	}

	return &Writer{
		pw:      parquet.NewWriter(out, options...),
		columns: columns,
		leaf:    leaf,
		buf:     make([]parquet.Row, 0, rowBufferSize),
	}, nil
}

func nodeFor(col Column) (parquet.Node, error) {
	var node parquet.Node
	switch col.Kind {
	case KindString:
		node = parquet.String()
	case KindDouble:
		node = parquet.Leaf(parquet.DoubleType)
	case KindInt64:
		node = parquet.Int(64)
	case KindTimestamp:
		node = parquet.Timestamp(parquet.Millisecond)
	case KindBool:
		node = parquet.Leaf(parquet.BooleanType)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedColumn, col.Name)
	}
	if !col.Required {
		node = parquet.Optional(node)
	}
	return node, nil
}

// Write appends one row. values must follow the column order given to NewWriter.
func (w *Writer) Write(values []Value) error {
	if len(values) != len(w.columns) {
		return fmt.Errorf("%w: got %d values, want %d", ErrRowWidth, len(values), len(w.columns))
	}

	row := make(parquet.Row, len(w.columns))
	for i, col := range w.columns {
		idx := w.leaf[i]
		v := values[i]
		if v.Null {
			if col.Required {
				return fmt.Errorf("%w: %s", ErrNullRequired, col.Name)
			}
			row[idx] = parquet.NullValue().Level(0, 0, idx)
			continue
		}

		def := 0
		if !col.Required {
			def = 1
		}
		row[idx] = encode(col.Kind, v).Level(0, def, idx)
	}

	w.buf = append(w.buf, row)
	w.rows++
	if len(w.buf) >= rowBufferSize {
		return w.flush()
	}
	return nil
}

func encode(kind Kind, v Value) parquet.Value {
	switch kind {
	case KindString:
		return parquet.ByteArrayValue([]byte(v.Str))
	case KindDouble:
		return parquet.DoubleValue(v.Float)
	case KindInt64:
		return parquet.Int64Value(v.Int)
	case KindTimestamp:
		return parquet.Int64Value(v.Time.UnixMilli())
	case KindBool:
		return parquet.BooleanValue(v.Bool)
	}
	return parquet.NullValue()
}

func (w *Writer) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	if _, err := w.pw.WriteRows(w.buf); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	w.buf = w.buf[:0]
	return nil
}

// Rows returns the number of rows written so far
func (w *Writer) Rows() int64 {
	return w.rows
}

// Close flushes buffered rows and writes the file footer
func (w *Writer) Close() error {
	if err := w.flush(); err != nil {
		return err
	}
	if err := w.pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
