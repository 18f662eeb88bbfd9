package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"tpcpower/internal/columnar"
)

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	// BOMPrefix adds a UTF-8 BOM for spreadsheet programs that need one.
	// Downloads are written without it.
	BOMPrefix bool
}

// writeCSV writes a header row and one record per frame row
func writeCSV(out io.Writer, f *frame, opts WriteOptions) error {
	if opts.BOMPrefix {
		if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)

	if err := writer.Write(f.header()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	values := make([]columnar.Value, len(f.columns))
	record := make([]string, len(f.columns))
	for i := 0; i < f.len; i++ {
		f.row(i, values)
		for j, col := range f.columns {
			record[j] = formatValue(col.Kind, values[j])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func encodeCSV(f *frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCSV(&buf, f, WriteOptions{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
