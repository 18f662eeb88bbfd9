package exporter

import (
	"bytes"
	"fmt"

	"tpcpower/internal/columnar"
)

// MetaDataset is the Parquet key-value metadata entry naming the exported view
const MetaDataset = "tpcpower.dataset"

func encodeParquet(f *frame) ([]byte, error) {
	var buf bytes.Buffer
	w, err := columnar.NewWriter(&buf, f.columns, map[string]string{MetaDataset: f.name})
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	values := make([]columnar.Value, len(f.columns))
	for i := 0; i < f.len; i++ {
		f.row(i, values)
		if err := w.Write(values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
