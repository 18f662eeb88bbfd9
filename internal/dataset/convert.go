package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"tpcpower/internal/columnar"
	"tpcpower/internal/validation"
	"tpcpower/pkg/contracts/domain"
)

// Column typing applied by Convert. Columns not listed here are kept as text.
var (
	FloatColumns = []string{domain.ColumnCapacity, domain.ColumnUsed, "percent"}
	IntColumns   = []string{"unit_id"}
)

const utf8BOM = "\uFEFF"

// ErrEmptyCSV is returned when the source has no header row
var ErrEmptyCSV = errors.New("csv file has no header row")

// ConvertResult summarises one CSV to Parquet conversion
type ConvertResult struct {
	Source      string
	Destination string
	Rows        int
	Bytes       int64
	Columns     []columnar.Column
	// Coerced counts non-empty values per column that were stored as missing
	Coerced map[string]int
}

// Converter turns the cleaned CSV export into the columnar file the
// dashboard loads
type Converter struct {
	logger    *slog.Logger
	validator *validation.FileValidator
}

// NewConverter creates a Converter
func NewConverter(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "dataset_converter"))
	return &Converter{
		logger:    logger,
		validator: validation.NewFileValidator(logger),
	}
}

func columnKind(name string) columnar.Kind {
	for _, c := range FloatColumns {
		if c == name {
			return columnar.KindDouble
		}
	}
	for _, c := range IntColumns {
		if c == name {
			return columnar.KindInt64
		}
	}
	return columnar.KindString
}

// Convert reads src (CSV with a header row) and writes dst (Parquet).
// The destination is written to a temporary file and renamed into place.
func (c *Converter) Convert(ctx context.Context, src, dst string) (*ConvertResult, error) {
	start := time.Now()

	if _, err := c.validator.ValidateCSVFile(src); err != nil {
		return nil, err
	}

	absDst, err := filepath.Abs(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination: %w", err)
	}
	if err := c.validator.ValidateOutputDirectory(filepath.Dir(absDst)); err != nil {
		return nil, err
	}

	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(absDst), ".convert-*.parquet")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	result, err := c.convert(ctx, in, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close temporary file: %w", cerr)
	}
	if err != nil {
		return nil, err
	}

	if err := os.Rename(tmpName, absDst); err != nil {
		return nil, fmt.Errorf("failed to move parquet into place: %w", err)
	}

	if info, err := os.Stat(absDst); err == nil {
		result.Bytes = info.Size()
	}
	result.Source = src
	result.Destination = absDst

	attrs := []any{
		slog.String("source", src),
		slog.String("destination", absDst),
		slog.Int("rows", result.Rows),
		slog.Int("columns", len(result.Columns)),
		slog.String("size", humanize.Bytes(uint64(result.Bytes))),
		slog.Duration("duration", time.Since(start)),
	}
	for col, n := range result.Coerced {
		attrs = append(attrs, slog.Int("coerced_"+col, n))
	}
	c.logger.InfoContext(ctx, "Parquet saved", attrs...)

	return result, nil
}

// convert streams CSV rows from r into a Parquet file on w
func (c *Converter) convert(ctx context.Context, r io.Reader, w io.Writer) (*ConvertResult, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make([]columnar.Column, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		columns[i] = columnar.Column{Name: name, Kind: columnKind(name)}
	}

	writer, err := columnar.NewWriter(w, columns, map[string]string{
		"tpcpower.converted_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	result := &ConvertResult{Columns: columns, Coerced: make(map[string]int)}
	values := make([]columnar.Value, len(columns))

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", result.Rows+2, err)
		}
		if result.Rows%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		for i, col := range columns {
			v, outcome := coerceCell(col.Kind, record[i])
			if outcome == Invalid {
				result.Coerced[col.Name]++
			}
			values[i] = v
		}
		if err := writer.Write(values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", result.Rows+2, err)
		}
		result.Rows++
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	for col, n := range result.Coerced {
		if n > 0 {
			c.logger.WarnContext(ctx, "Non-numeric values stored as missing",
				slog.String("column", col),
				slog.Int("count", n))
		}
	}

	return result, nil
}

// coerceCell applies the column typing to one CSV field. Empty text is null.
func coerceCell(kind columnar.Kind, raw string) (columnar.Value, Outcome) {
	switch kind {
	case columnar.KindDouble:
		f, outcome := CoerceFloat(raw)
		if !f.Valid {
			return columnar.NullValue(), outcome
		}
		return columnar.FloatValue(f.Value), outcome
	case columnar.KindInt64:
		n, outcome := CoerceInt(raw)
		if outcome != Present {
			return columnar.NullValue(), outcome
		}
		return columnar.IntValue(n), outcome
	default:
		if raw == "" {
			return columnar.NullValue(), Blank
		}
		return columnar.StringValue(raw), Present
	}
}
