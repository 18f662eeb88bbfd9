package exporter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tpcpower/internal/columnar"
	"tpcpower/pkg/contracts/domain"
)

var (
	// ErrUnsupportedFormat is returned for an unknown export format name
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrUnknownDataset is returned for an unknown export dataset name
	ErrUnknownDataset = errors.New("unknown export dataset")
)

// Format is an export encoding
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatXLSX    Format = "xlsx"
)

// Formats lists the supported formats in display order
var Formats = []Format{FormatCSV, FormatParquet, FormatXLSX}

var formatAliases = map[string]Format{
	"csv":             FormatCSV,
	"delimited-text":  FormatCSV,
	"parquet":         FormatParquet,
	"columnar-binary": FormatParquet,
	"xlsx":            FormatXLSX,
	"excel":           FormatXLSX,
}

// ParseFormat resolves a format name or alias, case-insensitively
func ParseFormat(s string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type sent with the format
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// Ext returns the file extension without a dot
func (f Format) Ext() string {
	return string(f)
}

// Extensions lists the file extensions of Formats
func Extensions() []string {
	out := make([]string, 0, len(Formats))
	for _, f := range Formats {
		out = append(out, f.Ext())
	}
	return out
}

// Label is the human readable name shown in format selectors
func (f Format) Label() string {
	switch f {
	case FormatCSV:
		return "CSV"
	case FormatParquet:
		return "Parquet"
	case FormatXLSX:
		return "Excel"
	}
	return string(f)
}

// Dataset names one of the two downloadable views of a query result
type Dataset string

const (
	DatasetFiltered   Dataset = "filtered_raw"
	DatasetAggregated Dataset = "aggregated_by_time"
)

// ParseDataset validates a dataset name
func ParseDataset(s string) (Dataset, error) {
	switch d := Dataset(s); d {
	case DatasetFiltered, DatasetAggregated:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDataset, s)
}

// FileName returns the download name, e.g. filtered_raw.csv
func FileName(d Dataset, f Format) string {
	return string(d) + "." + f.Ext()
}

// frame is the tabular shape shared by all encoders. row fills dst with the
// values of row i.
type frame struct {
	name    string
	columns []columnar.Column
	len     int
	row     func(i int, dst []columnar.Value)
}

func (f *frame) header() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

func nullable(v domain.NullFloat) columnar.Value {
	if !v.Valid {
		return columnar.NullValue()
	}
	return columnar.FloatValue(v.Value)
}

// label stores an empty type or name as missing, the way the loader reads
// a missing one
func label(s string) columnar.Value {
	if s == "" {
		return columnar.NullValue()
	}
	return columnar.StringValue(s)
}

func columnKind(k domain.ColumnKind) columnar.Kind {
	switch k {
	case domain.KindFloat:
		return columnar.KindDouble
	case domain.KindInt:
		return columnar.KindInt64
	case domain.KindBool:
		return columnar.KindBool
	case domain.KindTimestamp:
		return columnar.KindTimestamp
	}
	return columnar.KindString
}

// typedValue parses a passthrough text value back into its column kind.
// A value that no longer parses is written as missing.
func typedValue(k domain.ColumnKind, s string) columnar.Value {
	switch k {
	case domain.KindFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return columnar.FloatValue(f)
		}
	case domain.KindInt:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return columnar.IntValue(n)
		}
	case domain.KindBool:
		if b, err := strconv.ParseBool(s); err == nil {
			return columnar.BoolValue(b)
		}
	case domain.KindTimestamp:
		if t, err := time.ParseInLocation(domain.TimestampLayout, s, time.UTC); err == nil {
			return columnar.TimeValue(t)
		}
	default:
		return columnar.StringValue(s)
	}
	return columnar.NullValue()
}

// readingsFrame lays out filtered rows as time, type, name, capacity, used
// followed by the passthrough columns
func readingsFrame(table *domain.Table) *frame {
	var rows []domain.Reading
	var extra []string
	if table != nil {
		rows = table.Rows
		extra = table.Columns
	}

	columns := []columnar.Column{
		{Name: domain.ColumnTime, Kind: columnar.KindTimestamp, Required: true},
		{Name: domain.ColumnType, Kind: columnar.KindString},
		{Name: domain.ColumnName, Kind: columnar.KindString},
		{Name: domain.ColumnCapacity, Kind: columnar.KindDouble},
		{Name: domain.ColumnUsed, Kind: columnar.KindDouble},
	}
	kinds := make([]domain.ColumnKind, len(extra))
	for j, name := range extra {
		kinds[j] = table.KindOf(name)
		columns = append(columns, columnar.Column{Name: name, Kind: columnKind(kinds[j])})
	}

	return &frame{
		name:    string(DatasetFiltered),
		columns: columns,
		len:     len(rows),
		row: func(i int, dst []columnar.Value) {
			r := rows[i]
			dst[0] = columnar.TimeValue(r.Time)
			dst[1] = label(r.Type)
			dst[2] = label(r.Name)
			dst[3] = nullable(r.Capacity)
			dst[4] = nullable(r.Used)
			for j, name := range extra {
				if v, ok := r.Extra[name]; ok {
					dst[5+j] = typedValue(kinds[j], v)
				} else {
					dst[5+j] = columnar.NullValue()
				}
			}
		},
	}
}

// seriesFrame lays out the aggregated series as time, capacity, used
func seriesFrame(series domain.AggregatedSeries) *frame {
	return &frame{
		name: string(DatasetAggregated),
		columns: []columnar.Column{
			{Name: domain.ColumnTime, Kind: columnar.KindTimestamp, Required: true},
			{Name: domain.ColumnCapacity, Kind: columnar.KindDouble},
			{Name: domain.ColumnUsed, Kind: columnar.KindDouble},
		},
		len: len(series),
		row: func(i int, dst []columnar.Value) {
			p := series[i]
			dst[0] = columnar.TimeValue(p.Time)
			dst[1] = nullable(p.CapacitySum)
			dst[2] = nullable(p.UsedSum)
		},
	}
}

// formatValue renders a cell for text formats. Missing values are empty.
func formatValue(kind columnar.Kind, v columnar.Value) string {
	if v.Null {
		return ""
	}
	switch kind {
	case columnar.KindTimestamp:
		return v.Time.UTC().Format(domain.TimestampLayout)
	case columnar.KindDouble:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case columnar.KindInt64:
		return strconv.FormatInt(v.Int, 10)
	case columnar.KindBool:
		return strconv.FormatBool(v.Bool)
	}
	return v.Str
}
