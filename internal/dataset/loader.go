package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"

	"tpcpower/internal/columnar"
	apperrors "tpcpower/internal/errors"
	"tpcpower/internal/infrastructure"
	"tpcpower/internal/validation"
	"tpcpower/pkg/contracts/domain"
)

// ErrLoad marks every failure to turn the dataset file into a table
var ErrLoad = errors.New("failed to load dataset")

// maxRowWarnings bounds the per-row warnings logged during one load
const maxRowWarnings = 5

// cancelCheckInterval is how many rows are read between context checks
const cancelCheckInterval = 4096

// TableLoader loads a table from a dataset file
type TableLoader interface {
	Load(ctx context.Context, path string) (*domain.Table, domain.LoadStats, error)
}

// Loader reads the cleaned columnar dataset into memory
type Loader struct {
	logger    *slog.Logger
	validator *validation.FileValidator
	layouts   []string
	metrics   *infrastructure.BusinessMetrics
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithTimeLayouts sets the layouts tried for textual timestamps
func WithTimeLayouts(layouts []string) LoaderOption {
	return func(l *Loader) {
		if len(layouts) > 0 {
			l.layouts = layouts
		}
	}
}

// WithMetrics records load statistics on m
func WithMetrics(m *infrastructure.BusinessMetrics) LoaderOption {
	return func(l *Loader) {
		l.metrics = m
	}
}

// NewLoader creates a Loader
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	logger = infrastructure.WithComponent(logger, "dataset_loader")
	l := &Loader{
		logger:    logger,
		validator: validation.NewFileValidator(logger),
		layouts:   DefaultTimeLayouts,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the dataset with a default Loader
func Load(ctx context.Context, path string) (*domain.Table, domain.LoadStats, error) {
	return NewLoader(infrastructure.GetLogger()).Load(ctx, path)
}

func loadError(appErr *apperrors.AppError) error {
	return fmt.Errorf("%w: %w", ErrLoad, appErr)
}

// layout maps the well-known columns to positions in the file schema
type layout struct {
	columns     []columnar.Column
	time        int
	typ         int
	name        int
	capacity    int
	used        int
	passthrough []int
}

func resolveLayout(cols []columnar.Column) (*layout, error) {
	lay := &layout{columns: cols, time: -1, typ: -1, name: -1, capacity: -1, used: -1}
	for i, c := range cols {
		switch c.Name {
		case domain.ColumnTime:
			lay.time = i
		case domain.ColumnType:
			lay.typ = i
		case domain.ColumnName:
			lay.name = i
		case domain.ColumnCapacity:
			lay.capacity = i
		case domain.ColumnUsed:
			lay.used = i
		default:
			lay.passthrough = append(lay.passthrough, i)
		}
	}

	for _, req := range []struct {
		idx  int
		name string
	}{{lay.time, domain.ColumnTime}, {lay.typ, domain.ColumnType}, {lay.name, domain.ColumnName}} {
		if req.idx < 0 {
			return nil, fmt.Errorf("dataset has no %s column", req.name)
		}
	}

	switch cols[lay.time].Kind {
	case columnar.KindString, columnar.KindTimestamp, columnar.KindInt64:
	default:
		return nil, fmt.Errorf("unsupported %s column encoding: %s", domain.ColumnTime, cols[lay.time].Kind)
	}
	return lay, nil
}

// Load reads path into a table. Rows whose timestamp cannot be parsed are
// dropped; measures that cannot be read as numbers become missing. Both are
// counted in the returned stats.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Table, domain.LoadStats, error) {
	start := time.Now()
	ctx, span := infrastructure.StartSpan(ctx, "dataset.load", attribute.String("dataset.path", path))
	defer span.End()

	table, stats, err := l.load(ctx, path)
	infrastructure.RecordDatasetLoad(ctx, l.metrics, stats, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		l.logger.ErrorContext(ctx, "Dataset load failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, stats, err
	}

	span.SetAttributes(
		attribute.Int("dataset.rows_read", stats.RowsRead),
		attribute.Int("dataset.rows_dropped", stats.RowsDropped),
	)

	level := slog.LevelInfo
	if stats.RowsDropped > 0 || stats.CapacityCoerced > 0 || stats.UsedCoerced > 0 {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "Dataset loaded",
		slog.String("path", table.Source.Path),
		slog.String("size", humanize.Bytes(uint64(table.Source.Size))),
		slog.Int("rows_read", stats.RowsRead),
		slog.Int("rows_kept", stats.RowsKept()),
		slog.Int("rows_dropped", stats.RowsDropped),
		slog.Int("capacity_coerced", stats.CapacityCoerced),
		slog.Int("used_coerced", stats.UsedCoerced),
		slog.Duration("duration", time.Since(start)))

	return table, stats, nil
}

func (l *Loader) load(ctx context.Context, path string) (*domain.Table, domain.LoadStats, error) {
	var stats domain.LoadStats

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	info, err := l.validator.ValidateParquetFile(abs)
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrFileNotFound):
			return nil, stats, loadError(apperrors.NewStorageError("dataset file not found", err).WithContext("path", abs))
		case errors.Is(err, validation.ErrNotParquet):
			return nil, stats, loadError(apperrors.NewParsingError("dataset is not a parquet file", err).WithContext("path", abs))
		default:
			return nil, stats, loadError(apperrors.NewStorageError("dataset file is not readable", err).WithContext("path", abs))
		}
	}

	file, err := os.Open(abs)
	if err != nil {
		return nil, stats, loadError(apperrors.NewStorageError("dataset file is not readable", err))
	}
	defer file.Close()

	pf, err := columnar.Open(file, info.Size())
	if err != nil {
		return nil, stats, loadError(apperrors.NewParsingError("dataset is not a valid parquet file", err))
	}

	lay, err := resolveLayout(pf.Columns())
	if err != nil {
		return nil, stats, loadError(apperrors.NewParsingError("dataset schema is not usable", err))
	}

	table := &domain.Table{
		Columns: make([]string, 0, len(lay.passthrough)),
		Rows:    make([]domain.Reading, 0, pf.NumRows()),
		Source: domain.Source{
			Path:    abs,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		},
	}
	for _, i := range lay.passthrough {
		col := lay.columns[i]
		table.Columns = append(table.Columns, col.Name)
		if kind := passthroughKind(col.Kind); kind != domain.KindText {
			if table.Kinds == nil {
				table.Kinds = make(map[string]domain.ColumnKind)
			}
			table.Kinds[col.Name] = kind
		}
	}

	err = pf.Scan(func(row []columnar.Value) error {
		stats.RowsRead++
		if stats.RowsRead%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		ts, err := l.rowTime(lay, row)
		if err != nil {
			stats.RowsDropped++
			if stats.RowsDropped <= maxRowWarnings {
				l.logger.WarnContext(ctx, "Dropping row with unusable timestamp",
					slog.Int("row", stats.RowsRead),
					slog.String("error", err.Error()))
			}
			return nil
		}

		capacity, capOutcome := measure(lay, lay.capacity, row)
		if capOutcome == Invalid {
			stats.CapacityCoerced++
		}
		used, usedOutcome := measure(lay, lay.used, row)
		if usedOutcome == Invalid {
			stats.UsedCoerced++
		}

		r := domain.NewReading(ts, text(lay.columns[lay.typ], row[lay.typ]), text(lay.columns[lay.name], row[lay.name]), capacity, used)
		for _, i := range lay.passthrough {
			if row[i].Null {
				continue
			}
			if r.Extra == nil {
				r.Extra = make(map[string]string, len(lay.passthrough))
			}
			r.Extra[lay.columns[i].Name] = text(lay.columns[i], row[i])
		}
		table.Rows = append(table.Rows, r)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, stats, ctxErr
		}
		return nil, stats, loadError(apperrors.NewParsingError("failed to read dataset rows", err))
	}

	if stats.RowsDropped > maxRowWarnings {
		l.logger.WarnContext(ctx, "Further rows with unusable timestamps were dropped",
			slog.Int("suppressed_warnings", stats.RowsDropped-maxRowWarnings))
	}

	return table, stats, nil
}

func (l *Loader) rowTime(lay *layout, row []columnar.Value) (time.Time, error) {
	v := row[lay.time]
	if v.Null {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	switch lay.columns[lay.time].Kind {
	case columnar.KindTimestamp:
		return v.Time.UTC(), nil
	case columnar.KindInt64:
		return time.UnixMilli(v.Int).UTC(), nil
	default:
		return ParseTimestamp(v.Str, l.layouts)
	}
}

// measure reads a numeric column. Absent columns and nulls are Blank.
func measure(lay *layout, idx int, row []columnar.Value) (domain.NullFloat, Outcome) {
	if idx < 0 || row[idx].Null {
		return domain.Missing(), Blank
	}
	v := row[idx]
	switch lay.columns[idx].Kind {
	case columnar.KindDouble:
		f := domain.Float(v.Float)
		if !f.Valid {
			return f, Blank
		}
		return f, Present
	case columnar.KindInt64:
		return domain.Float(float64(v.Int)), Present
	case columnar.KindString:
		return CoerceFloat(v.Str)
	}
	return domain.Missing(), Invalid
}

// passthroughKind maps a file column type onto the table's column kinds
func passthroughKind(k columnar.Kind) domain.ColumnKind {
	switch k {
	case columnar.KindDouble:
		return domain.KindFloat
	case columnar.KindInt64:
		return domain.KindInt
	case columnar.KindBool:
		return domain.KindBool
	case columnar.KindTimestamp:
		return domain.KindTimestamp
	}
	return domain.KindText
}

// text renders any non-null cell as a passthrough string
func text(col columnar.Column, v columnar.Value) string {
	if v.Null {
		return ""
	}
	switch col.Kind {
	case columnar.KindString:
		return v.Str
	case columnar.KindDouble:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case columnar.KindInt64:
		return strconv.FormatInt(v.Int, 10)
	case columnar.KindBool:
		return strconv.FormatBool(v.Bool)
	case columnar.KindTimestamp:
		return v.Time.UTC().Format(domain.TimestampLayout + ".999999999")
	}
	return ""
}
