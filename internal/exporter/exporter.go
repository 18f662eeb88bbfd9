package exporter

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	apperrors "tpcpower/internal/errors"
	"tpcpower/internal/infrastructure"
	"tpcpower/pkg/contracts/domain"
)

// Artifact is one encoded download
type Artifact struct {
	Dataset     Dataset
	Format      Format
	FileName    string
	ContentType string
	Data        []byte
}

// Bundle holds the two downloads produced for one query result
type Bundle struct {
	Filtered   *Artifact
	Aggregated *Artifact
}

func encode(f *frame, format Format) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = encodeCSV(f)
	case FormatParquet:
		data, err = encodeParquet(f)
	case FormatXLSX:
		data, err = encodeXLSX(f)
	default:
		return nil, apperrors.NewExportError("unsupported export format", ErrUnsupportedFormat).
			WithContext("format", string(format))
	}
	if err != nil {
		return nil, apperrors.NewExportError("failed to encode "+f.name, err).
			WithContext("format", string(format))
	}
	return data, nil
}

// ExportReadings encodes filtered rows. The table is only read.
func ExportReadings(table *domain.Table, format Format) ([]byte, error) {
	return encode(readingsFrame(table), format)
}

// ExportSeries encodes an aggregated series
func ExportSeries(series domain.AggregatedSeries, format Format) ([]byte, error) {
	return encode(seriesFrame(series), format)
}

// Exporter produces download artifacts and records export metrics
type Exporter struct {
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// New creates an Exporter. metrics may be nil.
func New(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Exporter {
	return &Exporter{
		logger:  infrastructure.WithComponent(logger, "exporter"),
		metrics: metrics,
	}
}

// Export encodes one dataset view of a query result
func (e *Exporter) Export(ctx context.Context, dataset Dataset, format Format, filtered *domain.Table, series domain.AggregatedSeries) (*Artifact, error) {
	start := time.Now()
	ctx, span := infrastructure.StartSpan(ctx, "export."+string(dataset),
		attribute.String("export.format", string(format)))
	defer span.End()

	var (
		data []byte
		err  error
	)
	switch dataset {
	case DatasetFiltered:
		data, err = ExportReadings(filtered, format)
	case DatasetAggregated:
		data, err = ExportSeries(series, format)
	default:
		err = apperrors.NewNotFoundError("export dataset " + string(dataset))
	}

	infrastructure.RecordExport(ctx, e.metrics, string(dataset), string(format), len(data), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		e.logger.ErrorContext(ctx, "Export failed",
			slog.String("dataset", string(dataset)),
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
		return nil, err
	}

	span.SetAttributes(attribute.Int("export.bytes", len(data)))
	e.logger.DebugContext(ctx, "Export encoded",
		slog.String("dataset", string(dataset)),
		slog.String("format", string(format)),
		slog.Int("bytes", len(data)),
		slog.Duration("duration", time.Since(start)))

	return &Artifact{
		Dataset:     dataset,
		Format:      format,
		FileName:    FileName(dataset, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// ExportBundle encodes both views concurrently. The two encoders share only
// read access to their inputs.
func (e *Exporter) ExportBundle(ctx context.Context, format Format, filtered *domain.Table, series domain.AggregatedSeries) (*Bundle, error) {
	var bundle Bundle
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a, err := e.Export(gctx, DatasetFiltered, format, filtered, series)
		bundle.Filtered = a
		return err
	})
	g.Go(func() error {
		a, err := e.Export(gctx, DatasetAggregated, format, filtered, series)
		bundle.Aggregated = a
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &bundle, nil
}
