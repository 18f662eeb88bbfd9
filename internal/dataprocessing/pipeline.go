package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"tpcpower/internal/infrastructure"
	"tpcpower/pkg/contracts/domain"
)

// Result is the output of one filter and aggregate cycle
type Result struct {
	Criteria domain.FilterCriteria
	Filtered *domain.Table
	Series   domain.AggregatedSeries
}

// Pipeline runs Filter then Aggregate with tracing, logging and metrics
type Pipeline struct {
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewPipeline creates a pipeline. metrics may be nil.
func NewPipeline(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Pipeline {
	return &Pipeline{
		logger:  infrastructure.WithComponent(logger, "pipeline"),
		metrics: metrics,
	}
}

// Run filters table by criteria and aggregates the matching rows
func (p *Pipeline) Run(ctx context.Context, table *domain.Table, criteria domain.FilterCriteria) (*Result, error) {
	start := time.Now()
	ctx, span := infrastructure.StartSpan(ctx, "pipeline.run",
		attribute.String("criteria.date_from", criteria.DateFrom.String()),
		attribute.String("criteria.date_to", criteria.DateTo.String()),
		attribute.StringSlice("criteria.types", criteria.Types),
		attribute.Int("criteria.names", len(criteria.Names)),
	)
	defer span.End()

	filtered, err := p.filter(ctx, table, criteria)
	if err != nil {
		infrastructure.RecordQuery(ctx, p.metrics, time.Since(start), err)
		infrastructure.RecordError(ctx, err)
		p.logger.InfoContext(ctx, "Query rejected", slog.String("reason", err.Error()))
		return nil, err
	}

	series := p.aggregate(ctx, filtered)

	duration := time.Since(start)
	infrastructure.RecordQuery(ctx, p.metrics, duration, nil)
	span.SetAttributes(
		attribute.Int("result.rows", filtered.Len()),
		attribute.Int("result.points", len(series)),
	)
	p.logger.DebugContext(ctx, "Query completed",
		slog.Int("rows", filtered.Len()),
		slog.Int("points", len(series)),
		slog.Duration("duration", duration))

	return &Result{Criteria: criteria, Filtered: filtered, Series: series}, nil
}

func (p *Pipeline) filter(ctx context.Context, table *domain.Table, criteria domain.FilterCriteria) (*domain.Table, error) {
	_, span := infrastructure.StartSpan(ctx, "pipeline.filter", attribute.Int("input.rows", table.Len()))
	defer span.End()
	return Filter(table, criteria)
}

func (p *Pipeline) aggregate(ctx context.Context, filtered *domain.Table) domain.AggregatedSeries {
	_, span := infrastructure.StartSpan(ctx, "pipeline.aggregate", attribute.Int("input.rows", filtered.Len()))
	defer span.End()
	return Aggregate(filtered)
}
