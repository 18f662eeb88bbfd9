package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"tpcpower/internal/dataprocessing"
	"tpcpower/internal/dataset"
	apierrors "tpcpower/internal/errors"
	"tpcpower/internal/exporter"
	"tpcpower/internal/infrastructure"
	api "tpcpower/pkg/contracts/api/v1"
	"tpcpower/pkg/contracts/domain"
)

// DatasetSource is the part of dataset.Cache the service depends on
type DatasetSource interface {
	Get(ctx context.Context) (*dataset.Snapshot, error)
	Reload(ctx context.Context) (*dataset.Snapshot, error)
	Peek() *dataset.Snapshot
	Path() string
}

// DashboardOptions tunes the query responses
type DashboardOptions struct {
	// MaxRows caps the filtered rows returned inline; exports are never capped
	MaxRows int
	// ExportBasePath prefixes the download links
	ExportBasePath string
}

// DashboardService runs the filter, aggregate and export cycle against the
// cached dataset
type DashboardService struct {
	source   DatasetSource
	pipeline *dataprocessing.Pipeline
	exporter *exporter.Exporter
	opts     DashboardOptions
	logger   *slog.Logger
}

// NewDashboardService creates the service
func NewDashboardService(source DatasetSource, pipeline *dataprocessing.Pipeline, exp *exporter.Exporter, opts DashboardOptions, logger *slog.Logger) *DashboardService {
	if opts.MaxRows <= 0 {
		opts.MaxRows = 1000
	}
	if opts.ExportBasePath == "" {
		opts.ExportBasePath = "/api/export"
	}
	return &DashboardService{
		source:   source,
		pipeline: pipeline,
		exporter: exp,
		opts:     opts,
		logger:   infrastructure.WithComponent(logger, "dashboard_service"),
	}
}

// MaxRows returns the inline row cap
func (s *DashboardService) MaxRows() int {
	return s.opts.MaxRows
}

// Summary describes the loaded dataset
func (s *DashboardService) Summary(ctx context.Context) (*api.DatasetSummary, error) {
	snap, err := s.source.Get(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(s.source.Path(), snap), nil
}

func summarize(path string, snap *dataset.Snapshot) *api.DatasetSummary {
	summary := &api.DatasetSummary{
		Path:     path,
		Rows:     snap.Table.Len(),
		Types:    nonNil(snap.Table.Types()),
		Columns:  nonNil(snap.Table.Columns),
		Stats:    snap.Stats,
		Source:   snap.Table.Source,
		LoadedAt: snap.LoadedAt,
	}
	if lo, hi, ok := snap.Table.DateBounds(); ok {
		summary.DateFrom, summary.DateTo = &lo, &hi
	}
	return summary
}

// Types lists the technology types present in the dataset
func (s *DashboardService) Types(ctx context.Context) ([]string, error) {
	snap, err := s.source.Get(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(snap.Table.Types()), nil
}

// NamesFor lists the sites recorded for one type. Site selection only
// applies when a single type is chosen, so names are offered per type.
func (s *DashboardService) NamesFor(ctx context.Context, typ string) (*api.NamesResponse, error) {
	snap, err := s.source.Get(ctx)
	if err != nil {
		return nil, err
	}
	names := snap.Table.NamesFor(typ)
	if len(names) == 0 {
		return nil, apierrors.NewNotFoundError(fmt.Sprintf("type %q", typ)).WithContext("type", typ)
	}
	return &api.NamesResponse{Type: typ, Names: names}, nil
}

// DefaultCriteria returns the selection covering the whole dataset
func (s *DashboardService) DefaultCriteria(ctx context.Context) (domain.FilterCriteria, error) {
	snap, err := s.source.Get(ctx)
	if err != nil {
		return domain.FilterCriteria{}, err
	}
	return domain.DefaultCriteria(snap.Table), nil
}

// Run resolves req against the dataset defaults and runs one filter and
// aggregate cycle. Invalid criteria are returned as validation errors.
func (s *DashboardService) Run(ctx context.Context, req api.QueryRequest) (*dataprocessing.Result, error) {
	snap, err := s.source.Get(ctx)
	if err != nil {
		return nil, err
	}

	criteria, err := req.Criteria(domain.DefaultCriteria(snap.Table))
	if err != nil {
		return nil, apierrors.NewAppValidationError(err.Error())
	}

	return s.pipeline.Run(ctx, snap.Table, criteria)
}

// Query runs the cycle and shapes the response: the filtered rows capped at
// the smaller of MaxRows and the request limit, the full aggregated series
// and one download link per export.
func (s *DashboardService) Query(ctx context.Context, req api.QueryRequest) (*api.QueryResponse, error) {
	format, err := requestFormat(req)
	if err != nil {
		return nil, err
	}

	res, err := s.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	limit := s.opts.MaxRows
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}
	rows := res.Filtered.Rows
	truncated := len(rows) > limit
	if truncated {
		rows = rows[:limit]
	}

	return &api.QueryResponse{
		Criteria:  res.Criteria,
		TotalRows: res.Filtered.Len(),
		Truncated: truncated,
		Columns:   Columns(res.Filtered),
		Rows:      nonNil(rows),
		Series:    res.Series,
		Downloads: s.DownloadLinks(req, format),
	}, nil
}

// Export runs the cycle and encodes one view of the result. The format
// defaults to CSV.
func (s *DashboardService) Export(ctx context.Context, datasetName string, req api.QueryRequest) (*exporter.Artifact, error) {
	ds, err := exporter.ParseDataset(datasetName)
	if err != nil {
		return nil, exportRequestError(err)
	}
	format, err := requestFormat(req)
	if err != nil {
		return nil, err
	}

	res, err := s.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, ds, format, res.Filtered, res.Series)
}

// ExportBundle runs the cycle and encodes both views
func (s *DashboardService) ExportBundle(ctx context.Context, req api.QueryRequest) (*exporter.Bundle, *dataprocessing.Result, error) {
	format, err := requestFormat(req)
	if err != nil {
		return nil, nil, err
	}

	res, err := s.Run(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	bundle, err := s.exporter.ExportBundle(ctx, format, res.Filtered, res.Series)
	if err != nil {
		return nil, nil, err
	}
	return bundle, res, nil
}

// Reload reads the dataset from disk now. On failure the previous snapshot
// stays in service.
func (s *DashboardService) Reload(ctx context.Context) (*api.ReloadResponse, error) {
	start := time.Now()
	snap, err := s.source.Reload(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Dataset reload failed",
			slog.String("path", s.source.Path()),
			slog.String("error", err.Error()))
		return nil, err
	}

	duration := time.Since(start)
	s.logger.InfoContext(ctx, "Dataset reloaded",
		slog.String("path", s.source.Path()),
		slog.Int("rows", snap.Table.Len()),
		slog.Duration("duration", duration))

	return &api.ReloadResponse{
		Reloaded: true,
		Dataset:  *summarize(s.source.Path(), snap),
		Duration: duration.String(),
	}, nil
}

// DownloadLinks builds the export URLs for req. The links carry the
// request's own fields so the server resolves the same defaults again.
func (s *DashboardService) DownloadLinks(req api.QueryRequest, format exporter.Format) []api.DownloadLink {
	q := EncodeQuery(req)
	q.Del("format")
	q.Del("limit")
	query := q.Encode()

	links := make([]api.DownloadLink, 0, 2)
	for _, ds := range []exporter.Dataset{exporter.DatasetFiltered, exporter.DatasetAggregated} {
		name := exporter.FileName(ds, format)
		link := s.opts.ExportBasePath + "/" + name
		if query != "" {
			link += "?" + query
		}
		links = append(links, api.DownloadLink{
			Dataset:  string(ds),
			Format:   string(format),
			FileName: name,
			URL:      link,
		})
	}
	return links
}

// EncodeQuery renders req as URL query values understood by the export endpoint
func EncodeQuery(req api.QueryRequest) url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("date_from", req.DateFrom)
	set("date_to", req.DateTo)
	set("time_from", req.TimeFrom)
	set("time_to", req.TimeTo)
	set("format", req.Format)
	for _, t := range req.Types {
		q.Add("type", t)
	}
	for _, n := range req.Names {
		q.Add("name", n)
	}
	if req.Limit > 0 {
		q.Set("limit", fmt.Sprint(req.Limit))
	}
	return q
}

// Columns returns the column header of a filtered table
func Columns(t *domain.Table) []string {
	cols := []string{domain.ColumnTime, domain.ColumnType, domain.ColumnName, domain.ColumnCapacity, domain.ColumnUsed}
	if t != nil {
		cols = append(cols, t.Columns...)
	}
	return cols
}

func requestFormat(req api.QueryRequest) (exporter.Format, error) {
	if req.Format == "" {
		return exporter.FormatCSV, nil
	}
	f, err := exporter.ParseFormat(req.Format)
	if err != nil {
		return "", exportRequestError(err)
	}
	return f, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
