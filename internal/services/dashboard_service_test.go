package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpcpower/internal/dataprocessing"
	"tpcpower/internal/dataset"
	apierrors "tpcpower/internal/errors"
	"tpcpower/internal/exporter"
	"tpcpower/internal/infrastructure"
	api "tpcpower/pkg/contracts/api/v1"
	"tpcpower/pkg/contracts/domain"
)

type stubLoader struct {
	table *domain.Table
	err   error
	calls int
}

func (l *stubLoader) Load(ctx context.Context, path string) (*domain.Table, domain.LoadStats, error) {
	l.calls++
	if l.err != nil {
		return nil, domain.LoadStats{}, l.err
	}
	return l.table, domain.LoadStats{RowsRead: l.table.Len() + 1, RowsDropped: 1}, nil
}

func at(s string) time.Time {
	t, err := time.Parse(domain.TimestampLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleTable() *domain.Table {
	return &domain.Table{
		Columns: []string{"status"},
		Rows: []domain.Reading{
			domain.NewReading(at("2024-01-01 10:00:00"), "solar", "A", domain.Float(10), domain.Float(5)),
			domain.NewReading(at("2024-01-01 10:00:00"), "solar", "B", domain.Float(20), domain.Missing()),
			domain.NewReading(at("2024-01-01 10:00:00"), "wind", "C", domain.Float(7), domain.Float(3)),
			domain.NewReading(at("2024-01-02 11:00:00"), "wind", "C", domain.Missing(), domain.Missing()),
			domain.NewReading(at("2024-01-03 23:30:00"), "solar", "A", domain.Float(1), domain.Float(1)),
		},
		Source: domain.Source{Path: "clean.parquet"},
	}
}

func newTestService(t *testing.T, loader *stubLoader, opts DashboardOptions) *DashboardService {
	t.Helper()
	logger := infrastructure.DiscardLogger()
	cache := dataset.NewCache(loader, "clean.parquet", logger)
	return NewDashboardService(cache,
		dataprocessing.NewPipeline(logger, infrastructure.NewNoopMetrics()),
		exporter.New(logger, infrastructure.NewNoopMetrics()),
		opts, logger)
}

func TestDashboardService_Summary(t *testing.T) {
	svc := newTestService(t, &stubLoader{table: sampleTable()}, DashboardOptions{})

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "clean.parquet", summary.Path)
	assert.Equal(t, 5, summary.Rows)
	assert.Equal(t, []string{"solar", "wind"}, summary.Types)
	assert.Equal(t, []string{"status"}, summary.Columns)
	require.NotNil(t, summary.DateFrom)
	assert.Equal(t, "2024-01-01", summary.DateFrom.String())
	assert.Equal(t, "2024-01-03", summary.DateTo.String())
	assert.Equal(t, 1, summary.Stats.RowsDropped)
}

func TestDashboardService_NamesFor(t *testing.T) {
	svc := newTestService(t, &stubLoader{table: sampleTable()}, DashboardOptions{})

	names, err := svc.NamesFor(context.Background(), "solar")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names.Names)

	_, err = svc.NamesFor(context.Background(), "coal")
	assert.Equal(t, apierrors.ErrTypeNotFound, apierrors.TypeOf(err))
}

func TestDashboardService_QueryDefaults(t *testing.T) {
	svc := newTestService(t, &stubLoader{table: sampleTable()}, DashboardOptions{})

	resp, err := svc.Query(context.Background(), api.QueryRequest{})
	require.NoError(t, err)

	assert.Equal(t, 5, resp.TotalRows)
	assert.False(t, resp.Truncated)
	assert.Equal(t, []string{"time", "type", "name", "capacity", "used", "status"}, resp.Columns)
	require.Len(t, resp.Series, 3)
	assert.Equal(t, domain.Float(37), resp.Series[0].CapacitySum)
	assert.Equal(t, domain.Float(8), resp.Series[0].UsedSum)
	assert.False(t, resp.Series[1].CapacitySum.Valid)

	require.Len(t, resp.Downloads, 2)
	assert.Equal(t, "/api/export/filtered_raw.csv", resp.Downloads[0].URL)
	assert.Equal(t, "aggregated_by_time.csv", resp.Downloads[1].FileName)
}

func TestDashboardService_QuerySiteFilterAndCap(t *testing.T) {
	svc := newTestService(t, &stubLoader{table: sampleTable()}, DashboardOptions{MaxRows: 1})

	resp, err := svc.Query(context.Background(), api.QueryRequest{
		Types:  []string{"solar"},
		Names:  []string{"A"},
		Format: "columnar-binary",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.TotalRows)
	assert.True(t, resp.Truncated)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "A", resp.Rows[0].Name)

	link, err := url.Parse(resp.Downloads[0].URL)
	require.NoError(t, err)
	assert.Equal(t, "/api/export/filtered_raw.parquet", link.Path)
	assert.Equal(t, []string{"solar"}, link.Query()["type"])
	assert.Equal(t, []string{"A"}, link.Query()["name"])
	assert.Empty(t, link.Query().Get("format"))
}

func TestDashboardService_QueryRequestLimit(t *testing.T) {
	svc := newTestService(t, &stubLoader{table: sampleTable()}, DashboardOptions{MaxRows: 100})

	resp, err := svc.Query(context.Background(), api.QueryRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Rows, 2)
	assert.True(t, resp.Truncated)
}

func TestDashboardService_QueryRejectsInvalidCriteria(t *testing.T) {
	svc := newTestService(t, &stubLoader{table: sampleTable()}, DashboardOptions{})

	tests := []struct {
		name  string
		req   api.QueryRequest
		field string
	}{
		{"no types", api.QueryRequest{Types: []string{}}, "types"},
		{"reversed dates", api.QueryRequest{DateFrom: "2024-01-03", DateTo: "2024-01-01"}, "date_from"},
		{"reversed times", api.QueryRequest{TimeFrom: "22:00", TimeTo: "02:00"}, "time_from"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Query(context.Background(), tt.req)
			assert.Nil(t, resp)
			require.Error(t, err)
			assert.True(t, apierrors.IsValidation(err))

			var appErr *apierrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Context["field"])
		})
	}
}

func TestDashboardService_QueryUnsupportedFormat(t *testing.T) {
	svc := newTestService(t, &stubLoader{table: sampleTable()}, DashboardOptions{})

	_, err := svc.Query(context.Background(), api.QueryRequest{Format: "pdf"})
	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "UNSUPPORTED_FORMAT", apiErr.ErrorCode)
}

func TestDashboardService_QueryEmptyResult(t *testing.T) {
	svc := newTestService(t, &stubLoader{table: sampleTable()}, DashboardOptions{})

	resp, err := svc.Query(context.Background(), api.QueryRequest{Types: []string{"coal"}})
	require.NoError(t, err)
	assert.Zero(t, resp.TotalRows)
	assert.NotNil(t, resp.Rows)
	assert.Empty(t, resp.Rows)
	assert.NotNil(t, resp.Series)
	assert.Empty(t, resp.Series)
}

func TestDashboardService_Export(t *testing.T) {
	svc := newTestService(t, &stubLoader{table: sampleTable()}, DashboardOptions{})
	req := api.QueryRequest{Types: []string{"wind"}}

	artifact, err := svc.Export(context.Background(), "aggregated_by_time", req)
	require.NoError(t, err)
	assert.Equal(t, "aggregated_by_time.csv", artifact.FileName)
	assert.Equal(t, "text/csv; charset=utf-8", artifact.ContentType)
	assert.Equal(t,
		"time,capacity,used\n2024-01-01 10:00:00,7,3\n2024-01-02 11:00:00,,\n",
		strings.ReplaceAll(string(artifact.Data), "\r\n", "\n"))

	_, err = svc.Export(context.Background(), "everything", req)
	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "DATASET_NOT_FOUND", apiErr.ErrorCode)

	_, err = svc.Export(context.Background(), "filtered_raw", api.QueryRequest{Types: []string{}})
	assert.True(t, apierrors.IsValidation(err))
}

func TestDashboardService_ExportBundle(t *testing.T) {
	svc := newTestService(t, &stubLoader{table: sampleTable()}, DashboardOptions{})

	bundle, res, err := svc.ExportBundle(context.Background(), api.QueryRequest{Format: "xlsx"})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Filtered.Len())
	assert.Equal(t, "filtered_raw.xlsx", bundle.Filtered.FileName)
	assert.Equal(t, "aggregated_by_time.xlsx", bundle.Aggregated.FileName)
	assert.NotEmpty(t, bundle.Filtered.Data)
}

func TestDashboardService_LoadFailure(t *testing.T) {
	loadErr := apierrors.NewStorageError("dataset file not found", os.ErrNotExist)
	svc := newTestService(t, &stubLoader{err: loadErr}, DashboardOptions{})

	_, err := svc.Query(context.Background(), api.QueryRequest{})
	assert.Equal(t, apierrors.ErrTypeStorage, apierrors.TypeOf(err))

	_, err = svc.Reload(context.Background())
	assert.Error(t, err)
}

func TestDashboardService_Reload(t *testing.T) {
	loader := &stubLoader{table: sampleTable()}
	svc := newTestService(t, loader, DashboardOptions{})

	_, err := svc.Summary(context.Background())
	require.NoError(t, err)

	resp, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Reloaded)
	assert.Equal(t, 5, resp.Dataset.Rows)
	assert.Equal(t, 2, loader.calls)
}

func TestEncodeQuery(t *testing.T) {
	q := EncodeQuery(api.QueryRequest{
		DateFrom: "2024-01-01",
		TimeTo:   "18:00",
		Types:    []string{"solar", "wind"},
		Limit:    10,
	})
	assert.Equal(t, "date_from=2024-01-01&limit=10&time_to=18%3A00&type=solar&type=wind", q.Encode())
}

func TestHealthService(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clean.parquet")
	require.NoError(t, os.WriteFile(path, []byte("PAR1"), 0o644))

	logger := infrastructure.DiscardLogger()
	cache := dataset.NewCache(&stubLoader{table: sampleTable()}, path, logger)
	hs := NewHealthService("1.2.3", cache, fakeClients(3), logger)

	assert.Equal(t, "ok", hs.HealthCheck(context.Background()).Status)
	assert.Equal(t, "alive", hs.LivenessCheck(context.Background()).Status)
	assert.Equal(t, "1.2.3", hs.Version()["version"])

	ready := hs.ReadinessCheck(context.Background())
	assert.Equal(t, "not_ready", ready.Status)
	assert.Equal(t, ErrDatasetNotLoaded.Error(), ready.Services["dataset"].(ServiceHealth).Message)

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	ready = hs.ReadinessCheck(context.Background())
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "3 clients connected", ready.Services["websocket"].(ServiceHealth).Message)

	require.NoError(t, os.Remove(path))
	assert.Equal(t, "not_ready", hs.ReadinessCheck(context.Background()).Status)
}

type fakeClients int

func (f fakeClients) ClientCount() int { return int(f) }
