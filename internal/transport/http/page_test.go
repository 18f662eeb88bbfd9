package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpcpower/internal/dataprocessing"
	"tpcpower/internal/dataset"
	"tpcpower/internal/exporter"
	"tpcpower/internal/infrastructure"
	mw "tpcpower/internal/middleware"
	"tpcpower/internal/services"
	"tpcpower/pkg/contracts/domain"
)

type tableLoader struct {
	table *domain.Table
}

func (l tableLoader) Load(ctx context.Context, path string) (*domain.Table, domain.LoadStats, error) {
	return l.table, domain.LoadStats{RowsRead: l.table.Len()}, nil
}

func at(s string) time.Time {
	t, err := time.Parse(domain.TimestampLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newPageHandler(t *testing.T) *PageHandler {
	t.Helper()
	logger := infrastructure.DiscardLogger()
	reading := func(ts, typ, name string, capacity, used float64) domain.Reading {
		r := domain.NewReading(at(ts), typ, name, domain.Float(capacity), domain.Float(used))
		r.Extra = map[string]string{"status": "online"}
		return r
	}
	table := &domain.Table{
		Columns: []string{"status"},
		Rows: []domain.Reading{
			reading("2024-01-01 10:00:00", "solar", "North Farm", 10, 5),
			reading("2024-01-01 10:00:00", "wind", "Ridge", 7, 3),
			reading("2024-01-02 11:00:00", "solar", "South Farm", 12, 6),
		},
	}
	cache := dataset.NewCache(tableLoader{table: table}, "clean.parquet", logger)
	svc := services.NewDashboardService(cache,
		dataprocessing.NewPipeline(logger, infrastructure.NewNoopMetrics()),
		exporter.New(logger, infrastructure.NewNoopMetrics()),
		services.DashboardOptions{}, logger)
	return NewPageHandler(svc, mw.NewRequestValidator(), PageOptions{}, logger, testErrorHandler())
}

func servePage(t *testing.T, h *PageHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeDashboard(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestPageHandler_Defaults(t *testing.T) {
	rec := servePage(t, newPageHandler(t), "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<title>TPC power information</title>")
	assert.Contains(t, body, `value="2024-01-01"`)
	assert.Contains(t, body, `value="2024-01-02"`)
	assert.Contains(t, body, `name="type" value="solar" checked`)
	assert.Contains(t, body, `name="type" value="wind" checked`)
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "North Farm")
	assert.Contains(t, body, "<td>online</td>")
	assert.Contains(t, body, "/api/export/filtered_raw.csv")
	assert.Contains(t, body, "/api/export/aggregated_by_time.csv")
	// several types selected: no site list
	assert.NotContains(t, body, `name="name"`)
}

func TestPageHandler_SingleTypeShowsSites(t *testing.T) {
	rec := servePage(t, newPageHandler(t), "/?type=&type=solar&format=xlsx")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="name"`)
	assert.Contains(t, body, `<option value="North Farm">North Farm</option>`)
	assert.NotContains(t, body, "Ridge")
	assert.Contains(t, body, "/api/export/filtered_raw.xlsx")
	assert.Contains(t, body, `<option value="xlsx" selected>`)
}

func TestPageHandler_RejectedSelection(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		message string
	}{
		{"no type selected", "/?type=", "at least one type must be selected"},
		{"malformed date", "/?date_from=yesterday", "date_from must be a date formatted YYYY-MM-DD"},
		{"reversed times", "/?time_from=18:00&time_to=06:00", "time_from must not be after time_to"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := servePage(t, newPageHandler(t), tt.target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, `role="alert"`)
			assert.Contains(t, body, tt.message)
			// the form is still rendered
			assert.Contains(t, body, `<form method="get" action="/">`)
			assert.NotContains(t, body, "<svg")
		})
	}
}
