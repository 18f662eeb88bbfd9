package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpcpower/internal/dataset"
	"tpcpower/internal/infrastructure"
	"tpcpower/internal/services"
	"tpcpower/pkg/contracts/domain"
)

type fixedClients int

func (c fixedClients) ClientCount() int { return int(c) }

func TestHealthHandler(t *testing.T) {
	logger := infrastructure.DiscardLogger()
	path := filepath.Join(t.TempDir(), "clean.parquet")
	require.NoError(t, os.WriteFile(path, []byte("PAR1"), 0o644))

	table := &domain.Table{Rows: []domain.Reading{
		domain.NewReading(at("2024-01-01 10:00:00"), "solar", "North Farm", domain.Float(10), domain.Float(5)),
	}}
	cache := dataset.NewCache(tableLoader{table: table}, path, logger)
	handler := NewHealthHandler(services.NewHealthService("1.2.3", cache, fixedClients(2), logger), logger)

	r := chi.NewRouter()
	r.Mount("/api/health", handler.Routes())
	r.Get("/api/version", handler.Version)

	get := func(path string) (*httptest.ResponseRecorder, map[string]interface{}) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return rec, body
	}

	rec, body := get("/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec, body = get("/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "nothing loaded yet")
	assert.Equal(t, "not_ready", body["status"])

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	rec, body = get("/api/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	deps := body["services"].(map[string]interface{})
	assert.Equal(t, "ready", deps["dataset"].(map[string]interface{})["status"])
	assert.Equal(t, "2 clients connected", deps["websocket"].(map[string]interface{})["message"])

	rec, body = get("/api/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", body["status"])

	rec, body = get("/api/version")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.2.3", body["version"])
}
