package http

import (
	"context"

	"tpcpower/internal/exporter"
	api "tpcpower/pkg/contracts/api/v1"
	"tpcpower/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dashboard operations used by the handlers
type DashboardServiceInterface interface {
	Summary(ctx context.Context) (*api.DatasetSummary, error)
	Types(ctx context.Context) ([]string, error)
	NamesFor(ctx context.Context, typ string) (*api.NamesResponse, error)
	DefaultCriteria(ctx context.Context) (domain.FilterCriteria, error)
	Query(ctx context.Context, req api.QueryRequest) (*api.QueryResponse, error)
	Export(ctx context.Context, dataset string, req api.QueryRequest) (*exporter.Artifact, error)
	Reload(ctx context.Context) (*api.ReloadResponse, error)
}
