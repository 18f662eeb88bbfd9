package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "tpcpower/internal/errors"
	"tpcpower/internal/exporter"
	mw "tpcpower/internal/middleware"
	api "tpcpower/pkg/contracts/api/v1"
)

// QueryHandler runs filter and aggregate cycles and serves their downloads
type QueryHandler struct {
	service      DashboardServiceInterface
	validator    *mw.RequestValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(service DashboardServiceInterface, validator *mw.RequestValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryHandler {
	return &QueryHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "query_handler")),
		errorHandler: errorHandler,
	}
}

// Query handles POST /api/query
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req api.QueryRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.Query(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "Query served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("total_rows", resp.TotalRows),
		slog.Int("points", len(resp.Series)),
	)

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   resp,
	})
}

// Export handles GET /api/export/{file}, where file is <dataset>.<ext>.
// The extension selects the format; the criteria come from the query string.
func (h *QueryHandler) Export(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	dot := strings.LastIndexByte(file, '.')
	if dot <= 0 || dot == len(file)-1 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "file must be <dataset>.<format>"))
		return
	}
	datasetName, ext := file[:dot], file[dot+1:]

	if _, err := exporter.ParseFormat(ext); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.UnsupportedFormat(err.Error(), exporter.Extensions()))
		return
	}

	req, err := h.validator.BindQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	req.Format = ext

	artifact, err := h.service.Export(r.Context(), datasetName, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Export served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("file", artifact.FileName),
		slog.String("size", humanize.Bytes(uint64(len(artifact.Data)))),
	)

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		h.logger.WarnContext(r.Context(), "Export write interrupted",
			slog.String("file", artifact.FileName),
			slog.String("error", err.Error()))
	}
}
