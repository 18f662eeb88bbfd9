package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "tpcpower/internal/errors"
)

// DatasetHandler serves the dataset summary and the filter option lists
type DatasetHandler struct {
	service      DashboardServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes, mounted at /api/dataset
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetSummary)
	r.Get("/types", h.GetTypes)
	r.Get("/types/{type}/names", h.GetNames)
	r.Post("/reload", h.Reload)

	return r
}

// GetSummary handles GET /api/dataset
func (h *DatasetHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// GetTypes handles GET /api/dataset/types
func (h *DatasetHandler) GetTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.Types(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   types,
		"count":  len(types),
	})
}

// GetNames handles GET /api/dataset/types/{type}/names
func (h *DatasetHandler) GetNames(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	if typ == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("type", "type is required"))
		return
	}

	names, err := h.service.NamesFor(r.Context(), typ)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   names,
		"count":  len(names.Names),
	})
}

// Reload handles POST /api/dataset/reload
func (h *DatasetHandler) Reload(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "Dataset reload requested",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("remote_addr", r.RemoteAddr),
	)

	resp, err := h.service.Reload(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   resp,
	})
}
