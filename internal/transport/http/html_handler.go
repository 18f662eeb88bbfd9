package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5/middleware"

	apierrors "tpcpower/internal/errors"
	"tpcpower/internal/exporter"
	mw "tpcpower/internal/middleware"
	"tpcpower/internal/services"
	api "tpcpower/pkg/contracts/api/v1"
	"tpcpower/pkg/contracts/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"comma":     func(n int) string { return humanize.Comma(int64(n)) },
	"add":       func(a, b int) int { return a + b },
	"sub":       func(a, b int) int { return a - b },
	"half":      func(n int) int { return n / 2 },
	"timestamp": func(t time.Time) string { return t.Format(domain.TimestampLayout) },
	"attr": func(r domain.Reading, column string) string {
		v, _ := r.Attr(column)
		return v
	},
}

var dashboardTemplate = template.Must(template.New("dashboard.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/dashboard.html"))

// PageOptions configures the dashboard page
type PageOptions struct {
	Title       string
	ChartWidth  int
	ChartHeight int
}

// PageHandler renders the HTML dashboard. The filter form submits to the
// page itself, so every interaction is one GET with the criteria in the URL.
type PageHandler struct {
	service      DashboardServiceInterface
	validator    *mw.RequestValidator
	opts         PageOptions
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPageHandler creates the dashboard page handler
func NewPageHandler(service DashboardServiceInterface, validator *mw.RequestValidator, opts PageOptions, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PageHandler {
	if opts.Title == "" {
		opts.Title = "TPC power information"
	}
	if opts.ChartWidth <= 0 {
		opts.ChartWidth = 960
	}
	if opts.ChartHeight <= 0 {
		opts.ChartHeight = 360
	}
	return &PageHandler{
		service:      service,
		validator:    validator,
		opts:         opts,
		logger:       logger.With(slog.String("component", "page_handler")),
		errorHandler: errorHandler,
	}
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type formState struct {
	DateFrom, DateTo string
	TimeFrom, TimeTo string
}

type pageData struct {
	Title       string
	Summary     *api.DatasetSummary
	Form        formState
	DateMin     string
	DateMax     string
	Types       []option
	ShowNames   bool
	Names       []option
	Formats     []option
	Errors      []string
	Result      *api.QueryResponse
	Chart       *lineChart
	Passthrough []string
}

// ServeDashboard handles GET /
func (h *PageHandler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.service.Summary(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defaults, err := h.service.DefaultCriteria(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data := &pageData{
		Title:       h.opts.Title,
		Summary:     summary,
		Passthrough: summary.Columns,
	}
	if summary.DateFrom != nil {
		data.DateMin, data.DateMax = summary.DateFrom.String(), summary.DateTo.String()
	}

	status := http.StatusOK
	req, err := h.validator.BindQuery(r)
	if err == nil {
		data.Result, err = h.service.Query(ctx, req)
	}
	if err != nil {
		msgs, ok := validationMessages(err)
		if !ok {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		// the form stays usable with the rejected selection
		status = http.StatusBadRequest
		data.Errors = msgs
		h.logger.InfoContext(ctx, "Dashboard selection rejected",
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.Any("errors", msgs))
	}

	h.fillForm(r, data, req, defaults)
	if data.Result != nil {
		data.Chart = buildChart(data.Result.Series, h.opts.ChartWidth, h.opts.ChartHeight)
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(ctx, "Dashboard render failed", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, fmt.Errorf("render dashboard: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// fillForm echoes the submitted selection, falling back to the defaults
func (h *PageHandler) fillForm(r *http.Request, data *pageData, req api.QueryRequest, defaults domain.FilterCriteria) {
	data.Form = formState{
		DateFrom: firstNonEmpty(req.DateFrom, defaults.DateFrom.String()),
		DateTo:   firstNonEmpty(req.DateTo, defaults.DateTo.String()),
		TimeFrom: firstNonEmpty(req.TimeFrom, hhmm(defaults.TimeFrom)),
		TimeTo:   firstNonEmpty(req.TimeTo, hhmm(defaults.TimeTo)),
	}

	selected := defaults.Types
	if req.Types != nil {
		selected = req.Types
	}
	data.Types = options(data.Summary.Types, selected)

	if len(selected) == 1 {
		data.ShowNames = true
		if names, err := h.service.NamesFor(r.Context(), selected[0]); err == nil {
			data.Names = options(names.Names, req.Names)
		}
	}

	format := exporter.FormatCSV
	if f, err := exporter.ParseFormat(req.Format); err == nil {
		format = f
	}
	for _, f := range exporter.Formats {
		data.Formats = append(data.Formats, option{Value: string(f), Label: f.Label(), Selected: f == format})
	}
}

// validationMessages extracts user-facing messages from a rejected selection.
// ok is false for errors the user cannot correct.
func validationMessages(err error) ([]string, bool) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		if details, ok := apiErr.Details.(apierrors.ValidationErrors); ok {
			msgs := make([]string, 0, len(details.Errors))
			for _, fe := range details.Errors {
				msgs = append(msgs, fe.Message)
			}
			return msgs, true
		}
		return []string{apiErr.Message}, true
	}

	var appErr *apierrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apierrors.ErrTypeValidation {
		return []string{appErr.Message}, true
	}
	return nil, false
}

func options(values, selected []string) []option {
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s] = true
	}
	out := make([]option, 0, len(values))
	for _, v := range values {
		out = append(out, option{Value: v, Label: v, Selected: chosen[v]})
	}
	return out
}

func hhmm(t domain.TimeOfDay) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Ensure the concrete service satisfies the handler contract
var _ DashboardServiceInterface = (*services.DashboardService)(nil)
