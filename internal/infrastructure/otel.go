package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	apperrors "tpcpower/internal/errors"
	"tpcpower/pkg/contracts/domain"
)

const (
	ServiceName    = "tpc-power-dashboard"
	ServiceVersion = "1.0.0"
	MeterName      = "tpcpower"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes tracing and metrics. Disabled signals fall back
// to no-op implementations so callers never need nil checks.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
		Tracer: otel.Tracer(MeterName),
		Meter:  noop.NewMeterProvider().Meter(MeterName),
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics registers the exporter on a private registry so several
// providers can coexist in one process.
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		registry := promclient.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		otel.SetMeterProvider(mp)

	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Dataset metrics
	DatasetLoadsTotal    metric.Int64Counter
	DatasetLoadDuration  metric.Float64Histogram
	DatasetRowsLoaded    metric.Int64Counter
	DatasetRowsDropped   metric.Int64Counter
	DatasetValuesCoerced metric.Int64Counter

	// Query metrics
	QueriesTotal    metric.Int64Counter
	QueriesRejected metric.Int64Counter
	QueryDuration   metric.Float64Histogram

	// Export metrics
	ExportsTotal metric.Int64Counter
	ExportBytes  metric.Int64Counter

	// WebSocket metrics
	WebSocketConnections metric.Int64UpDownCounter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.DatasetLoadsTotal, err = meter.Int64Counter(
		"dataset_loads_total",
		metric.WithDescription("Total number of dataset loads"),
	); err != nil {
		return nil, err
	}
	if m.DatasetLoadDuration, err = meter.Float64Histogram(
		"dataset_load_duration_seconds",
		metric.WithDescription("Dataset load duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.DatasetRowsLoaded, err = meter.Int64Counter(
		"dataset_rows_loaded_total",
		metric.WithDescription("Rows kept by dataset loads"),
	); err != nil {
		return nil, err
	}
	if m.DatasetRowsDropped, err = meter.Int64Counter(
		"dataset_rows_dropped_total",
		metric.WithDescription("Rows dropped because their timestamp could not be parsed"),
	); err != nil {
		return nil, err
	}
	if m.DatasetValuesCoerced, err = meter.Int64Counter(
		"dataset_values_coerced_total",
		metric.WithDescription("Non-numeric measure values coerced to missing"),
	); err != nil {
		return nil, err
	}

	if m.QueriesTotal, err = meter.Int64Counter(
		"queries_total",
		metric.WithDescription("Total number of filter and aggregate cycles"),
	); err != nil {
		return nil, err
	}
	if m.QueriesRejected, err = meter.Int64Counter(
		"queries_rejected_total",
		metric.WithDescription("Queries rejected by criteria validation"),
	); err != nil {
		return nil, err
	}
	if m.QueryDuration, err = meter.Float64Histogram(
		"query_duration_seconds",
		metric.WithDescription("Filter and aggregate duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.ExportsTotal, err = meter.Int64Counter(
		"exports_total",
		metric.WithDescription("Total number of exports by dataset and format"),
	); err != nil {
		return nil, err
	}
	if m.ExportBytes, err = meter.Int64Counter(
		"export_bytes_total",
		metric.WithDescription("Bytes produced by exports"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if m.WebSocketConnections, err = meter.Int64UpDownCounter(
		"websocket_connections",
		metric.WithDescription("Number of connected WebSocket clients"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// NewNoopMetrics returns metrics that record nothing
func NewNoopMetrics() *BusinessMetrics {
	m, _ := CreateBusinessMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// StartSpan starts a span on the global tracer provider
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(MeterName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}

// RecordDatasetLoad records the outcome of one dataset load
func RecordDatasetLoad(ctx context.Context, metrics *BusinessMetrics, stats domain.LoadStats, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	status := attribute.String("status", "success")
	if err != nil {
		status = attribute.String("status", "failure")
	}
	metrics.DatasetLoadsTotal.Add(ctx, 1, metric.WithAttributes(status))
	metrics.DatasetLoadDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(status))
	if err != nil {
		return
	}

	metrics.DatasetRowsLoaded.Add(ctx, int64(stats.RowsKept()))
	metrics.DatasetRowsDropped.Add(ctx, int64(stats.RowsDropped))
	metrics.DatasetValuesCoerced.Add(ctx, int64(stats.CapacityCoerced),
		metric.WithAttributes(attribute.String("column", domain.ColumnCapacity)))
	metrics.DatasetValuesCoerced.Add(ctx, int64(stats.UsedCoerced),
		metric.WithAttributes(attribute.String("column", domain.ColumnUsed)))
}

// RecordQuery records one filter and aggregate cycle. Validation failures
// count as rejections, not as queries.
func RecordQuery(ctx context.Context, metrics *BusinessMetrics, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	if apperrors.IsValidation(err) {
		metrics.QueriesRejected.Add(ctx, 1)
		return
	}

	status := attribute.String("status", "success")
	if err != nil {
		status = attribute.String("status", "failure")
	}
	metrics.QueriesTotal.Add(ctx, 1, metric.WithAttributes(status))
	metrics.QueryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(status))
}

// RecordExport records one serialized export
func RecordExport(ctx context.Context, metrics *BusinessMetrics, dataset, format string, size int, err error) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("dataset", dataset),
		attribute.String("format", format),
	}
	status := attribute.String("status", "success")
	if err != nil {
		status = attribute.String("status", "failure")
	}
	metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(append(attrs, status)...))
	if err == nil {
		metrics.ExportBytes.Add(ctx, int64(size), metric.WithAttributes(attrs...))
	}
}

// RecordHTTPRequest records one served HTTP request
func RecordHTTPRequest(ctx context.Context, metrics *BusinessMetrics, method, route string, status int, duration time.Duration) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	metrics.HTTPRequestsTotal.Add(ctx, 1, attrs)
	metrics.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordWebSocketConnection records a client connecting (+1) or leaving (-1)
func RecordWebSocketConnection(ctx context.Context, metrics *BusinessMetrics, delta int64) {
	if metrics == nil {
		return
	}
	metrics.WebSocketConnections.Add(ctx, delta)
}
