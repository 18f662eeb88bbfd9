package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"tpcpower/internal/config"
)

func lastJSONLine(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("test message", "key", "value")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	entry := lastJSONLine(t, content)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "json", Output: "console"}, &buf)
	require.NoError(t, err)

	ctx := WithTraceID(context.Background(), "test-trace-123")
	logger.InfoContext(ctx, "test with trace")

	entry := lastJSONLine(t, buf.Bytes())
	assert.Equal(t, "test-trace-123", entry["trace_id"])

	buf.Reset()
	WithComponent(logger, "loader").InfoContext(ctx, "with component")
	entry = lastJSONLine(t, buf.Bytes())
	assert.Equal(t, "test-trace-123", entry["trace_id"])
	assert.Equal(t, "loader", entry["component"])
}

func TestSpanCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "console"}, &buf)
	require.NoError(t, err)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.InfoContext(ctx, "inside a span")
	entry := lastJSONLine(t, buf.Bytes())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])

	buf.Reset()
	logger.InfoContext(WithTraceID(ctx, "req-7"), "request id wins")
	entry = lastJSONLine(t, buf.Bytes())
	assert.Equal(t, "req-7", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		logDebug bool
		logInfo  bool
		logWarn  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warn", false, false, true},
		{"error", false, false, false},
		{"bogus", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(config.LoggingConfig{Level: tt.level, Output: "console"}, &buf)
			require.NoError(t, err)

			logger.Debug("debug msg")
			logger.Info("info msg")
			logger.Warn("warn msg")

			out := buf.String()
			assert.Equal(t, tt.logDebug, strings.Contains(out, "debug msg"))
			assert.Equal(t, tt.logInfo, strings.Contains(out, "info msg"))
			assert.Equal(t, tt.logWarn, strings.Contains(out, "warn msg"))
		})
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "console"}, &buf)
	require.NoError(t, err)

	logger.Info("plain", "rows", 3)
	assert.Contains(t, buf.String(), "msg=plain")
	assert.Contains(t, buf.String(), "rows=3")
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = EnsureTraceID(ctx)
	id := GetTraceID(ctx)
	assert.Len(t, id, 36)

	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)))
	assert.NotEqual(t, GenerateTraceID(), GenerateTraceID())
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Output: "console"}, &buf)
	require.NoError(t, err)

	assert.Same(t, logger, WithError(logger, nil))

	WithError(logger, assert.AnError).Info("failed")
	entry := lastJSONLine(t, buf.Bytes())
	assert.Equal(t, assert.AnError.Error(), entry["error"])
}
