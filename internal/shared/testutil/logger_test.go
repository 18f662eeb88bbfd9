package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecorder(t *testing.T) {
	logger, rec := NewTestLogger(t)

	child := logger.With(slog.String("component", "loader"))
	child.Warn("Dropping row", slog.Int("row", 3))
	logger.WithGroup("http").Info("request", slog.Int("status", 200))
	logger.Debug("noise")

	records := rec.Records()
	require.Len(t, records, 3)
	assert.Equal(t, map[string]any{"component": "loader", "row": int64(3)}, records[0].Attrs)
	assert.Equal(t, map[string]any{"http.status": int64(200)}, records[1].Attrs)

	got := AssertLogged(t, rec, slog.LevelWarn, "Dropping")
	assert.Equal(t, "loader", got.Attrs["component"])
	assert.Empty(t, rec.Find(slog.LevelError, ""))
	AssertNoErrors(t, rec)
}
