// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log call. Attrs include those added with
// Logger.With.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// recorder is shared by a handler and every handler derived from it
type recorder struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogRecorder is a slog.Handler that keeps every record in memory
type LogRecorder struct {
	rec    *recorder
	attrs  []slog.Attr
	prefix string
	t      testing.TB
}

// NewTestLogger returns a logger whose records can be inspected. Records are
// also echoed to the test log.
func NewTestLogger(t testing.TB) (*slog.Logger, *LogRecorder) {
	h := &LogRecorder{rec: &recorder{}, t: t}
	return slog.New(h), h
}

// Enabled implements slog.Handler
func (h *LogRecorder) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler
func (h *LogRecorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.prefix+a.Key] = a.Value.Any()
		return true
	})

	h.rec.mu.Lock()
	h.rec.records = append(h.rec.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.rec.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler
func (h *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	for i := len(h.attrs); i < len(next.attrs); i++ {
		next.attrs[i].Key = h.prefix + next.attrs[i].Key
	}
	return &next
}

// WithGroup implements slog.Handler. Group names prefix the keys.
func (h *LogRecorder) WithGroup(name string) slog.Handler {
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// Records returns a copy of the captured records
func (h *LogRecorder) Records() []LogRecord {
	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	out := make([]LogRecord, len(h.rec.records))
	copy(out, h.rec.records)
	return out
}

// Find returns the records at level whose message contains msg
func (h *LogRecorder) Find(level slog.Level, msg string) []LogRecord {
	var out []LogRecord
	for _, r := range h.Records() {
		if r.Level == level && strings.Contains(r.Message, msg) {
			out = append(out, r)
		}
	}
	return out
}

// AssertLogged fails the test unless a record at level contains msg. It
// returns the first match.
func AssertLogged(t testing.TB, h *LogRecorder, level slog.Level, msg string) LogRecord {
	t.Helper()
	found := h.Find(level, msg)
	if len(found) == 0 {
		t.Errorf("no %s record containing %q", level, msg)
		for _, r := range h.Records() {
			t.Logf("  [%s] %s %v", r.Level, r.Message, r.Attrs)
		}
		return LogRecord{}
	}
	return found[0]
}

// AssertNoErrors fails the test if any error-level record was captured
func AssertNoErrors(t testing.TB, h *LogRecorder) {
	t.Helper()
	for _, r := range h.Records() {
		if r.Level >= slog.LevelError {
			t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
		}
	}
}
