package websocket

import (
	"context"
	"time"

	"tpcpower/internal/dataprocessing"
	api "tpcpower/pkg/contracts/api/v1"
)

// Connection is the subset of a WebSocket connection the client pumps use.
// It allows the pumps to run against a scripted connection in tests.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)

	// RemoteAddr returns the peer address as text
	RemoteAddr() string
}

// QueryRunner runs one filter and aggregate cycle for a query message
type QueryRunner interface {
	Run(ctx context.Context, req api.QueryRequest) (*dataprocessing.Result, error)
}
