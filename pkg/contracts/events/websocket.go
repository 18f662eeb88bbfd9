// Package events contains the message contracts of the dashboard's WebSocket
// interaction channel.
package events

import (
	"encoding/json"
	"time"

	"tpcpower/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Client to server
	MessageTypeQuery MessageType = "query"
	MessageTypePing  MessageType = "ping"

	// Server to client
	MessageTypeConnect         MessageType = "connect"
	MessageTypeQueryResult     MessageType = "query:result"
	MessageTypeDatasetReloaded MessageType = "dataset:reloaded"
	MessageTypePong            MessageType = "pong"
	MessageTypeError           MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`       // Unique message ID
	Type      MessageType `json:"type"`               // Message type
	Timestamp time.Time   `json:"timestamp"`          // Message timestamp
	TraceID   string      `json:"trace_id,omitempty"` // Request trace ID
	ReplyTo   string      `json:"reply_to,omitempty"` // ID of the client message answered
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// ClientMessage is a message received from a browser. Data is decoded
// according to Type.
type ClientMessage struct {
	ID   string          `json:"id,omitempty"`
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ConnectData greets a new client
type ConnectData struct {
	ClientID string           `json:"client_id"`
	Protocol string           `json:"protocol"`
	Version  string           `json:"version"`
	Limits   ConnectionLimits `json:"limits"`
	LoadedAt time.Time        `json:"loaded_at,omitempty"`
}

// QueryResultData answers a query message with the aggregated series
type QueryResultData struct {
	Criteria  domain.FilterCriteria   `json:"criteria"`
	TotalRows int                     `json:"total_rows"`
	Series    domain.AggregatedSeries `json:"series"`
}

// DatasetReloadedData is pushed to every client after the dataset changed
type DatasetReloadedData struct {
	Path     string           `json:"path"`
	Rows     int              `json:"rows"`
	Types    []string         `json:"types"`
	Stats    domain.LoadStats `json:"stats"`
	LoadedAt time.Time        `json:"loaded_at"`
}

// ErrorData describes a rejected client message
type ErrorData struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Fatal   bool        `json:"fatal"`
}
