package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tpcpower/internal/config"
	apierrors "tpcpower/internal/errors"
	"tpcpower/internal/infrastructure"
	mw "tpcpower/internal/middleware"
	api "tpcpower/pkg/contracts/api/v1"
	"tpcpower/pkg/contracts/domain"
	"tpcpower/pkg/contracts/events"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Outbound messages buffered per client
	sendBufferSize = 256
)

// Options holds the per-connection limits
type Options struct {
	PingPeriod     time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

// OptionsFromConfig derives connection options, filling zero values with
// the defaults. The ping period must stay below the pong wait.
func OptionsFromConfig(cfg config.WebSocketConfig) Options {
	opts := Options{
		PingPeriod:     cfg.PingPeriod,
		PongWait:       cfg.PongWait,
		MaxMessageSize: cfg.MaxMessageSize,
	}
	if opts.PongWait <= 0 {
		opts.PongWait = config.WebSocketPongWait
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = (opts.PongWait * 9) / 10
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 64 * 1024
	}
	return opts
}

// Client is a middleman between the websocket connection and the hub. Query
// messages are answered on the read goroutine, in arrival order.
type Client struct {
	hub       *Hub
	conn      Connection
	runner    QueryRunner
	validator *mw.RequestValidator
	opts      Options

	// Buffered channel of outbound messages
	send   chan []byte
	sendMu sync.Mutex
	closed bool

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger

	messagesReceived int64
	messagesSent     int64
}

// NewClient creates a client for an upgraded connection
func NewClient(hub *Hub, conn Connection, runner QueryRunner, validator *mw.RequestValidator, opts Options, traceID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	id := uuid.New().String()
	return &Client{
		hub:         hub,
		conn:        conn,
		runner:      runner,
		validator:   validator,
		opts:        opts,
		send:        make(chan []byte, sendBufferSize),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// ID returns the client identifier announced in the connect message
func (c *Client) ID() string {
	return c.id
}

// context carries the client's trace ID for hub-side logging
func (c *Client) context() context.Context {
	return infrastructure.WithTraceID(context.Background(), c.traceID)
}

// enqueue hands data to the write pump without blocking. It reports false
// when the buffer is full or the client is already closed.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel once
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// reply queues a message for this client only
func (c *Client) reply(ctx context.Context, msg events.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.ErrorContext(ctx, "Error marshaling reply",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msg.Type)))
		return
	}
	if !c.enqueue(data) {
		c.logger.WarnContext(ctx, "Reply dropped",
			slog.String("message_type", string(msg.Type)))
	}
}

func (c *Client) replyError(ctx context.Context, replyTo string, data events.ErrorData) {
	c.reply(ctx, newMessage(events.MessageTypeError, c.traceID, replyTo, data))
}

// ReadPump reads client messages until the connection fails, then
// unregisters the client. ctx carries the upgrade request's values.
// The connection itself is closed by WritePump.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.logger.InfoContext(ctx, "WebSocket client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived))
		c.hub.Unregister(c)
		// the write pump flushes queued replies, then closes the connection
		c.closeSend()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, websocket.ErrReadLimit):
				c.logger.WarnContext(ctx, "Client message exceeds limit",
					slog.Int64("limit", c.opts.MaxMessageSize))
				c.replyError(ctx, "", events.ErrorData{
					Code:    events.ErrCodeMessageTooLarge,
					Message: fmt.Sprintf("messages are limited to %d bytes", c.opts.MaxMessageSize),
					Fatal:   true,
				})
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure):
				c.logger.ErrorContext(ctx, "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}

		c.messagesReceived++
		c.handle(ctx, message)
	}
}

// handle answers one client message
func (c *Client) handle(ctx context.Context, raw []byte) {
	var msg events.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
		c.replyError(ctx, "", events.ErrorData{
			Code:    events.ErrCodeInvalidFrame,
			Message: "message must be a JSON object with a type",
		})
		return
	}

	switch msg.Type {
	case events.MessageTypePing:
		c.reply(ctx, newMessage(events.MessageTypePong, c.traceID, msg.ID, nil))
	case events.MessageTypeQuery:
		c.query(ctx, msg)
	default:
		c.replyError(ctx, msg.ID, events.ErrorData{
			Code:    events.ErrCodeUnsupportedType,
			Message: fmt.Sprintf("unsupported message type %q", msg.Type),
		})
	}
}

// query runs a filter and aggregate cycle and replies with the series
func (c *Client) query(ctx context.Context, msg events.ClientMessage) {
	var req api.QueryRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.replyError(ctx, msg.ID, events.ErrorData{
				Code:    events.ErrCodeInvalidFrame,
				Message: "query data must be a JSON object",
			})
			return
		}
	}

	if err := c.validator.Struct(req); err != nil {
		c.replyError(ctx, msg.ID, c.describe(ctx, err))
		return
	}

	res, err := c.runner.Run(ctx, req)
	if err != nil {
		c.replyError(ctx, msg.ID, c.describe(ctx, err))
		return
	}

	series := res.Series
	if series == nil {
		series = domain.AggregatedSeries{}
	}
	c.reply(ctx, newMessage(events.MessageTypeQueryResult, c.traceID, msg.ID, events.QueryResultData{
		Criteria:  res.Criteria,
		TotalRows: res.Filtered.Len(),
		Series:    series,
	}))
}

// describe maps a query failure to a protocol error
func (c *Client) describe(ctx context.Context, err error) events.ErrorData {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		if details, ok := apiErr.Details.(apierrors.ValidationErrors); ok {
			return events.ErrorData{
				Code:    events.ErrCodeInvalidCriteria,
				Message: apiErr.Message,
				Details: details.Errors,
			}
		}
	}

	var appErr *apierrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apierrors.ErrTypeValidation:
			return events.ErrorData{
				Code:    events.ErrCodeInvalidCriteria,
				Message: appErr.Message,
				Details: appErr.Context,
			}
		case apierrors.ErrTypeStorage, apierrors.ErrTypeParsing:
			return events.ErrorData{
				Code:    events.ErrCodeDatasetLoad,
				Message: "the dataset could not be loaded",
			}
		}
	}

	c.logger.ErrorContext(ctx, "Query failed", slog.String("error", err.Error()))
	return events.ErrorData{
		Code:    events.ErrCodeServerError,
		Message: "the query could not be completed",
	}
}

// WritePump writes queued messages and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.logger.Debug("WebSocket write pump stopped",
			slog.Int64("messages_sent", c.messagesSent))
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}
			c.messagesSent++

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}
