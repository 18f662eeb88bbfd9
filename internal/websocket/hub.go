package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tpcpower/internal/dataset"
	"tpcpower/internal/infrastructure"
	"tpcpower/pkg/contracts/events"
)

const broadcastQueueSize = 64

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for every client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	// Time the current dataset snapshot was loaded, announced on connect
	loadedAt time.Time

	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		broadcast:  make(chan []byte, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    metrics,
		quit:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run is the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			loadedAt := h.loadedAt
			h.mu.Unlock()

			ctx := client.context()
			infrastructure.RecordWebSocketConnection(ctx, h.metrics, 1)
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			client.reply(ctx, newMessage(events.MessageTypeConnect, client.traceID, "", events.ConnectData{
				ClientID: client.id,
				Protocol: events.ProtocolName,
				Version:  events.ProtocolVersion,
				Limits: events.ConnectionLimits{
					MaxMessageSize: client.opts.MaxMessageSize,
					MaxQueueSize:   cap(client.send),
				},
				LoadedAt: loadedAt,
			}))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				count := len(h.clients)
				h.mu.Unlock()

				ctx := client.context()
				infrastructure.RecordWebSocketConnection(ctx, h.metrics, -1)
				h.logger.InfoContext(ctx, "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			failed := 0
			for _, client := range clients {
				if !client.enqueue(message) {
					failed++
					h.drop(client)
				}
			}

			h.logger.Debug("Broadcast message to clients",
				slog.Int("client_count", len(clients)),
				slog.Int("message_size", len(message)))
			if failed > 0 {
				h.logger.Warn("Some clients failed to receive broadcast",
					slog.Int("success_count", len(clients)-failed),
					slog.Int("fail_count", failed))
			}
		}
	}
}

// drop disconnects a client that can no longer keep up
func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	client.closeSend()
	h.mu.Unlock()

	ctx := client.context()
	infrastructure.RecordWebSocketConnection(ctx, h.metrics, -1)
	h.logger.WarnContext(ctx, "Client send buffer full, disconnecting",
		slog.String("client_id", client.id))
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Broadcast queues a message for every connected client. It does not block;
// when the queue is full the message is dropped.
func (h *Hub) Broadcast(msg events.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling broadcast message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msg.Type)))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Broadcast queue full, message dropped",
			slog.String("message_type", string(msg.Type)))
	}
}

// BroadcastDatasetReloaded tells every client the dataset at path changed.
// It runs from the dataset cache's reload callback.
func (h *Hub) BroadcastDatasetReloaded(path string, snap *dataset.Snapshot) {
	if snap == nil || snap.Table == nil {
		return
	}

	h.mu.Lock()
	h.loadedAt = snap.LoadedAt
	h.mu.Unlock()

	h.Broadcast(newMessage(events.MessageTypeDatasetReloaded, "", "", events.DatasetReloadedData{
		Path:     path,
		Rows:     snap.Table.Len(),
		Types:    snap.Table.Types(),
		Stats:    snap.Stats,
		LoadedAt: snap.LoadedAt,
	}))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop ends the hub loop and closes every client's send channel, which
// makes their write pumps send a close frame.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)

	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
		infrastructure.RecordWebSocketConnection(context.Background(), h.metrics, -1)
	}
}

// newMessage builds a server message envelope
func newMessage(typ events.MessageType, traceID, replyTo string, data interface{}) events.WebSocketMessage {
	return events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.NewString(),
			Type:      typ,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
			ReplyTo:   replyTo,
		},
		Data: data,
	}
}
