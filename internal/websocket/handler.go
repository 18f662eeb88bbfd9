package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"tpcpower/internal/config"
	"tpcpower/internal/infrastructure"
	mw "tpcpower/internal/middleware"
)

// Handler upgrades GET /ws requests and starts the client pumps
type Handler struct {
	hub       *Hub
	runner    QueryRunner
	validator *mw.RequestValidator
	opts      Options
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewHandler creates the upgrade handler. Browsers on the page's own host
// are always accepted; allowedOrigins adds more, "*" accepts any origin.
func NewHandler(hub *Hub, runner QueryRunner, validator *mw.RequestValidator, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Handler{
		hub:       hub,
		runner:    runner,
		validator: validator,
		opts:      OptionsFromConfig(cfg),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: infrastructure.WithComponent(logger, "websocket.handler"),
	}
}

// ServeHTTP handles GET /ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqCtx := infrastructure.EnsureTraceID(r.Context())
	traceID := infrastructure.GetTraceID(reqCtx)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.WarnContext(reqCtx, "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", mw.GetRealIP(r)))
		return
	}

	client := NewClient(h.hub, wrapConn(conn), h.runner, h.validator, h.opts, traceID, h.logger)
	h.hub.Register(client)

	// the request context ends with ServeHTTP; the pumps keep its values
	ctx := context.WithoutCancel(reqCtx)
	go client.WritePump()
	go client.ReadPump(ctx)
}

// originChecker accepts requests without an Origin header, same-host
// origins and the configured ones
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] || set[strings.ToLower(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
