package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"bikepulse/internal/config"
	"bikepulse/internal/infrastructure"
	bikemw "bikepulse/internal/middleware"
)

// Handler upgrades GET /ws and runs a Session on the connection.
type Handler struct {
	hub       *Hub
	service   SnapshotService
	validator *bikemw.Validator
	cfg       config.WebSocketConfig
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewHandler creates the websocket endpoint. Cross-origin upgrades are
// accepted only from allowedOrigins.
func NewHandler(service SnapshotService, hub *Hub, validator *bikemw.Validator, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	origins := bikemw.CORSConfig{AllowedOrigins: allowedOrigins}

	return &Handler{
		hub:       hub,
		service:   service,
		validator: validator,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r, origins)
			},
		},
		logger: logger.With(slog.String("component", "websocket.handler")),
	}
}

// ServeHTTP blocks for the lifetime of the session.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	traceID := bikemw.GetReqID(r.Context())
	if traceID == "" {
		traceID = infrastructure.GetTraceID(r.Context())
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.WarnContext(r.Context(), "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", r.Header.Get("Origin")))
		return
	}

	session := NewSession(NewConnectionWrapper(conn), h.service, h.validator, h.cfg, traceID, h.logger)

	// the request context carries the HTTP timeout; sessions live under the hub
	ctx, release, ok := h.hub.register(session)
	if !ok {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"))
		conn.Close()
		return
	}
	defer release()

	if err := session.Serve(ctx); err != nil {
		h.logger.WarnContext(ctx, "WebSocket session ended with error",
			slog.String("session_id", session.ID()),
			slog.String("error", err.Error()))
	}
}

// checkOrigin admits same-host requests, requests without an Origin header
// and the configured origins.
func checkOrigin(r *http.Request, origins bikemw.CORSConfig) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return len(origins.AllowedOrigins) > 0 && origins.OriginAllowed(origin)
}
