package websocket

import (
	"context"
	"log/slog"
	"sync"

	"bikepulse/internal/infrastructure"
)

// Hub tracks the open sessions. Sessions never talk to each other; the hub
// exists so the server can count them and close them all on shutdown.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}

	// base is the parent context of every session; Shutdown cancels it
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger

	totalSessions int64
}

// NewHub creates a new Hub instance. metrics may be nil.
func NewHub(metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions: make(map[*Session]struct{}),
		base:     base,
		cancel:   cancel,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "websocket.hub")),
	}
}

// register adds s and returns the context it must run under plus a release
// func the caller defers. ok is false once the hub is shutting down.
func (h *Hub) register(s *Session) (ctx context.Context, release func(), ok bool) {
	h.mu.Lock()
	if h.base.Err() != nil {
		h.mu.Unlock()
		return nil, nil, false
	}
	h.sessions[s] = struct{}{}
	h.totalSessions++
	count := len(h.sessions)
	h.wg.Add(1)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WebSocketSessions.Add(context.Background(), 1)
	}
	h.logger.Info("Session registered",
		slog.String("session_id", s.id),
		slog.String("remote_addr", s.remoteAddr),
		slog.Int("active_sessions", count))

	ctx, cancel := context.WithCancel(h.base)
	release = func() {
		cancel()
		h.mu.Lock()
		delete(h.sessions, s)
		count := len(h.sessions)
		h.mu.Unlock()

		if h.metrics != nil {
			h.metrics.WebSocketSessions.Add(context.Background(), -1)
		}
		h.logger.Info("Session unregistered",
			slog.String("session_id", s.id),
			slog.Int("active_sessions", count))
		h.wg.Done()
	}
	return ctx, release, true
}

// SessionCount returns the number of open sessions
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown closes every session and waits for them to finish or for ctx
// to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.cancel()
	open := len(h.sessions)
	total := h.totalSessions
	h.mu.Unlock()

	h.logger.Info("Hub shutting down",
		slog.Int("open_sessions", open),
		slog.Int64("total_sessions", total))

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
