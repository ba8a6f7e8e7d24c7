package websocket

import (
	"context"
	"time"

	"bikepulse/internal/services"
	"bikepulse/pkg/contracts/domain"
)

// Connection defines the interface for WebSocket connections
// This allows for proper mocking in tests
type Connection interface {
	// WriteMessage writes a message with the given message type and payload
	WriteMessage(messageType int, data []byte) error

	// ReadMessage reads a message from the connection
	ReadMessage() (messageType int, p []byte, err error)

	Close() error

	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error

	// SetReadLimit sets the maximum size for a message read from the connection
	SetReadLimit(limit int64)

	// SetPongHandler sets the handler for pong messages
	SetPongHandler(h func(string) error)

	// RemoteAddr returns the remote network address
	RemoteAddr() string
}

// SnapshotService computes the dashboard for a range message.
type SnapshotService interface {
	Snapshot(ctx context.Context, opts services.SnapshotOptions) (*domain.Snapshot, error)
}
