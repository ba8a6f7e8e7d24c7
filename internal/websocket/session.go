package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bikepulse/internal/config"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/infrastructure"
	bikemw "bikepulse/internal/middleware"
	"bikepulse/internal/services"
	"bikepulse/pkg/contracts/events"
)

// Instance is the problem "instance" reported for websocket errors.
const Instance = "/ws"

// Session serves one websocket connection. Range messages are handled one
// at a time: the next message is read only after the reply to the previous
// one was written.
type Session struct {
	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	conn      Connection
	service   SnapshotService
	validator *bikemw.Validator
	cfg       config.WebSocketConfig
	logger    *slog.Logger

	// gorilla allows one concurrent writer; replies and pings share it
	writeMu sync.Mutex

	messagesReceived int64
	messagesSent     int64
}

// NewSession creates a session over conn.
func NewSession(conn Connection, service SnapshotService, validator *bikemw.Validator, cfg config.WebSocketConfig, traceID string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = bikemw.NewValidator()
	}

	id := uuid.New().String()
	return &Session{
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		conn:        conn,
		service:     service,
		validator:   validator,
		cfg:         cfg,
		logger: logger.With(
			slog.String("component", "websocket.session"),
			slog.String("session_id", id),
		),
	}
}

// ID returns the session identifier sent in the connect message.
func (s *Session) ID() string {
	return s.id
}

// Serve runs the session until the peer disconnects or ctx is cancelled.
func (s *Session) Serve(ctx context.Context) error {
	if s.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, s.traceID)
	}
	ctx, cancel := context.WithCancel(ctx)

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	pingDone := make(chan struct{})
	go func() {
		defer close(pingDone)
		s.keepAlive(ctx)
	}()

	defer func() {
		cancel()
		<-pingDone
		s.conn.Close()
		s.logger.InfoContext(ctx, "WebSocket session closed",
			slog.Duration("connection_duration", time.Since(s.connectedAt)),
			slog.Int64("messages_received", s.messagesReceived),
			slog.Int64("messages_sent", s.messagesSent))
	}()

	connect := events.NewServerMessage(events.MessageTypeConnect, "", s.traceID, map[string]string{
		"session_id": s.id,
		"status":     "connected",
	})
	if err := s.write(connect); err != nil {
		return fmt.Errorf("failed to send connect message: %w", err)
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.WarnContext(ctx, "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
				return err
			}
			return nil
		}
		s.messagesReceived++

		reply, ok := s.handle(ctx, data)
		if !ok {
			continue
		}
		if err := s.write(reply); err != nil {
			return fmt.Errorf("failed to write reply: %w", err)
		}
	}
}

// handle turns one client message into a reply. ok is false for messages
// that need no reply.
func (s *Session) handle(ctx context.Context, data []byte) (events.ServerMessage, bool) {
	var msg events.RangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return s.errorReply(ctx, "", apierrors.InvalidRequestWithError(err)), true
	}

	switch msg.Type {
	case events.MessageTypeHeartbeat:
		s.logger.DebugContext(ctx, "Heartbeat received")
		return events.ServerMessage{}, false
	case events.MessageTypeRange:
	default:
		return s.errorReply(ctx, msg.ID, apierrors.New(http.StatusBadRequest, apierrors.CodeInvalidRequest,
			fmt.Sprintf("unsupported message type %q", msg.Type))), true
	}

	q := msg.RangeQuery
	q.Start = strings.TrimSpace(q.Start)
	q.End = strings.TrimSpace(q.End)
	q.BoxScope = strings.ToLower(strings.TrimSpace(q.BoxScope))
	if err := s.validator.ValidateStruct(q); err != nil {
		return s.errorReply(ctx, msg.ID, err), true
	}

	snap, err := s.service.Snapshot(ctx, services.OptionsFromQuery(q, services.SourceWebSocket))
	if err != nil {
		return s.errorReply(ctx, msg.ID, err), true
	}

	s.logger.DebugContext(ctx, "Snapshot sent",
		slog.String("effective", snap.Effective.String()),
		slog.Int("records", snap.RecordCount))
	return events.NewServerMessage(events.MessageTypeSnapshot, msg.ID, s.traceID, snap), true
}

func (s *Session) errorReply(ctx context.Context, replyTo string, err error) events.ServerMessage {
	problem := apierrors.ToProblem(err, Instance)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "Range message rejected",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status))

	payload := events.ErrorPayload{
		Title:  problem.Title,
		Detail: problem.Detail,
		Fields: problem.Extensions["errors"],
	}
	if code, ok := problem.Extensions["error_code"].(string); ok {
		payload.Code = code
	} else {
		payload.Code = apierrors.CodeInternal
	}
	if problem.Status >= http.StatusInternalServerError {
		// internal details stay in the log
		payload.Detail = ""
	}
	return events.NewErrorMessage(replyTo, s.traceID, payload)
}

func (s *Session) write(msg events.ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	s.messagesSent++
	return nil
}

// keepAlive pings the peer until ctx ends. On cancellation it sends a close
// frame and closes the connection so the blocked reader returns.
func (s *Session) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			err := s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			s.writeMu.Unlock()
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				s.logger.DebugContext(ctx, "close frame not sent", slog.String("error", err.Error()))
			}
			s.conn.Close()
			return
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				s.logger.DebugContext(ctx, "ping failed", slog.String("error", err.Error()))
				s.conn.Close()
				return
			}
		}
	}
}
