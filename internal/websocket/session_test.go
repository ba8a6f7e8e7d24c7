package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikepulse/internal/config"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	bikemw "bikepulse/internal/middleware"
	"bikepulse/internal/services"
	"bikepulse/internal/shared/testutil"
	"bikepulse/pkg/contracts/domain"
	"bikepulse/pkg/contracts/events"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		MaxMessageSize:  4096,
		PingPeriod:      time.Second,
		PongWait:        5 * time.Second,
		WriteWait:       time.Second,
	}
}

func testService(t *testing.T) *services.DashboardService {
	t.Helper()
	records := testutil.Records()
	ds := dataset.New(records, domain.LoadReport{Source: "fixture.csv", Rows: len(records), Loaded: len(records)})
	svc, err := services.NewDashboardService(ds, nil, quietLogger())
	require.NoError(t, err)
	return svc
}

// reply is the client-side view of a server message.
type reply struct {
	ID    string               `json:"id"`
	Type  events.MessageType   `json:"type"`
	Data  json.RawMessage      `json:"data"`
	Error *events.ErrorPayload `json:"error"`
}

func startServer(t *testing.T) (*Hub, string) {
	t.Helper()
	return startServerWithLogger(t, quietLogger())
}

func startServerWithLogger(t *testing.T, logger *slog.Logger) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil, logger)
	h := NewHandler(testService(t), hub, bikemw.NewValidator(), testConfig(), nil, logger)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		hub.Shutdown(context.Background())
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	first := readReply(t, conn)
	require.Equal(t, events.MessageTypeConnect, first.Type)
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) reply {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var r reply
	require.NoError(t, conn.ReadJSON(&r))
	return r
}

func TestSession_RangeReturnsSnapshot(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":  "range",
		"id":    "r1",
		"start": "2011-01-01",
		"end":   "2011-01-02",
	}))

	r := readReply(t, conn)
	assert.Equal(t, events.MessageTypeSnapshot, r.Type)
	assert.Equal(t, "r1", r.ID)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(r.Data, &snap))
	// daily totals repeat on each hourly row
	assert.Equal(t, int64(2*985+801), snap.Metrics.TotalRentals)
	assert.Equal(t, 2, snap.Metrics.Days)
	assert.Equal(t, "all", snap.BoxScope)
}

func TestSession_InvalidMessages(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantCode string
	}{
		{
			name:     "start after end",
			payload:  `{"type":"range","id":"x","start":"2011-01-05","end":"2011-01-01"}`,
			wantCode: apierrors.CodeValidationFailed,
		},
		{
			name:     "malformed date",
			payload:  `{"type":"range","id":"x","start":"01/05/2011"}`,
			wantCode: apierrors.CodeValidationFailed,
		},
		{
			name:     "unknown box scope",
			payload:  `{"type":"range","id":"x","box_scope":"week"}`,
			wantCode: apierrors.CodeValidationFailed,
		},
		{
			name:     "unsupported type",
			payload:  `{"type":"subscribe","id":"x"}`,
			wantCode: apierrors.CodeInvalidRequest,
		},
		{
			name:     "not json",
			payload:  `range please`,
			wantCode: apierrors.CodeInvalidRequest,
		},
	}

	_, url := startServer(t)
	conn := dial(t, url)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.payload)))

			r := readReply(t, conn)
			assert.Equal(t, events.MessageTypeError, r.Type)
			require.NotNil(t, r.Error)
			assert.Equal(t, tt.wantCode, r.Error.Code)
			assert.NotEmpty(t, r.Error.Title)
		})
	}
}

func TestSession_LogsRejectedMessages(t *testing.T) {
	logger, logs := testutil.NewLogger()
	_, url := startServerWithLogger(t, logger)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "range", "start": "2011-01-05", "end": "2011-01-01"}))
	r := readReply(t, conn)
	require.Equal(t, events.MessageTypeError, r.Type)

	rec, ok := logs.Find(slog.LevelWarn, "Range message rejected")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusBadRequest), rec.Attrs["status"])
	assert.Equal(t, "websocket.session", rec.Attrs["component"])
	assert.NotEmpty(t, rec.Attrs["session_id"])
}

func TestSession_HeartbeatHasNoReply(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "heartbeat"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "range", "id": "after"}))

	// the first reply on the wire answers the range message
	r := readReply(t, conn)
	assert.Equal(t, events.MessageTypeSnapshot, r.Type)
	assert.Equal(t, "after", r.ID)
}

func TestHub_ShutdownClosesSessions(t *testing.T) {
	hub, url := startServer(t)
	conn := dial(t, url)

	assert.Eventually(t, func() bool { return hub.SessionCount() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))
	assert.Equal(t, 0, hub.SessionCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// no new sessions after shutdown
	late, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		defer late.Close()
		require.NoError(t, late.SetReadDeadline(time.Now().Add(3*time.Second)))
		_, _, err = late.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "got %v", err)
	} else if resp != nil {
		resp.Body.Close()
	}
}

func TestCheckOrigin(t *testing.T) {
	allowed := bikemw.CORSConfig{AllowedOrigins: []string{"http://dash.test"}}
	none := bikemw.CORSConfig{}

	tests := []struct {
		name    string
		origin  string
		origins bikemw.CORSConfig
		want    bool
	}{
		{"no origin header", "", none, true},
		{"same host", "http://example.com", none, true},
		{"listed origin", "http://dash.test", allowed, true},
		{"foreign origin", "http://evil.test", allowed, false},
		{"foreign origin without list", "http://evil.test", none, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkOrigin(r, tt.origins))
		})
	}
}
