package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikepulse/internal/config"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/shared/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Dataset.Path = testutil.WriteCSV(t, testutil.RentalsCSV+testutil.MalformedRow)
	cfg.Security.RateLimit.Enabled = false
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return cfg
}

func newTestApp(t *testing.T) (*Application, *httptest.Server) {
	t.Helper()
	a, err := New(testConfig(t), quietLogger())
	require.NoError(t, err)

	srv := httptest.NewServer(a.Router)
	t.Cleanup(func() {
		a.WebSocketHub.Shutdown(context.Background())
		srv.Close()
		a.OTelProviders.Shutdown(context.Background())
	})
	return a, srv
}

func getBody(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestNew_LoadsDataset(t *testing.T) {
	a, err := New(testConfig(t), quietLogger())
	require.NoError(t, err)
	defer a.OTelProviders.Shutdown(context.Background())

	assert.Equal(t, 4, a.Dataset.Len())
	assert.Equal(t, 1, a.Dataset.Report().Skipped)
	assert.NotNil(t, a.DashboardService)
	assert.NotNil(t, a.HealthService)
	assert.NotNil(t, a.Server)
	assert.Equal(t, ":8080", a.Server.Addr)
}

func TestNew_DatasetErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Dataset.Path = filepath.Join(t.TempDir(), "missing.csv")

		_, err := New(cfg, quietLogger())
		require.Error(t, err)

		var appErr *apierrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apierrors.ErrTypeNotFound, appErr.Type)
	})

	t.Run("strict mode rejects malformed rows", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Dataset.Strict = true

		_, err := New(cfg, quietLogger())
		assert.Error(t, err)
	})
}

func TestRoutes(t *testing.T) {
	_, srv := newTestApp(t)

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{"dashboard page", "/", http.StatusOK, "text/html", "Bike Rental Dashboard"},
		{"script", "/static/dashboard.js", http.StatusOK, "javascript", "WebSocket"},
		{"snapshot", "/api/dashboard?start=2011-01-01&end=2011-01-02", http.StatusOK, "application/json", `"total_rentals":2771`},
		{"bounds", "/api/dashboard/bounds", http.StatusOK, "application/json", `"skipped":1`},
		{"daily chart", "/charts/daily.svg", http.StatusOK, "image/svg+xml", "<svg"},
		{"daily csv", "/api/export/daily.csv", http.StatusOK, "text/csv", "total_count_sum"},
		{"health", "/api/health", http.StatusOK, "application/json", `"status":"ok"`},
		{"ready", "/api/health/ready", http.StatusOK, "application/json", "ready"},
		{"live", "/api/health/live", http.StatusOK, "application/json", "alive"},
		{"version", "/api/version", http.StatusOK, "application/json", "api_version"},
		{"invalid range", "/api/dashboard?start=2011-01-05&end=2011-01-01", http.StatusBadRequest, "json", apierrors.CodeValidationFailed},
		{"unknown route", "/nope", http.StatusNotFound, "json", "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := getBody(t, srv.URL+tt.path)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), tt.wantType)
			assert.Contains(t, body, tt.wantContain)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	_, srv := newTestApp(t)

	resp, _ := getBody(t, srv.URL+"/api/health")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newTestApp(t)

	resp, _ := getBody(t, srv.URL+"/api/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := getBody(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "dashboard_snapshots")
	assert.Contains(t, body, "dataset_rows_loaded")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.MetricExporter = "none"

	a, err := New(cfg, quietLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocketRoute(t *testing.T) {
	a, srv := newTestApp(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg map[string]interface{}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "connect", msg["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "range", "start": "2011-01-05", "end": "2011-01-05"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg["type"])

	data, err := json.Marshal(msg["data"])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_rentals":1600`)

	assert.Equal(t, 1, a.WebSocketHub.SessionCount())
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = port

	a, err := New(cfg, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	url := "http://127.0.0.1:" + strconv.Itoa(port) + "/api/health/live"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
