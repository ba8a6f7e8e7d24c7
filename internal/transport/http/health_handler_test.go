package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikepulse/internal/dataset"
	"bikepulse/internal/services"
	"bikepulse/internal/shared/testutil"
	"bikepulse/pkg/contracts"
	"bikepulse/pkg/contracts/domain"
)

func healthRouter(data *dataset.Dataset) http.Handler {
	h := NewHealthHandler(services.NewHealthService(data, nil, testLogger()), testLogger())
	r := chi.NewRouter()
	r.Get("/api/health", h.HealthCheck)
	r.Get("/api/health/ready", h.ReadinessCheck)
	r.Get("/api/health/live", h.LivenessCheck)
	r.Get("/api/version", h.Version)
	return r
}

func TestHealthHandler(t *testing.T) {
	r := healthRouter(dataset.New(testutil.Records(), domain.LoadReport{Source: "fixture.csv"}))

	tests := []struct {
		path       string
		wantStatus string
	}{
		{"/api/health", "ok"},
		{"/api/health/ready", "ready"},
		{"/api/health/live", "alive"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, r, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)

			var body services.HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, contracts.Version, body.Version)
		})
	}

	rec := get(t, r, "/api/version")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"api_version":"v1"`)
}

func TestHealthHandler_NotReady(t *testing.T) {
	rec := get(t, healthRouter(nil), "/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}
