package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bikepulse/internal/charts"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/exporter"
	bikemw "bikepulse/internal/middleware"
	"bikepulse/internal/services"
	"bikepulse/internal/shared/testutil"
	"bikepulse/pkg/contracts/domain"
)

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Snapshot(ctx context.Context, opts services.SnapshotOptions) (*domain.Snapshot, error) {
	args := m.Called(opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *MockDashboardService) DailySeries(ctx context.Context, opts services.SnapshotOptions) ([]domain.DailyAggregate, error) {
	args := m.Called(opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DailyAggregate), args.Error(1)
}

func (m *MockDashboardService) Bounds(ctx context.Context) services.BoundsInfo {
	args := m.Called()
	return args.Get(0).(services.BoundsInfo)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRouter mounts every handler the way the application does, backed by
// the given service.
func newRouter(t *testing.T, svc DashboardServiceInterface) http.Handler {
	t.Helper()
	logger := testLogger()
	eh := apierrors.NewErrorHandler(logger, false)
	v := bikemw.NewValidator()

	page, err := NewPageHandler(svc, v, PageConfig{Title: "Bike Rental Dashboard", Footer: "footer text", RawRowLimit: 2}, logger, eh)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(bikemw.RequestID)
	r.Get("/", page.Dashboard)
	r.Get("/static/dashboard.js", page.Script)
	r.Mount("/charts", NewChartHandler(svc, charts.NewRenderer(), v, logger, eh).Routes())
	r.Mount("/api/dashboard", NewDashboardHandler(svc, v, logger, eh).Routes())
	r.Mount("/api/export", NewExportHandler(svc, v, logger, eh).Routes())
	r.Post("/api/client-log", NewClientLogHandler(v, logger, eh).Handle)
	return r
}

func realService(t *testing.T, records []domain.RentalRecord) *services.DashboardService {
	t.Helper()
	ds := dataset.New(records, domain.LoadReport{Source: "fixture.csv", Rows: 5, Loaded: len(records), Skipped: 1})
	svc, err := services.NewDashboardService(ds, nil, testLogger())
	require.NoError(t, err)
	return svc
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	assert.Contains(t, rec.Header().Get("Content-Type"), "json")
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDashboardHandler_GetSnapshot(t *testing.T) {
	h := newRouter(t, realService(t, testutil.Records()))

	rec := get(t, h, "/api/dashboard?start=2011-01-01&end=2011-01-02&show_summary=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Len(t, snap.Daily, 2)
	assert.Equal(t, int64(1970+801), snap.Metrics.TotalRentals)
	assert.NotEmpty(t, snap.Summary)
	assert.Empty(t, snap.Records)
}

func TestDashboardHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		setupMock  func(*MockDashboardService)
		wantStatus int
		wantType   string
	}{
		{
			name:       "bad date format",
			target:     "/api/dashboard?start=2011/01/01",
			setupMock:  func(m *MockDashboardService) {},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "bad box scope",
			target:     "/api/dashboard?box_scope=season",
			setupMock:  func(m *MockDashboardService) {},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:   "start after end",
			target: "/api/dashboard?start=2011-02-01&end=2011-01-01",
			setupMock: func(m *MockDashboardService) {
				err := fmt.Errorf("%w: %w", services.ErrInvalidRange, apierrors.InvalidRangeError("2011-02-01", "2011-01-01"))
				m.On("Snapshot", mock.Anything).Return(nil, err)
			},
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:   "internal error",
			target: "/api/dashboard/daily",
			setupMock: func(m *MockDashboardService) {
				m.On("DailySeries", mock.Anything).Return(nil, errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
			wantType:   apierrors.TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			tt.setupMock(svc)

			rec := get(t, newRouter(t, svc), tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.NotEmpty(t, body["instance"])
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_PassesOptions(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Snapshot", services.SnapshotOptions{
		Start: "2011-01-01", End: "2011-01-31", FillGaps: true, BoxScope: "range",
		ShowSummary: false, ShowRaw: true, Source: services.SourceHTTP,
	}).Return(&domain.Snapshot{Records: testutil.Records()[:1]}, nil)

	rec := get(t, newRouter(t, svc), "/api/dashboard/records?start=2011-01-01&end=2011-01-31&fill_gaps&box_scope=RANGE&show_summary=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	svc.AssertExpectations(t)
}

func TestDashboardHandler_Bounds(t *testing.T) {
	h := newRouter(t, realService(t, testutil.Records()))

	rec := get(t, h, "/api/dashboard/bounds")
	require.Equal(t, http.StatusOK, rec.Code)

	var info services.BoundsInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.NotNil(t, info.Bounds)
	assert.Equal(t, testutil.Day("2011-01-05"), info.Bounds.End)
	assert.Equal(t, 4, info.Records)
	assert.Equal(t, 1, info.Report.Skipped)
}

func TestChartHandler(t *testing.T) {
	h := newRouter(t, realService(t, testutil.Records()))

	for _, chart := range []string{"daily", "users", "season", "hourly"} {
		for _, query := range []string{"", "?start=2012-01-01&end=2012-02-01", "?box_scope=range&fill_gaps=true"} {
			t.Run(chart+query, func(t *testing.T) {
				rec := get(t, h, "/charts/"+chart+".svg"+query)
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				assert.Equal(t, ContentTypeSVG, rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Body.String(), "<svg")
			})
		}
	}
}

func TestChartHandler_InvalidRange(t *testing.T) {
	h := newRouter(t, realService(t, testutil.Records()))

	rec := get(t, h, "/charts/daily.svg?start=2011-01-05&end=2011-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, apierrors.TypeValidation, body["type"])
}

func TestExportHandler_DailyCSV(t *testing.T) {
	h := newRouter(t, realService(t, testutil.Records()))

	rec := get(t, h, "/api/export/daily.csv?start=2011-01-01&end=2011-01-03&fill_gaps=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="daily_rentals_2011-01-01_2011-01-03.csv"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\xEF\xBB\xBF"))
	assert.Contains(t, rec.Body.String(), "2011-01-01,1970,662,1308")
	assert.Contains(t, rec.Body.String(), "2011-01-03,0,0,0")
}

func TestExportHandler_Workbook(t *testing.T) {
	h := newRouter(t, realService(t, testutil.Records()))

	rec := get(t, h, "/api/export/rentals.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, exporter.ContentTypeXLSX, rec.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exporter.SheetRecords)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestExportHandler_EmptyDatasetName(t *testing.T) {
	h := newRouter(t, realService(t, nil))

	rec := get(t, h, "/api/export/daily.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="daily_rentals.csv"`, rec.Header().Get("Content-Disposition"))
}

func TestPageHandler_Dashboard(t *testing.T) {
	records := testutil.Records()
	for i := 0; i < 3; i++ {
		records = append(records, domain.RentalRecord{Date: testutil.Day("2011-01-05"), TotalCount: 1234567, SeasonLabel: "Winter", Hour: 6 + i, HourlyCount: 1})
	}
	h := newRouter(t, realService(t, records))

	rec := get(t, h, "/?show_raw=on&show_summary=on")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "Bike Rental Dashboard")
	assert.Contains(t, body, "3,705,301", "best day total with thousands separators")
	assert.Contains(t, body, `min="2011-01-01"`)
	assert.Contains(t, body, `max="2011-01-05"`)
	assert.Contains(t, body, "/charts/daily.svg?box_scope=all&amp;end=2011-01-05&amp;start=2011-01-01")
	assert.Contains(t, body, "5 more rows not shown")
	assert.Contains(t, body, "1 malformed rows were skipped")
	assert.Contains(t, body, "cnt_hour")
	assert.Contains(t, body, "footer text")
}

func TestPageHandler_InvalidRangeShowsBanner(t *testing.T) {
	h := newRouter(t, realService(t, testutil.Records()))

	rec := get(t, h, "/?start=2011-01-05&end=2011-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "banner error")
	assert.Contains(t, body, "is after end date")
	// rendered for the full range instead
	assert.Contains(t, body, `value="2011-01-01"`)
}

func TestPageHandler_EmptyRange(t *testing.T) {
	h := newRouter(t, realService(t, testutil.Records()))

	rec := get(t, h, "/?start=2011-01-03&end=2011-01-04")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No rentals in the selected range.")
}

func TestPageHandler_Script(t *testing.T) {
	h := newRouter(t, realService(t, testutil.Records()))

	rec := get(t, h, "/static/dashboard.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
	assert.Contains(t, rec.Body.String(), "WebSocket")
}

func TestClientLogHandler(t *testing.T) {
	h := newRouter(t, realService(t, testutil.Records()))

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid entry", `{"level":"error","message":"websocket error","source":"dashboard.js"}`, http.StatusOK},
		{"missing message", `{"level":"error"}`, http.StatusBadRequest},
		{"unknown level", `{"level":"fatal","message":"x"}`, http.StatusBadRequest},
		{"malformed json", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/client-log", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
