package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "bikepulse/internal/errors"
	bikemw "bikepulse/internal/middleware"
	"bikepulse/internal/services"
)

// DashboardHandler serves the dashboard JSON API with RFC 7807 errors
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *bikemw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, validator *bikemw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes, mounted under /api/dashboard
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetSnapshot)
	r.Get("/bounds", h.GetBounds)
	r.Get("/daily", h.GetDaily)
	r.Get("/summary", h.GetSummary)
	r.Get("/records", h.GetRecords)

	return r
}

// bindOptions binds the range query. It writes the error
// response itself and returns ok=false on failure.
func (h *DashboardHandler) bindOptions(w http.ResponseWriter, r *http.Request, mutate func(*services.SnapshotOptions)) (opts services.SnapshotOptions, ok bool) {
	q, err := h.validator.BindRangeQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return opts, false
	}

	opts = services.OptionsFromQuery(q, services.SourceHTTP)
	if mutate != nil {
		mutate(&opts)
	}
	return opts, true
}

// GetSnapshot handles GET /api/dashboard
func (h *DashboardHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.bindOptions(w, r, nil)
	if !ok {
		return
	}

	snap, err := h.service.Snapshot(r.Context(), opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "snapshot served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("effective", snap.Effective.String()),
		slog.Int("records", snap.RecordCount))

	render.JSON(w, r, snap)
}

// GetBounds handles GET /api/dashboard/bounds
func (h *DashboardHandler) GetBounds(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Bounds(r.Context()))
}

// GetDaily handles GET /api/dashboard/daily
func (h *DashboardHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.bindOptions(w, r, nil)
	if !ok {
		return
	}

	daily, err := h.service.DailySeries(r.Context(), opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"data":  daily,
		"count": len(daily),
	})
}

// GetSummary handles GET /api/dashboard/summary
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.bindOptions(w, r, func(o *services.SnapshotOptions) {
		o.ShowSummary = true
		o.ShowRaw = false
	})
	if !ok {
		return
	}

	snap, err := h.service.Snapshot(r.Context(), opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"range": snap.Effective,
		"data":  snap.Summary,
	})
}

// GetRecords handles GET /api/dashboard/records. All filtered rows are
// returned; only the HTML page caps them.
func (h *DashboardHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.bindOptions(w, r, func(o *services.SnapshotOptions) {
		o.ShowRaw = true
		o.ShowSummary = false
	})
	if !ok {
		return
	}

	snap, err := h.service.Snapshot(r.Context(), opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"range": snap.Effective,
		"data":  snap.Records,
		"count": len(snap.Records),
	})
}
