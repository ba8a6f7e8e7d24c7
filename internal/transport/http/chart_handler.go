package http

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bikepulse/internal/charts"
	apierrors "bikepulse/internal/errors"
	bikemw "bikepulse/internal/middleware"
	"bikepulse/internal/services"
	"bikepulse/pkg/contracts/domain"
)

// ContentTypeSVG is the media type of every chart.
const ContentTypeSVG = "image/svg+xml"

// ChartHandler renders the dashboard charts as SVG
type ChartHandler struct {
	service      DashboardServiceInterface
	renderer     *charts.Renderer
	validator    *bikemw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewChartHandler creates a new chart handler
func NewChartHandler(service DashboardServiceInterface, renderer *charts.Renderer, validator *bikemw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ChartHandler {
	return &ChartHandler{
		service:      service,
		renderer:     renderer,
		validator:    validator,
		logger:       logger.With(slog.String("component", "chart_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the chart routes, mounted under /charts
func (h *ChartHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/daily.svg", h.DailyTrend)
	r.Get("/users.svg", h.UserSplit)
	r.Get("/season.svg", h.SeasonBoxes)
	r.Get("/hourly.svg", h.HourBoxes)

	return r
}

// DailyTrend handles GET /charts/daily.svg
func (h *ChartHandler) DailyTrend(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.bindOptions(w, r)
	if !ok {
		return
	}

	daily, err := h.service.DailySeries(r.Context(), opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeChart(w, r, "daily", func(buf io.Writer) error {
		return h.renderer.DailyTrend(buf, daily)
	})
}

// UserSplit handles GET /charts/users.svg
func (h *ChartHandler) UserSplit(w http.ResponseWriter, r *http.Request) {
	h.snapshotChart(w, r, "users", func(buf io.Writer, snap *domain.Snapshot) error {
		return h.renderer.UserSplit(buf, snap.Metrics)
	})
}

// SeasonBoxes handles GET /charts/season.svg
func (h *ChartHandler) SeasonBoxes(w http.ResponseWriter, r *http.Request) {
	h.snapshotChart(w, r, "season", func(buf io.Writer, snap *domain.Snapshot) error {
		return h.renderer.SeasonBoxes(buf, snap.SeasonBoxes)
	})
}

// HourBoxes handles GET /charts/hourly.svg
func (h *ChartHandler) HourBoxes(w http.ResponseWriter, r *http.Request) {
	h.snapshotChart(w, r, "hourly", func(buf io.Writer, snap *domain.Snapshot) error {
		return h.renderer.HourBoxes(buf, snap.HourBoxes)
	})
}

func (h *ChartHandler) bindOptions(w http.ResponseWriter, r *http.Request) (services.SnapshotOptions, bool) {
	q, err := h.validator.BindRangeQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return services.SnapshotOptions{}, false
	}

	opts := services.OptionsFromQuery(q, services.SourceHTTP)
	// charts never need the optional tables
	opts.ShowSummary = false
	opts.ShowRaw = false
	return opts, true
}

func (h *ChartHandler) snapshotChart(w http.ResponseWriter, r *http.Request, name string, draw func(io.Writer, *domain.Snapshot) error) {
	opts, ok := h.bindOptions(w, r)
	if !ok {
		return
	}

	snap, err := h.service.Snapshot(r.Context(), opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeChart(w, r, name, func(buf io.Writer) error {
		return draw(buf, snap)
	})
}

// writeChart renders into a buffer first so a rendering failure can still
// produce a problem response.
func (h *ChartHandler) writeChart(w http.ResponseWriter, r *http.Request, name string, draw func(io.Writer) error) {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		h.logger.ErrorContext(r.Context(), "chart rendering failed",
			slog.String("chart", name),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ChartError(name, err))
		return
	}

	w.Header().Set("Content-Type", ContentTypeSVG)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "chart write failed",
			slog.String("chart", name),
			slog.String("error", err.Error()))
	}
}
