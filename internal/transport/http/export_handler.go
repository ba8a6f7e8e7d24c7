package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/exporter"
	bikemw "bikepulse/internal/middleware"
	"bikepulse/internal/services"
	"bikepulse/pkg/contracts/domain"
)

// ExportHandler serves CSV and XLSX downloads of the filtered view
type ExportHandler struct {
	service      DashboardServiceInterface
	daily        *exporter.DailyExporter
	workbook     *exporter.WorkbookExporter
	validator    *bikemw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExportHandler creates a new export handler
func NewExportHandler(service DashboardServiceInterface, validator *bikemw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		service:      service,
		daily:        exporter.NewDailyExporter(logger),
		workbook:     exporter.NewWorkbookExporter(logger),
		validator:    validator,
		logger:       logger.With(slog.String("component", "export_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the export routes, mounted under /api/export
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/daily.csv", h.DailyCSV)
	r.Get("/rentals.xlsx", h.Workbook)

	return r
}

// DailyCSV handles GET /api/export/daily.csv
func (h *ExportHandler) DailyCSV(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r, false)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.daily.WriteDailyCSV(&buf, snap.Daily); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ExportError("csv", err))
		return
	}

	h.send(w, r, "text/csv; charset=utf-8", fileName(snap, "csv"), &buf)
}

// Workbook handles GET /api/export/rentals.xlsx
func (h *ExportHandler) Workbook(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r, true)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.workbook.Write(&buf, snap); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ExportError("xlsx", err))
		return
	}

	h.send(w, r, exporter.ContentTypeXLSX, fileName(snap, "xlsx"), &buf)
}

func (h *ExportHandler) snapshot(w http.ResponseWriter, r *http.Request, tables bool) (*domain.Snapshot, bool) {
	q, err := h.validator.BindRangeQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	opts := services.OptionsFromQuery(q, services.SourceExport)
	opts.ShowSummary = tables
	opts.ShowRaw = tables

	snap, err := h.service.Snapshot(r.Context(), opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	return snap, true
}

func (h *ExportHandler) send(w http.ResponseWriter, r *http.Request, contentType, name string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export write failed",
			slog.String("file", name),
			slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "export served",
		slog.String("file", name),
		slog.String("content_type", contentType))
}

// fileName names the download after the effective range, or generically
// when the dataset is empty.
func fileName(snap *domain.Snapshot, ext string) string {
	if snap.Bounds == nil {
		return "daily_rentals." + ext
	}
	return exporter.ReportFileName(snap.Effective, ext)
}
