package http

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apierrors "bikepulse/internal/errors"
	bikemw "bikepulse/internal/middleware"
	"bikepulse/internal/services"
	api "bikepulse/pkg/contracts/api/v1"
	"bikepulse/pkg/contracts/domain"
)

//go:embed templates/dashboard.html
var dashboardTemplate string

//go:embed static/dashboard.js
var dashboardScript []byte

// PageConfig controls the rendered dashboard page.
type PageConfig struct {
	Title       string
	Footer      string
	RawRowLimit int
}

// PageHandler renders the dashboard HTML page
type PageHandler struct {
	service      DashboardServiceInterface
	validator    *bikemw.Validator
	tmpl         *template.Template
	cfg          PageConfig
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

type chartLinks struct {
	Daily, Users, Season, Hourly template.URL
}

type exportLinks struct {
	CSV, XLSX template.URL
}

type pageData struct {
	Title   string
	Footer  string
	Error   string
	Query   api.RangeQuery
	Start   string
	End     string
	Min     string
	Max     string
	Snap    *domain.Snapshot
	Charts  chartLinks
	Exports exportLinks
	Records []domain.RentalRecord
	Omitted int
	Skipped int
}

// NewPageHandler parses the embedded template.
func NewPageHandler(service DashboardServiceInterface, validator *bikemw.Validator, cfg PageConfig, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) (*PageHandler, error) {
	printer := message.NewPrinter(language.English)

	tmpl, err := template.New("dashboard").Funcs(template.FuncMap{
		"num": func(v any) string { return printer.Sprintf("%d", v) },
		"dec": func(v float64) string { return printer.Sprintf("%.2f", v) },
		"date": func(t time.Time) string {
			return t.Format(domain.DateLayout)
		},
	}).Parse(dashboardTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
	}

	return &PageHandler{
		service:      service,
		validator:    validator,
		tmpl:         tmpl,
		cfg:          cfg,
		logger:       logger.With(slog.String("component", "page_handler")),
		errorHandler: errorHandler,
	}, nil
}

// Dashboard handles GET /. Invalid controls do not fail the page: it is
// rendered for the full date range with the problem shown in a banner and
// a 400 status.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	var banner string

	q, err := h.validator.BindRangeQuery(r)
	if err != nil {
		status, banner = http.StatusBadRequest, problemText(err)
		q = api.RangeQuery{BoxScope: api.BoxScopeAll}
	}

	snap, err := h.service.Snapshot(r.Context(), services.OptionsFromQuery(q, services.SourceHTTP))
	if errors.Is(err, services.ErrInvalidRange) || errors.Is(err, services.ErrInvalidDate) {
		status, banner = http.StatusBadRequest, problemText(err)
		q.Start, q.End = "", ""
		snap, err = h.service.Snapshot(r.Context(), services.OptionsFromQuery(q, services.SourceHTTP))
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data := h.pageData(r.Context(), q, snap)
	data.Error = banner

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render dashboard page",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write dashboard page",
			slog.String("error", err.Error()))
	}
}

// Script handles GET /static/dashboard.js
func (h *PageHandler) Script(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(dashboardScript)
}

func (h *PageHandler) pageData(ctx context.Context, q api.RangeQuery, snap *domain.Snapshot) pageData {
	data := pageData{
		Title:   h.cfg.Title,
		Footer:  h.cfg.Footer,
		Query:   q,
		Snap:    snap,
		Skipped: h.service.Bounds(ctx).Report.Skipped,
	}

	chartParams := url.Values{}
	if snap.Bounds != nil {
		data.Min = snap.Bounds.Start.Format(domain.DateLayout)
		data.Max = snap.Bounds.End.Format(domain.DateLayout)
		data.Start = snap.Effective.Start.Format(domain.DateLayout)
		data.End = snap.Effective.End.Format(domain.DateLayout)
		chartParams.Set("start", data.Start)
		chartParams.Set("end", data.End)
	}
	chartParams.Set("box_scope", snap.BoxScope)
	if q.FillGaps {
		chartParams.Set("fill_gaps", "true")
	}
	encoded := chartParams.Encode()

	data.Charts = chartLinks{
		Daily:  template.URL("/charts/daily.svg?" + encoded),
		Users:  template.URL("/charts/users.svg?" + encoded),
		Season: template.URL("/charts/season.svg?" + encoded),
		Hourly: template.URL("/charts/hourly.svg?" + encoded),
	}
	data.Exports = exportLinks{
		CSV:  template.URL("/api/export/daily.csv?" + encoded),
		XLSX: template.URL("/api/export/rentals.xlsx?" + encoded),
	}

	data.Records = snap.Records
	if limit := h.cfg.RawRowLimit; limit > 0 && len(data.Records) > limit {
		data.Omitted = len(data.Records) - limit
		data.Records = data.Records[:limit]
	}

	return data
}

// problemText flattens a validation failure into one banner line.
func problemText(err error) string {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	msg := apiErr.Message
	if details, ok := apiErr.Details.(apierrors.ValidationErrors); ok {
		for _, fe := range details.Errors {
			msg += fmt.Sprintf("; %s %s", fe.Field, fe.Message)
		}
	}
	return msg
}
