package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bikepulse/internal/analytics"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/infrastructure"
	api "bikepulse/pkg/contracts/api/v1"
	"bikepulse/pkg/contracts/domain"
)

// Snapshot sources, used as a metric attribute.
const (
	SourceHTTP      = "http"
	SourceWebSocket = "websocket"
	SourceExport    = "export"
	SourceCLI       = "cli"
)

// SnapshotOptions selects the range and the optional parts of a snapshot.
// Empty Start or End default to the dataset bounds.
type SnapshotOptions struct {
	Start       string
	End         string
	FillGaps    bool
	BoxScope    string
	ShowSummary bool
	ShowRaw     bool
	Source      string
}

// OptionsFromQuery converts the request contract to service options.
func OptionsFromQuery(q api.RangeQuery, source string) SnapshotOptions {
	return SnapshotOptions{
		Start:       q.Start,
		End:         q.End,
		FillGaps:    q.FillGaps,
		BoxScope:    q.BoxScope,
		ShowSummary: q.ShowSummary,
		ShowRaw:     q.ShowRaw,
		Source:      source,
	}
}

// BoundsInfo describes the loaded dataset for the date picker.
type BoundsInfo struct {
	Bounds  *domain.DateRange `json:"bounds,omitempty"`
	Records int               `json:"records"`
	Report  domain.LoadReport `json:"report"`
}

// DashboardService runs the filter and aggregation pipeline over the
// immutable dataset. It holds no mutable state and is safe for concurrent
// use.
type DashboardService struct {
	data    *dataset.Dataset
	metrics *infrastructure.BusinessMetrics
	tracer  trace.Tracer
	logger  *slog.Logger
	now     func() time.Time

	// box stats over the whole dataset, computed once
	allSeasons []domain.BoxStats
	allHours   []domain.BoxStats
}

// NewDashboardService creates the service. metrics may be nil.
func NewDashboardService(data *dataset.Dataset, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*DashboardService, error) {
	if data == nil {
		return nil, ErrNoDataset
	}
	if logger == nil {
		logger = slog.Default()
	}

	records := data.Records()
	s := &DashboardService{
		data:       data,
		metrics:    metrics,
		tracer:     otel.Tracer(infrastructure.InstrumentationName),
		logger:     logger.With(slog.String("component", "dashboard_service")),
		now:        time.Now,
		allSeasons: analytics.SeasonBoxes(records),
		allHours:   analytics.HourBoxes(records),
	}

	bounds, ok := data.Bounds()
	attrs := []any{
		slog.String("source", data.Source()),
		slog.Int("records", data.Len()),
	}
	if ok {
		attrs = append(attrs, slog.String("bounds", bounds.String()))
	}
	s.logger.Info("DashboardService initialized", attrs...)

	return s, nil
}

// Bounds returns the dataset date bounds and the load report.
func (s *DashboardService) Bounds(ctx context.Context) BoundsInfo {
	info := BoundsInfo{
		Records: s.data.Len(),
		Report:  s.data.Report(),
	}
	if b, ok := s.data.Bounds(); ok {
		info.Bounds = &b
	}
	return info
}

// Snapshot filters the dataset to the requested range and computes every
// figure the dashboard shows.
func (s *DashboardService) Snapshot(ctx context.Context, opts SnapshotOptions) (snap *domain.Snapshot, err error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "DashboardService.Snapshot",
		trace.WithAttributes(
			attribute.String("range.start", opts.Start),
			attribute.String("range.end", opts.End),
			attribute.String("source", opts.Source),
		))
	defer func() {
		records := 0
		if snap != nil {
			records = snap.RecordCount
		}
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
		s.metrics.RecordSnapshot(ctx, opts.Source, records, s.now().Sub(start), err)
		span.End()
	}()

	requested, err := s.resolveRange(opts.Start, opts.End)
	if err != nil {
		return nil, err
	}

	effective := s.data.Clamp(requested)
	all := s.data.Records()
	filtered := analytics.Filter(all, effective)
	daily := analytics.AggregateDaily(filtered)

	snap = &domain.Snapshot{
		Requested:   requested,
		Effective:   effective,
		Daily:       daily,
		Metrics:     analytics.ComputeMetrics(daily),
		RecordCount: len(filtered),
		BoxScope:    normalizeBoxScope(opts.BoxScope),
		GeneratedAt: s.now().UTC(),
	}
	if b, ok := s.data.Bounds(); ok {
		snap.Bounds = &b
	}

	// metrics above are computed before any synthesized zero days
	if opts.FillGaps && effective.Valid() {
		snap.Daily = analytics.FillGaps(daily, effective)
	}

	if snap.BoxScope == api.BoxScopeRange {
		snap.SeasonBoxes = analytics.SeasonBoxes(filtered)
		snap.HourBoxes = analytics.HourBoxes(filtered)
	} else {
		snap.SeasonBoxes = cloneBoxes(s.allSeasons)
		snap.HourBoxes = cloneBoxes(s.allHours)
	}

	if opts.ShowSummary {
		snap.Summary = analytics.Describe(filtered)
	}
	if opts.ShowRaw {
		snap.Records = filtered
	}

	infrastructure.AddSpanEvent(ctx, "snapshot.computed",
		attribute.Int("records", snap.RecordCount),
		attribute.Int("days", len(daily)))

	s.logger.DebugContext(ctx, "Snapshot computed",
		slog.String("requested", requested.String()),
		slog.String("effective", effective.String()),
		slog.Int("records", snap.RecordCount),
		slog.Int("days", len(daily)),
		slog.String("box_scope", snap.BoxScope),
		slog.String("source", opts.Source))

	return snap, nil
}

// DailySeries returns only the daily aggregate for a range, honoring FillGaps.
func (s *DashboardService) DailySeries(ctx context.Context, opts SnapshotOptions) ([]domain.DailyAggregate, error) {
	requested, err := s.resolveRange(opts.Start, opts.End)
	if err != nil {
		return nil, err
	}

	effective := s.data.Clamp(requested)
	daily := analytics.AggregateDaily(analytics.Filter(s.data.Records(), effective))
	if opts.FillGaps && effective.Valid() {
		daily = analytics.FillGaps(daily, effective)
	}
	return daily, nil
}

// resolveRange parses the dates, defaults missing ones to the dataset
// bounds and rejects a start after the end.
func (s *DashboardService) resolveRange(startRaw, endRaw string) (domain.DateRange, error) {
	bounds, _ := s.data.Bounds()
	r := bounds

	if startRaw != "" {
		t, err := parseDay("start", startRaw)
		if err != nil {
			return domain.DateRange{}, err
		}
		r.Start = t
	}
	if endRaw != "" {
		t, err := parseDay("end", endRaw)
		if err != nil {
			return domain.DateRange{}, err
		}
		r.End = t
	}

	if !r.Valid() {
		return domain.DateRange{}, fmt.Errorf("%w: %w", ErrInvalidRange,
			apierrors.InvalidRangeError(r.Start.Format(domain.DateLayout), r.End.Format(domain.DateLayout)))
	}
	return r, nil
}

func parseDay(field, raw string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidDate,
			apierrors.ErrValidation(field, "must be a date in YYYY-MM-DD format"))
	}
	return t, nil
}

func normalizeBoxScope(scope string) string {
	if strings.EqualFold(scope, api.BoxScopeRange) {
		return api.BoxScopeRange
	}
	return api.BoxScopeAll
}

func cloneBoxes(boxes []domain.BoxStats) []domain.BoxStats {
	out := make([]domain.BoxStats, len(boxes))
	for i, b := range boxes {
		b.Outliers = slices.Clone(b.Outliers)
		out[i] = b
	}
	return out
}
