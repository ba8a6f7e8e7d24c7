package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/shared/testutil"
	api "bikepulse/pkg/contracts/api/v1"
	"bikepulse/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, records []domain.RentalRecord) *DashboardService {
	t.Helper()
	ds := dataset.New(records, domain.LoadReport{Source: "fixture.csv", Rows: len(records), Loaded: len(records)})
	svc, err := NewDashboardService(ds, nil, quietLogger())
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestNewDashboardService_NilDataset(t *testing.T) {
	_, err := NewDashboardService(nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestSnapshot_DefaultsToBounds(t *testing.T) {
	svc := newTestService(t, testutil.Records())

	snap, err := svc.Snapshot(context.Background(), SnapshotOptions{Source: SourceHTTP})
	require.NoError(t, err)

	assert.Equal(t, domain.DateRange{Start: testutil.Day("2011-01-01"), End: testutil.Day("2011-01-05")}, snap.Requested)
	assert.Equal(t, snap.Requested, snap.Effective)
	require.NotNil(t, snap.Bounds)
	assert.Equal(t, snap.Requested, *snap.Bounds)
	assert.Equal(t, 4, snap.RecordCount)
	require.Len(t, snap.Daily, 3)

	// daily totals repeat on each hourly row, so Jan 1 counts twice
	assert.Equal(t, int64(1970), snap.Daily[0].TotalCountSum)
	assert.Equal(t, int64(1970+801+1600), snap.Metrics.TotalRentals)
	assert.Equal(t, testutil.Day("2011-01-01"), snap.Metrics.BestDay.Date)
	assert.Equal(t, testutil.Day("2011-01-02"), snap.Metrics.WorstDay.Date)
	assert.Equal(t, api.BoxScopeAll, snap.BoxScope)
	assert.Nil(t, snap.Summary)
	assert.Nil(t, snap.Records)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), snap.GeneratedAt)
}

func TestSnapshot_ClampsToBounds(t *testing.T) {
	svc := newTestService(t, testutil.Records())

	snap, err := svc.Snapshot(context.Background(), SnapshotOptions{Start: "2010-06-01", End: "2011-01-02"})
	require.NoError(t, err)

	assert.Equal(t, testutil.Day("2010-06-01"), snap.Requested.Start)
	assert.Equal(t, domain.DateRange{Start: testutil.Day("2011-01-01"), End: testutil.Day("2011-01-02")}, snap.Effective)
	assert.Equal(t, 3, snap.RecordCount)
	assert.Len(t, snap.Daily, 2)
}

func TestSnapshot_RangeOutsideDataIsZeroState(t *testing.T) {
	svc := newTestService(t, testutil.Records())

	snap, err := svc.Snapshot(context.Background(), SnapshotOptions{Start: "2012-01-01", End: "2012-12-31"})
	require.NoError(t, err)

	assert.True(t, snap.Empty())
	assert.Equal(t, 0, snap.RecordCount)
	assert.Equal(t, int64(0), snap.Metrics.TotalRentals)
	assert.False(t, snap.Metrics.BestDay.Found)
	assert.False(t, snap.Metrics.WorstDay.Found)
	// full-dataset boxes are still shown
	assert.Len(t, snap.SeasonBoxes, 2)
}

func TestSnapshot_InvalidInput(t *testing.T) {
	svc := newTestService(t, testutil.Records())

	tests := []struct {
		name     string
		opts     SnapshotOptions
		sentinel error
		field    string
	}{
		{"start after end", SnapshotOptions{Start: "2011-01-05", End: "2011-01-01"}, ErrInvalidRange, "start"},
		{"bad start", SnapshotOptions{Start: "01/01/2011"}, ErrInvalidDate, "start"},
		{"bad end", SnapshotOptions{End: "2011-13-01"}, ErrInvalidDate, "end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := svc.Snapshot(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Nil(t, snap)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *apierrors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, apierrors.CodeValidationFailed, apiErr.ErrorCode)

			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)
			require.Len(t, details.Errors, 1)
			assert.Equal(t, tt.field, details.Errors[0].Field)
		})
	}
}

func TestSnapshot_FillGapsKeepsMetrics(t *testing.T) {
	svc := newTestService(t, testutil.Records())

	plain, err := svc.Snapshot(context.Background(), SnapshotOptions{})
	require.NoError(t, err)
	filled, err := svc.Snapshot(context.Background(), SnapshotOptions{FillGaps: true})
	require.NoError(t, err)

	assert.Len(t, plain.Daily, 3)
	require.Len(t, filled.Daily, 5)
	assert.Equal(t, testutil.Day("2011-01-03"), filled.Daily[2].Date)
	assert.Equal(t, int64(0), filled.Daily[2].TotalCountSum)

	// a synthesized zero day never becomes the worst day
	assert.Equal(t, plain.Metrics, filled.Metrics)
	assert.Equal(t, 3, filled.Metrics.Days)
}

func TestSnapshot_BoxScope(t *testing.T) {
	svc := newTestService(t, testutil.Records())
	opts := SnapshotOptions{Start: "2011-01-01", End: "2011-01-02"}

	all, err := svc.Snapshot(context.Background(), opts)
	require.NoError(t, err)
	assert.Len(t, all.SeasonBoxes, 2)
	assert.Len(t, all.HourBoxes, 3)

	opts.BoxScope = "RANGE"
	ranged, err := svc.Snapshot(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, api.BoxScopeRange, ranged.BoxScope)
	require.Len(t, ranged.SeasonBoxes, 1)
	assert.Equal(t, "Springer", ranged.SeasonBoxes[0].Label)
	assert.Equal(t, 3, ranged.SeasonBoxes[0].Count)
	assert.Len(t, ranged.HourBoxes, 2)
}

func TestSnapshot_CachedBoxesAreCopies(t *testing.T) {
	records := testutil.Records()
	records = append(records, domain.RentalRecord{Date: testutil.Day("2011-01-05"), TotalCount: 1, SeasonLabel: "Winter", Hour: 5, HourlyCount: 10000})
	svc := newTestService(t, records)

	first, err := svc.Snapshot(context.Background(), SnapshotOptions{})
	require.NoError(t, err)
	for i := range first.HourBoxes {
		first.HourBoxes[i].Label = "mutated"
		for j := range first.HourBoxes[i].Outliers {
			first.HourBoxes[i].Outliers[j] = -1
		}
	}

	second, err := svc.Snapshot(context.Background(), SnapshotOptions{})
	require.NoError(t, err)
	for _, b := range second.HourBoxes {
		assert.NotEqual(t, "mutated", b.Label)
		for _, o := range b.Outliers {
			assert.NotEqual(t, -1.0, o)
		}
	}
}

func TestSnapshot_OptionalTables(t *testing.T) {
	svc := newTestService(t, testutil.Records())

	snap, err := svc.Snapshot(context.Background(), SnapshotOptions{Start: "2011-01-02", End: "2011-01-05", ShowSummary: true, ShowRaw: true})
	require.NoError(t, err)

	require.Len(t, snap.Records, 2)
	assert.Equal(t, testutil.Day("2011-01-02"), snap.Records[0].Date)
	require.NotEmpty(t, snap.Summary)
	assert.Equal(t, "cnt_day", snap.Summary[0].Column)
	assert.Equal(t, 2, snap.Summary[0].Count)
}

func TestSnapshot_EmptyDataset(t *testing.T) {
	svc := newTestService(t, nil)

	snap, err := svc.Snapshot(context.Background(), SnapshotOptions{})
	require.NoError(t, err)
	assert.Nil(t, snap.Bounds)
	assert.True(t, snap.Empty())
	assert.Empty(t, snap.SeasonBoxes)
	assert.Empty(t, snap.HourBoxes)
	assert.False(t, snap.Metrics.BestDay.Found)

	info := svc.Bounds(context.Background())
	assert.Nil(t, info.Bounds)
	assert.Equal(t, 0, info.Records)
}

func TestDailySeries(t *testing.T) {
	svc := newTestService(t, testutil.Records())

	daily, err := svc.DailySeries(context.Background(), SnapshotOptions{Start: "2011-01-02", FillGaps: true})
	require.NoError(t, err)
	require.Len(t, daily, 4)
	assert.Equal(t, testutil.Day("2011-01-02"), daily[0].Date)
	assert.Equal(t, testutil.Day("2011-01-05"), daily[3].Date)

	_, err = svc.DailySeries(context.Background(), SnapshotOptions{Start: "2011-02-01", End: "2011-01-01"})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestBounds(t *testing.T) {
	svc := newTestService(t, testutil.Records())

	info := svc.Bounds(context.Background())
	require.NotNil(t, info.Bounds)
	assert.Equal(t, testutil.Day("2011-01-01"), info.Bounds.Start)
	assert.Equal(t, testutil.Day("2011-01-05"), info.Bounds.End)
	assert.Equal(t, 4, info.Records)
	assert.Equal(t, "fixture.csv", info.Report.Source)
}

func TestOptionsFromQuery(t *testing.T) {
	q := api.RangeQuery{Start: "2011-01-01", End: "2011-01-31", FillGaps: true, BoxScope: "range", ShowSummary: true}
	opts := OptionsFromQuery(q, SourceWebSocket)

	assert.Equal(t, SnapshotOptions{
		Start: "2011-01-01", End: "2011-01-31", FillGaps: true, BoxScope: "range",
		ShowSummary: true, Source: SourceWebSocket,
	}, opts)
}
