package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"bikepulse/pkg/contracts/domain"
)

// DailyHeaders is the column layout of the daily report.
var DailyHeaders = []string{"date", "total_count_sum", "casual_count_sum", "registered_count_sum"}

// RecordHeaders is the column layout of the raw rows export. It matches the
// source dataset columns.
var RecordHeaders = []string{"dteday", "cnt_day", "casual_day", "registered_day", "season_label", "hr", "cnt_hour"}

// SummaryHeaders is the column layout of the describe table export.
var SummaryHeaders = []string{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// DailyExporter handles daily report generation.
type DailyExporter struct {
	csvWriter *CSVWriter
	logger    *slog.Logger
}

// NewDailyExporter creates a new daily exporter
func NewDailyExporter(logger *slog.Logger) *DailyExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyExporter{
		csvWriter: NewCSVWriter(logger),
		logger:    logger.With(slog.String("component", "daily_exporter")),
	}
}

// WriteDailyCSV streams the daily aggregates to w with a UTF-8 BOM.
func (e *DailyExporter) WriteDailyCSV(w io.Writer, daily []domain.DailyAggregate) error {
	return e.csvWriter.Write(w, WriteOptions{
		Headers:   DailyHeaders,
		Records:   DailyRows(daily),
		BOMPrefix: true,
	})
}

// ExportDailyCSV writes the daily aggregates to a file.
func (e *DailyExporter) ExportDailyCSV(path string, daily []domain.DailyAggregate) error {
	if err := e.csvWriter.WriteFile(path, WriteOptions{
		Headers:   DailyHeaders,
		Records:   DailyRows(daily),
		BOMPrefix: true,
	}); err != nil {
		return fmt.Errorf("failed to export daily report: %w", err)
	}

	e.logger.Info("Exported daily report",
		slog.String("path", path),
		slog.Int("days", len(daily)))
	return nil
}

// ReportFileName names a report for a date range, e.g.
// daily_rentals_2011-01-01_2011-12-31.csv.
func ReportFileName(r domain.DateRange, ext string) string {
	return fmt.Sprintf("daily_rentals_%s_%s.%s", formatDate(r.Start), formatDate(r.End), ext)
}

// DailyRows converts aggregates to CSV rows in the DailyHeaders layout.
func DailyRows(daily []domain.DailyAggregate) [][]string {
	rows := make([][]string, 0, len(daily))
	for _, d := range daily {
		rows = append(rows, []string{
			formatDate(d.Date),
			formatInt(d.TotalCountSum),
			formatInt(d.CasualCountSum),
			formatInt(d.RegisteredCountSum),
		})
	}
	return rows
}

// RecordRows converts records to CSV rows in the RecordHeaders layout.
func RecordRows(records []domain.RentalRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			formatDate(r.Date),
			formatInt(r.TotalCount),
			formatInt(r.CasualCount),
			formatInt(r.RegisteredCount),
			r.SeasonLabel,
			formatInt(int64(r.Hour)),
			formatInt(r.HourlyCount),
		})
	}
	return rows
}

// SummaryRows converts the describe table to CSV rows in the SummaryHeaders layout.
func SummaryRows(stats []domain.SummaryStats) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Column,
			formatInt(int64(s.Count)),
			formatFloat(s.Mean),
			formatFloat(s.Std),
			formatFloat(s.Min),
			formatFloat(s.P25),
			formatFloat(s.P50),
			formatFloat(s.P75),
			formatFloat(s.Max),
		})
	}
	return rows
}
