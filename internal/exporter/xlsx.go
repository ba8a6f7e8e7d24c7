package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"bikepulse/pkg/contracts/domain"
)

// Workbook sheet names.
const (
	SheetDaily   = "Daily"
	SheetRecords = "Records"
	SheetSummary = "Summary"
)

// ContentTypeXLSX is the media type of the workbook export.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WorkbookExporter renders a snapshot as an XLSX workbook.
type WorkbookExporter struct {
	logger *slog.Logger
}

// NewWorkbookExporter creates a workbook exporter.
func NewWorkbookExporter(logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{logger: logger.With(slog.String("component", "workbook_exporter"))}
}

// Build creates the workbook. The caller owns the returned file and must
// close it.
func (e *WorkbookExporter) Build(snap *domain.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetDaily); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetRecords, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFB6C1"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	steps := []func(*excelize.File, int, *domain.Snapshot) error{
		writeDailySheet,
		writeRecordsSheet,
		writeSummarySheet,
	}
	for _, step := range steps {
		if err := step(f, header, snap); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook to w.
func (e *WorkbookExporter) Write(w io.Writer, snap *domain.Snapshot) error {
	f, err := e.Build(snap)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Save writes the workbook to path, creating parent directories.
func (e *WorkbookExporter) Save(path string, snap *domain.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := e.Build(snap)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Exported workbook",
		slog.String("path", path),
		slog.Int("days", len(snap.Daily)),
		slog.Int("records", len(snap.Records)))
	return nil
}

func writeDailySheet(f *excelize.File, header int, snap *domain.Snapshot) error {
	rows := make([][]interface{}, 0, len(snap.Daily))
	for _, d := range snap.Daily {
		rows = append(rows, []interface{}{formatDate(d.Date), d.TotalCountSum, d.CasualCountSum, d.RegisteredCountSum})
	}
	return writeTable(f, SheetDaily, header, 1, DailyHeaders, rows)
}

func writeRecordsSheet(f *excelize.File, header int, snap *domain.Snapshot) error {
	rows := make([][]interface{}, 0, len(snap.Records))
	for _, r := range snap.Records {
		rows = append(rows, []interface{}{
			formatDate(r.Date), r.TotalCount, r.CasualCount, r.RegisteredCount,
			r.SeasonLabel, r.Hour, r.HourlyCount,
		})
	}
	return writeTable(f, SheetRecords, header, 1, RecordHeaders, rows)
}

// writeSummarySheet puts the metric block on top and the describe table
// below it, separated by an empty row.
func writeSummarySheet(f *excelize.File, header int, snap *domain.Snapshot) error {
	m := snap.Metrics
	metrics := [][]interface{}{
		{"range", snap.Effective.String()},
		{"total_rentals", m.TotalRentals},
		{"total_casual", m.TotalCasual},
		{"total_registered", m.TotalRegistered},
		{"best_day", m.BestDay.DateLabel(), m.BestDay.Count},
		{"worst_day", m.WorstDay.DateLabel(), m.WorstDay.Count},
		{"days", m.Days},
	}
	if err := writeTable(f, SheetSummary, header, 1, []string{"metric", "value", "count"}, metrics); err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(snap.Summary))
	for _, s := range snap.Summary {
		rows = append(rows, []interface{}{s.Column, s.Count, s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max})
	}
	return writeTable(f, SheetSummary, header, len(metrics)+3, SummaryHeaders, rows)
}

// writeTable writes a styled header row at startRow followed by rows.
func writeTable(f *excelize.File, sheet string, header, startRow int, headers []string, rows [][]interface{}) error {
	first, err := excelize.CoordinatesToCellName(1, startRow)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), startRow)
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(sheet, first, &headers); err != nil {
		return fmt.Errorf("failed to write %s headers: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, first, last, header); err != nil {
		return fmt.Errorf("failed to style %s headers: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+1+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 16)
}
