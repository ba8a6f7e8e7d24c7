package dataset

import (
	"cmp"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	apierrors "bikepulse/internal/errors"
	"bikepulse/pkg/contracts/domain"
)

// Source column names.
const (
	ColDate       = "dteday"
	ColTotal      = "cnt_day"
	ColCasual     = "casual_day"
	ColRegistered = "registered_day"
	ColSeason     = "season_label"
	ColHour       = "hr"
	ColHourly     = "cnt_hour"
)

// RequiredColumns lists the columns every input file must carry.
var RequiredColumns = []string{ColDate, ColTotal, ColCasual, ColRegistered, ColSeason, ColHour, ColHourly}

// DefaultMaxProblems bounds how many row problems a LoadReport keeps.
const DefaultMaxProblems = 20

var dateLayouts = []string{
	domain.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Options controls row validation.
type Options struct {
	// Strict makes the first malformed row fatal.
	Strict bool
	// MaxProblems caps LoadReport.Problems; zero means DefaultMaxProblems.
	MaxProblems int
	// Now stamps LoadReport.LoadedAt; nil means time.Now.
	Now func() time.Time
}

// LoadFile reads the dataset at path.
func LoadFile(ctx context.Context, path string, opts Options, logger *slog.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apierrors.NewNotFoundError("dataset file").WithCause(err).WithContext("path", path)
		}
		return nil, apierrors.NewStorageError("failed to open dataset", err).WithContext("path", path)
	}
	defer f.Close()

	ds, err := Load(ctx, f, path, opts)
	if err != nil {
		return nil, err
	}

	report := ds.Report()
	logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", path),
		slog.Int("rows", report.Rows),
		slog.Int("loaded", report.Loaded),
		slog.Int("skipped", report.Skipped),
	)
	for _, p := range report.Problems {
		logger.WarnContext(ctx, "dataset row skipped",
			slog.Int("row", p.Row),
			slog.String("column", p.Column),
			slog.String("value", p.Value),
			slog.String("reason", p.Reason),
		)
	}

	return ds, nil
}

// Load parses CSV from r. source names the input in errors and the report.
func Load(ctx context.Context, r io.Reader, source string, opts Options) (*Dataset, error) {
	if opts.MaxProblems <= 0 {
		opts.MaxProblems = DefaultMaxProblems
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	header, rows, problems, err := readRows(r, opts)
	if err != nil {
		return nil, err.WithContext("source", source)
	}

	if missing := missingColumns(header); len(missing) > 0 {
		return nil, apierrors.NewAppValidationError(
			"missing required columns: "+strings.Join(missing, ", "),
		).WithContext("source", source)
	}

	report := domain.LoadReport{Source: source, Rows: len(rows.lines) + len(problems)}
	if len(rows.lines) == 0 {
		addProblems(&report, problems, opts.MaxProblems)
		report.LoadedAt = now()
		return New(nil, report), nil
	}

	// every column stays a string so each cell is validated here, not by gota
	df := dataframe.LoadRecords(append([][]string{header}, rows.records...),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, apierrors.NewParsingError("failed to read dataset CSV", df.Err).WithContext("source", source)
	}
	columns := columnSet(make(map[string][]string, len(RequiredColumns)))
	for _, name := range RequiredColumns {
		columns[name] = df.Col(name).Records()
	}

	records := make([]domain.RentalRecord, 0, df.Nrow())

	for i := 0; i < df.Nrow(); i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, problem := parseRow(columns, i)
		if problem != nil {
			problem.Row = rows.lines[i]
			if opts.Strict {
				return nil, apierrors.NewParsingError(
					fmt.Sprintf("row %d: %s %q: %s", problem.Row, problem.Column, problem.Value, problem.Reason), nil,
				).WithContext("source", source)
			}
			problems = append(problems, *problem)
			continue
		}
		records = append(records, rec)
	}

	addProblems(&report, problems, opts.MaxProblems)
	report.Loaded = len(records)
	report.LoadedAt = now()
	return New(records, report), nil
}

// addProblems records every skipped row and keeps the first limit problems in
// row order.
func addProblems(report *domain.LoadReport, problems []domain.LoadProblem, limit int) {
	slices.SortStableFunc(problems, func(a, b domain.LoadProblem) int { return cmp.Compare(a.Row, b.Row) })
	report.Skipped = len(problems)
	if len(problems) > limit {
		problems = problems[:limit]
	}
	report.Problems = problems
}

// columnSet holds the string records of the required columns.
type columnSet map[string][]string

// rowSet holds the well-formed data rows and their 1-based data row numbers.
type rowSet struct {
	records [][]string
	lines   []int
}

// readRows splits the input into the header and the data rows. Rows with a
// field count different from the header's are reported as problems, or
// fail the read in strict mode.
func readRows(r io.Reader, opts Options) ([]string, rowSet, []domain.LoadProblem, *apierrors.AppError) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, rowSet{}, nil, apierrors.NewParsingError("dataset file is empty", nil)
	}
	if err != nil {
		return nil, rowSet{}, nil, apierrors.NewParsingError("failed to read dataset header", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var (
		rows     rowSet
		problems []domain.LoadProblem
	)
	for line := 1; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rowSet{}, nil, apierrors.NewParsingError(fmt.Sprintf("row %d", line), err)
		}
		if len(fields) != len(header) {
			p := domain.LoadProblem{
				Row:    line,
				Value:  strings.Join(fields, ","),
				Reason: "wrong number of fields",
			}
			if opts.Strict {
				return nil, rowSet{}, nil, apierrors.NewParsingError(
					fmt.Sprintf("row %d: %s (got %d, want %d)", line, p.Reason, len(fields), len(header)), nil)
			}
			problems = append(problems, p)
			continue
		}
		rows.records = append(rows.records, fields)
		rows.lines = append(rows.lines, line)
	}
	return header, rows, problems, nil
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}

	var missing []string
	for _, name := range RequiredColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

func parseRow(cols columnSet, i int) (domain.RentalRecord, *domain.LoadProblem) {
	var rec domain.RentalRecord

	date, err := ParseDate(cols[ColDate][i])
	if err != nil {
		return rec, &domain.LoadProblem{Column: ColDate, Value: cols[ColDate][i], Reason: "unparseable date"}
	}
	rec.Date = date

	counts := []struct {
		col string
		dst *int64
	}{
		{ColTotal, &rec.TotalCount},
		{ColCasual, &rec.CasualCount},
		{ColRegistered, &rec.RegisteredCount},
		{ColHourly, &rec.HourlyCount},
	}
	for _, c := range counts {
		v, reason := parseCount(cols[c.col][i])
		if reason != "" {
			return rec, &domain.LoadProblem{Column: c.col, Value: cols[c.col][i], Reason: reason}
		}
		*c.dst = v
	}

	hour, reason := parseCount(cols[ColHour][i])
	if reason == "" && hour > 23 {
		reason = "hour outside 0-23"
	}
	if reason != "" {
		return rec, &domain.LoadProblem{Column: ColHour, Value: cols[ColHour][i], Reason: reason}
	}
	rec.Hour = int(hour)

	rec.SeasonLabel = strings.TrimSpace(cols[ColSeason][i])
	return rec, nil
}

// parseCount accepts non-negative integers, including integral floats such
// as "985.0" written by dataframe tools. It returns a reason on failure.
func parseCount(raw string) (int64, string) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if v < 0 {
			return 0, "negative count"
		}
		return v, ""
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "not a number"
	}
	if f != math.Trunc(f) {
		return 0, "not an integer"
	}
	if f < 0 {
		return 0, "negative count"
	}
	return int64(f), ""
}

// ParseDate parses a calendar date and truncates it to UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}
