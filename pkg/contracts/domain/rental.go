// Package domain holds the rental data model shared by every layer.
package domain

import (
	"time"
)

// DateLayout is the calendar date format used on every external surface.
const DateLayout = "2006-01-02"

// RentalRecord is one row of the source dataset. Each row is an hour-of-day
// slice that also carries the totals of the day it belongs to.
type RentalRecord struct {
	Date            time.Time `json:"date" validate:"required"`
	TotalCount      int64     `json:"cnt_day" validate:"min=0"`
	CasualCount     int64     `json:"casual_day" validate:"min=0"`
	RegisteredCount int64     `json:"registered_day" validate:"min=0"`
	SeasonLabel     string    `json:"season_label"`
	Hour            int       `json:"hr" validate:"min=0,max=23"`
	HourlyCount     int64     `json:"cnt_hour" validate:"min=0"`
}

// DailyAggregate holds the per-day sums of a filtered record subset.
type DailyAggregate struct {
	Date               time.Time `json:"date"`
	TotalCountSum      int64     `json:"total_count_sum"`
	CasualCountSum     int64     `json:"casual_count_sum"`
	RegisteredCountSum int64     `json:"registered_count_sum"`
}

// DayMetric is a best or worst day. Found is false when there was no data
// to pick a day from.
type DayMetric struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
	Found bool      `json:"found"`
}

// DateLabel formats the day for display, or "-" when no day was found.
func (d DayMetric) DateLabel() string {
	if !d.Found {
		return "-"
	}
	return d.Date.Format(DateLayout)
}

// DashboardMetrics are the scalar figures derived from a daily aggregate.
type DashboardMetrics struct {
	TotalRentals    int64     `json:"total_rentals"`
	TotalCasual     int64     `json:"total_casual"`
	TotalRegistered int64     `json:"total_registered"`
	BestDay         DayMetric `json:"best_day"`
	WorstDay        DayMetric `json:"worst_day"`
	Days            int       `json:"days"`
}

// BoxStats summarizes one category of a boxplot.
type BoxStats struct {
	Label        string    `json:"label"`
	Count        int       `json:"count"`
	Min          float64   `json:"min"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	Max          float64   `json:"max"`
	LowerWhisker float64   `json:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker"`
	Outliers     []float64 `json:"outliers,omitempty"`
}

// SummaryStats is one column of a describe table.
type SummaryStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	P50    float64 `json:"p50"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// DateRange is an inclusive calendar date interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Valid reports whether Start is not after End.
func (r DateRange) Valid() bool {
	return !r.Start.After(r.End)
}

// String renders the range as "start..end".
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// Days returns the number of calendar days in the range, bounds included.
func (r DateRange) Days() int {
	if !r.Valid() {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// LoadProblem describes a source row that could not be used.
type LoadProblem struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// LoadReport summarizes a dataset load.
type LoadReport struct {
	Source   string        `json:"source"`
	Rows     int           `json:"rows"`
	Loaded   int           `json:"loaded"`
	Skipped  int           `json:"skipped"`
	Problems []LoadProblem `json:"problems,omitempty"`
	LoadedAt time.Time     `json:"loaded_at"`
}

// Snapshot is everything a single dashboard render needs.
type Snapshot struct {
	Requested   DateRange        `json:"requested"`
	Effective   DateRange        `json:"effective"`
	Bounds      *DateRange       `json:"bounds,omitempty"`
	Daily       []DailyAggregate `json:"daily"`
	Metrics     DashboardMetrics `json:"metrics"`
	SeasonBoxes []BoxStats       `json:"season_boxes"`
	HourBoxes   []BoxStats       `json:"hour_boxes"`
	Summary     []SummaryStats   `json:"summary,omitempty"`
	Records     []RentalRecord   `json:"records,omitempty"`
	RecordCount int              `json:"record_count"`
	BoxScope    string           `json:"box_scope"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Empty reports whether the filtered range produced no data.
func (s *Snapshot) Empty() bool {
	return len(s.Daily) == 0
}
