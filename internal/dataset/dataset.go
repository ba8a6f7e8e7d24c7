package dataset

import (
	"slices"
	"time"

	"bikepulse/pkg/contracts/domain"
)

// Dataset is the read-only record set loaded at startup.
type Dataset struct {
	records []domain.RentalRecord
	bounds  domain.DateRange
	hasData bool
	report  domain.LoadReport
}

// New wraps records, keeping their order. The slice is copied.
func New(records []domain.RentalRecord, report domain.LoadReport) *Dataset {
	d := &Dataset{
		records: slices.Clone(records),
		report:  report,
	}
	if d.records == nil {
		d.records = []domain.RentalRecord{}
	}

	for i, rec := range d.records {
		if i == 0 || rec.Date.Before(d.bounds.Start) {
			d.bounds.Start = rec.Date
		}
		if i == 0 || rec.Date.After(d.bounds.End) {
			d.bounds.End = rec.Date
		}
	}
	d.hasData = len(d.records) > 0

	return d
}

// Records returns a copy of all records in source order.
func (d *Dataset) Records() []domain.RentalRecord {
	return slices.Clone(d.records)
}

// Len returns the number of loaded records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Bounds returns the earliest and latest record dates. ok is false for an
// empty dataset.
func (d *Dataset) Bounds() (domain.DateRange, bool) {
	return d.bounds, d.hasData
}

// Clamp limits r to the dataset bounds. A range entirely outside the bounds
// collapses onto the nearest bound and may become inverted, which the
// filter treats as empty. An empty dataset returns r unchanged.
func (d *Dataset) Clamp(r domain.DateRange) domain.DateRange {
	if !d.hasData {
		return r
	}
	if r.Start.Before(d.bounds.Start) {
		r.Start = d.bounds.Start
	}
	if r.End.After(d.bounds.End) {
		r.End = d.bounds.End
	}
	return r
}

// Source is the path or name the records were read from.
func (d *Dataset) Source() string {
	return d.report.Source
}

// LoadedAt is when the load finished.
func (d *Dataset) LoadedAt() time.Time {
	return d.report.LoadedAt
}

// Report returns a copy of the load report.
func (d *Dataset) Report() domain.LoadReport {
	r := d.report
	r.Problems = slices.Clone(d.report.Problems)
	return r
}
