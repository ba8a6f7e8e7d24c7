package analytics

import (
	"bikepulse/pkg/contracts/domain"
)

// Filter returns the records whose date lies in r, bounds included, in
// their original order. An inverted range selects nothing. The result is
// never nil.
func Filter(records []domain.RentalRecord, r domain.DateRange) []domain.RentalRecord {
	out := make([]domain.RentalRecord, 0)
	if !r.Valid() {
		return out
	}
	for _, rec := range records {
		if r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out
}
