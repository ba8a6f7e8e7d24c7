package analytics

import (
	"slices"

	"bikepulse/pkg/contracts/domain"
)

// AggregateDaily sums the three daily counts per distinct date. The result
// is sorted strictly ascending by date and holds no synthesized days.
func AggregateDaily(records []domain.RentalRecord) []domain.DailyAggregate {
	index := make(map[int64]int)
	out := make([]domain.DailyAggregate, 0)

	for _, rec := range records {
		key := rec.Date.Unix()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, domain.DailyAggregate{Date: rec.Date})
		}
		out[i].TotalCountSum += rec.TotalCount
		out[i].CasualCountSum += rec.CasualCount
		out[i].RegisteredCountSum += rec.RegisteredCount
	}

	slices.SortFunc(out, func(a, b domain.DailyAggregate) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// FillGaps returns aggs with a zero row for every day of r that has no
// aggregate. Rows outside r are dropped. aggs must be sorted ascending.
func FillGaps(aggs []domain.DailyAggregate, r domain.DateRange) []domain.DailyAggregate {
	if !r.Valid() {
		return make([]domain.DailyAggregate, 0)
	}

	out := make([]domain.DailyAggregate, 0, r.Days())
	i := 0
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		for i < len(aggs) && aggs[i].Date.Before(d) {
			i++
		}
		if i < len(aggs) && aggs[i].Date.Equal(d) {
			out = append(out, aggs[i])
			continue
		}
		out = append(out, domain.DailyAggregate{Date: d})
	}
	return out
}
