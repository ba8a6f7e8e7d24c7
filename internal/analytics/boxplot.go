package analytics

import (
	"strconv"

	"bikepulse/pkg/contracts/domain"
)

// whiskerRange is the IQR multiple beyond which values count as outliers.
const whiskerRange = 1.5

// SeasonBoxes summarizes TotalCount per season label, in order of each
// label's first appearance.
func SeasonBoxes(records []domain.RentalRecord) []domain.BoxStats {
	var labels []string
	groups := make(map[string][]float64)

	for _, rec := range records {
		if _, ok := groups[rec.SeasonLabel]; !ok {
			labels = append(labels, rec.SeasonLabel)
		}
		groups[rec.SeasonLabel] = append(groups[rec.SeasonLabel], float64(rec.TotalCount))
	}

	out := make([]domain.BoxStats, 0, len(labels))
	for _, label := range labels {
		out = append(out, Box(label, groups[label]))
	}
	return out
}

// HourBoxes summarizes HourlyCount per hour of day, ascending. Hours with
// no records are left out.
func HourBoxes(records []domain.RentalRecord) []domain.BoxStats {
	var groups [24][]float64
	for _, rec := range records {
		if rec.Hour < 0 || rec.Hour > 23 {
			continue
		}
		groups[rec.Hour] = append(groups[rec.Hour], float64(rec.HourlyCount))
	}

	out := make([]domain.BoxStats, 0, 24)
	for hour, values := range groups {
		if len(values) == 0 {
			continue
		}
		out = append(out, Box(strconv.Itoa(hour), values))
	}
	return out
}

// Box computes the five-number summary of values with Tukey whiskers at
// 1.5 IQR, clamped to the most extreme observed values inside the fences.
// Empty input yields a zero box with Count 0.
func Box(label string, values []float64) domain.BoxStats {
	b := domain.BoxStats{Label: label, Count: len(values)}
	if len(values) == 0 {
		return b
	}

	sorted := sortedCopy(values)
	b.Min = sorted[0]
	b.Max = sorted[len(sorted)-1]
	b.Q1 = quantile(sorted, 0.25)
	b.Median = quantile(sorted, 0.5)
	b.Q3 = quantile(sorted, 0.75)

	iqr := b.Q3 - b.Q1
	lowFence := b.Q1 - whiskerRange*iqr
	highFence := b.Q3 + whiskerRange*iqr

	b.LowerWhisker = b.Q1
	b.UpperWhisker = b.Q3
	for _, v := range sorted {
		if v >= lowFence {
			b.LowerWhisker = v
			break
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i] <= highFence {
			b.UpperWhisker = sorted[i]
			break
		}
	}
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			b.Outliers = append(b.Outliers, v)
		}
	}

	return b
}
