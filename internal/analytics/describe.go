package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"bikepulse/pkg/contracts/domain"
)

// DescribeColumns are the numeric columns summarized by Describe, in order.
var DescribeColumns = []string{"cnt_day", "casual_day", "registered_day", "hr", "cnt_hour"}

// Describe computes count, mean, sample standard deviation, min, quartiles
// and max for each numeric column. Empty input gives zero rows with Count 0;
// a single row has a standard deviation of 0.
func Describe(records []domain.RentalRecord) []domain.SummaryStats {
	columns := make([][]float64, len(DescribeColumns))
	for i := range columns {
		columns[i] = make([]float64, 0, len(records))
	}
	for _, rec := range records {
		columns[0] = append(columns[0], float64(rec.TotalCount))
		columns[1] = append(columns[1], float64(rec.CasualCount))
		columns[2] = append(columns[2], float64(rec.RegisteredCount))
		columns[3] = append(columns[3], float64(rec.Hour))
		columns[4] = append(columns[4], float64(rec.HourlyCount))
	}

	out := make([]domain.SummaryStats, 0, len(DescribeColumns))
	for i, name := range DescribeColumns {
		out = append(out, describeColumn(name, columns[i]))
	}
	return out
}

func describeColumn(name string, values []float64) domain.SummaryStats {
	s := domain.SummaryStats{Column: name, Count: len(values)}
	if len(values) == 0 {
		return s
	}

	sorted := sortedCopy(values)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.P25 = quantile(sorted, 0.25)
	s.P50 = quantile(sorted, 0.5)
	s.P75 = quantile(sorted, 0.75)

	mean, std := stat.MeanStdDev(values, nil)
	s.Mean = mean
	if len(values) > 1 && !math.IsNaN(std) {
		s.Std = std
	}
	return s
}
