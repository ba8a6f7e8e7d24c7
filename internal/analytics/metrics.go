package analytics

import (
	"bikepulse/pkg/contracts/domain"
)

// ComputeMetrics derives the headline figures from a daily aggregate.
// Ties for best and worst day go to the earliest day. An empty aggregate
// yields zero totals and best/worst days with Found set to false.
func ComputeMetrics(aggs []domain.DailyAggregate) domain.DashboardMetrics {
	m := domain.DashboardMetrics{Days: len(aggs)}
	if len(aggs) == 0 {
		return m
	}

	best, worst := 0, 0
	for i, a := range aggs {
		m.TotalRentals += a.TotalCountSum
		m.TotalCasual += a.CasualCountSum
		m.TotalRegistered += a.RegisteredCountSum

		if a.TotalCountSum > aggs[best].TotalCountSum {
			best = i
		}
		if a.TotalCountSum < aggs[worst].TotalCountSum {
			worst = i
		}
	}

	m.BestDay = domain.DayMetric{Date: aggs[best].Date, Count: aggs[best].TotalCountSum, Found: true}
	m.WorstDay = domain.DayMetric{Date: aggs[worst].Date, Count: aggs[worst].TotalCountSum, Found: true}
	return m
}
