package exporter

import (
	"strconv"
	"time"

	"bikepulse/pkg/contracts/domain"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func formatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}
