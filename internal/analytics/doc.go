// Package analytics holds the pure functions behind the dashboard: the
// inclusive date range filter, the per-day aggregation, the headline
// metrics and the distribution statistics. Nothing here mutates its input.
package analytics
