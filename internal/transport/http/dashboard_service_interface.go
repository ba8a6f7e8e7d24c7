package http

import (
	"context"

	"bikepulse/internal/services"
	"bikepulse/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dashboard operations the handlers use
type DashboardServiceInterface interface {
	Snapshot(ctx context.Context, opts services.SnapshotOptions) (*domain.Snapshot, error)
	DailySeries(ctx context.Context, opts services.SnapshotOptions) ([]domain.DailyAggregate, error)
	Bounds(ctx context.Context) services.BoundsInfo
}
