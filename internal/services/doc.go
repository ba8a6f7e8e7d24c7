// Package services implements the business logic layer of the dashboard.
// Handlers and the websocket session call into it; it never touches HTTP.
//
// # Available Services
//
//	- DashboardService: resolves and clamps the date range, then runs
//	  filter, daily aggregation, metrics, box statistics and the optional
//	  describe table over the immutable dataset
//	- HealthService: liveness, readiness and version information
//
// # Error Handling
//
// Invalid input is returned as an error that matches both a sentinel from
// errors.go (ErrInvalidRange, ErrInvalidDate) and an *errors.APIError, so
// callers can branch with errors.Is and render with the shared error
// handler:
//
//	snap, err := svc.Snapshot(ctx, services.SnapshotOptions{Start: "2011-01-01"})
//	if errors.Is(err, services.ErrInvalidRange) {
//	    ...
//	}
//
// # Concurrency
//
// Services hold no mutable state. The dataset is read-only after load, so
// one service value is shared by every request and websocket session.
package services
