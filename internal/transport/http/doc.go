// Package http implements the HTTP handlers of the bike rental dashboard.
// Handlers are thin: they bind and validate the range query, call the
// dashboard service and format the result.
//
// # Handlers
//
//	- PageHandler: the server-rendered dashboard page and its script
//	- DashboardHandler: Snapshot, bounds, daily, summary and records JSON
//	- ChartHandler: the four charts as SVG
//	- ExportHandler: daily CSV and XLSX workbook downloads
//	- HealthHandler: health, readiness, liveness and version
//	- ClientLogHandler: errors reported by the page script
//
// # Query Parameters
//
// Every dashboard route accepts start and end (YYYY-MM-DD), fill_gaps,
// box_scope (all or range), show_summary and show_raw. Missing dates
// default to the dataset bounds.
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details and are written by the
// shared errors.ErrorHandler:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "start date 2011-02-01 is after end date 2011-01-01",
//	    "instance": "/api/dashboard",
//	    "errors": [{"field": "start", "message": "..."}]
//	}
package http
