// Package app wires the dashboard server together and manages its lifecycle.
//
// NewApplication loads the configuration, builds the logger and hands over
// to New, which:
//
//  1. initializes OpenTelemetry and the business metrics
//  2. loads the rental dataset (a missing or unreadable file is fatal)
//  3. creates the dashboard, health and websocket components
//  4. builds the chi router and the HTTP server
//
// Run serves until SIGINT or SIGTERM. Shutdown closes websocket sessions
// first, then drains HTTP requests and flushes telemetry.
//
// The app does not call os.Exit; main decides how to exit.
package app
