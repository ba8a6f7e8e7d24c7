// Package testutil holds fixtures and a capturing slog handler shared by
// the package tests. It must only be imported from _test.go files.
package testutil
