// Package shared holds helpers used across packages that belong to no
// single layer.
//
// The testutil subpackage provides a capturing slog handler and fixtures
// for raw spreadsheet rows and cleaned startup records. It must only be
// imported from _test.go files.
package shared
