//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// StdlibLogUsage flags the legacy log package in application code. Services
// log through slog via the logging package so output stays structured and
// level-filtered.
//
// Old pattern:
//
//	log.Printf("capture failed: %v", err)
//
// Preferred:
//
//	logger.Error("capture failed", "error", err)
func StdlibLogUsage(m dsl.Matcher) {
	m.Match(
		`log.Printf($*_)`,
		`log.Println($*_)`,
		`log.Print($*_)`,
	).
		Report("use a slog logger from internal/logging instead of the log package")
}

// FatalInLibraryCode flags log.Fatal outside main. Exiting from library code
// skips deferred cleanup, including database close and MQTT disconnect.
func FatalInLibraryCode(m dsl.Matcher) {
	m.Match(
		`log.Fatal($*_)`,
		`log.Fatalf($*_)`,
		`log.Fatalln($*_)`,
	).
		Report("return an error instead of calling log.Fatal; only main may exit")
}
