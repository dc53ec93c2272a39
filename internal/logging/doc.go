// Package logging assembles structured slog loggers and formatting helpers used
// across fetch-media.
//
// It owns the console and JSON handlers, routes output to stderr (never
// stdout, which carries command results), and exposes context-aware helpers so
// pipeline code tags log lines with run IDs, stages, and identifiers. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
