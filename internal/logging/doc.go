// Package logging assembles structured slog loggers and formatting helpers used
// across convertify.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so engine and runner code tag
// log lines with job IDs, run IDs, and stages. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
