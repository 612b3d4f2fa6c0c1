// Package queue holds the conversion jobs of one session and drives their
// lifecycle.
//
// The Store keeps jobs in an in-memory SQLite database: queue order, source
// bytes, target format selection, status transitions, and finished artifacts.
// Nothing is written to disk and the database disappears with the process.
//
// Status only moves Pending -> Running -> Succeeded|Failed, plus the explicit
// Retry edge Failed -> Pending. Every transition is a conditional UPDATE, so
// a job removed or changed concurrently is reported through ErrJobNotFound or
// ErrInvalidTransition instead of being silently overwritten.
//
// Treat this package as the single source of truth for queue semantics; when
// you add statuses or job fields, update schema.sql alongside models.go.
package queue
