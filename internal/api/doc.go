// Package api is the surface UI collaborators drive. It bundles the queue,
// runner, and intake behind one Service and translates internal job models
// into transport-friendly views that a CLI, TUI, or HTTP layer can render
// without coupling to queue internals.
//
// # Key Types
//
// JobView: a queue entry with its display size, status, selected target and
// the targets its media class allows.
//
// ResultView: one runner outcome, ready for a notification or a table row.
//
// # Design Notes
//
// Views use camelCase JSON tags. Internal enums (queue.Status, runner.Outcome)
// are exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
// Artifact bytes never appear in views; callers fetch them with Artifact.
package api
