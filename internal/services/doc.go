// Package services defines shared utilities consumed by the conversion engine,
// the job runner, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and run identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper, and Kind for turning any
//     failure into a short classification usable as a log field or metric label.
//
// Use these helpers when wiring new conversion logic so operational behaviour
// (error handling, observability) stays uniform across the module.
package services
