// Package preflight provides readiness checks for the filesystem paths,
// binaries, and notification endpoint convertify depends on.
//
// These checks run in two contexts:
//   - The engine calls CheckDirectoryAccess on its workspace root while
//     loading, so an unusable root fails initialization instead of a job.
//   - The CLI "convertify check" command runs RunAll and CheckSystemDeps to
//     display overall health.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
