// Package runner drains the job queue through the conversion engine.
//
// A Runner snapshots the Pending jobs when RunAll is called and returns a lazy
// sequence that converts them one at a time in queue order. Jobs without a
// usable target format are reported as skipped and stay Pending; engine
// initialization failures are reported per job without touching job status so
// a later run can retry; conversion failures are recorded on the job and never
// stop the run.
//
// Jobs removed from the queue while their conversion is in flight are
// discarded: the conditional status update reports the job missing and the
// runner logs and drops the result instead of yielding it.
package runner
