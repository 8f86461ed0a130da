// Package tasks is a generic ledger of long-running operations.
//
// A [Task] is created RUNNING and only ever changes through [Tracker.Merge],
// which applies a caller-supplied mutation on top of the currently stored
// record with optimistic concurrency: the write succeeds only if nobody else
// wrote since the read, otherwise the cycle is retried. SUCCEEDED and FAILED
// are sticky; a merge against a terminal task is a no-op returning the stored
// record unchanged.
package tasks
