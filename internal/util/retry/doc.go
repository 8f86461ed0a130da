// Package retry provides exponential backoff retry logic.
//
// The [WithExponentialBackoff] function retries an operation with configurable
// max attempts, initial delay, maximum delay and an optional retry predicate.
// The task tracker uses it to re-run optimistic read-modify-write cycles that
// lost a race against a concurrent writer.
package retry
