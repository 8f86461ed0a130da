// Package async provides utilities for bounded parallel execution.
//
// Work is fanned out over a worker limit (defaulting to the number of CPUs),
// joined before returning, and fails as a whole when any unit fails: callers
// never observe partial results.
package async
