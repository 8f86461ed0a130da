// Package placement turns fault-tolerance parameters into a replica-to-site
// assignment.
//
// A cluster tolerating f byzantine failures and c slow members needs
// 3f + 2c + 1 replicas. [Plan] either leaves every replica unbound (the
// orchestrator picks sites later) or binds each replica to a caller-supplied
// zone, preserving order and duplicates.
package placement
