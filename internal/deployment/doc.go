// Package deployment drives blockchain deployments to completion.
//
// A [Service] turns a creation request into a placement, starts the cluster
// deployment through a [Provisioner] and hands the resulting event stream to
// a [Coordinator]. The Coordinator owns one goroutine per deployment session:
// it folds the ordered events into session state, mirrors progress onto the
// bound task, and on a successful terminal event records the cluster
// resource.
package deployment
