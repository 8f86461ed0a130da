// Package clusters stores the cluster resources materialized by successful
// deployments. A resource is created exactly once per deployed cluster and
// is read-only afterwards.
package clusters
