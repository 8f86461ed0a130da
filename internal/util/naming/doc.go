// Package naming provides consistent names for objects chainfleet stores
// outside the process.
//
// Kubernetes object names follow the pattern chainfleet-{kind}-{id}; object
// storage keys are {prefix}/{kind}/{id}.json.
package naming
