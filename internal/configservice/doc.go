// Package configservice builds per-node bootstrap bundles for a consensus
// cluster and serves them from a create-once, read-many, delete-once session
// store.
//
// A bundle is an ordered list of [Component] values: host-independent static
// configuration first, then the node's consensus configuration and the TLS
// identities it is allowed to see, then service-specific identities and
// metrics configuration. Private keys are filtered by principal topology so
// that a node only ever receives keys for principals it hosts.
package configservice
