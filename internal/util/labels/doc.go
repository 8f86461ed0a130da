// Package labels provides consistent labeling for Kubernetes objects owned by
// chainfleet.
//
// All labels use the chainfleet.io domain prefix and follow a builder pattern
// for constructing label sets with component, consortium, cluster and session
// identification.
package labels
