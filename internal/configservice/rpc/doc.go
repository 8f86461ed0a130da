// Package rpc exposes the configuration service over gRPC.
//
// Messages are plain Go structs carried with a JSON codec registered under
// the "json" content subtype, so no generated stubs are needed. Errors map
// onto gRPC status codes through errdefs.GRPCCode.
package rpc
