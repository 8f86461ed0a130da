// Package rpc exposes deployment.Service and the task tracker over gRPC
// using the JSON codec from grpcjson.
package rpc
