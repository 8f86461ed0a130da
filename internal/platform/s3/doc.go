// Package s3 provides a small client for S3-compatible object storage
// (Hetzner Object Storage, MinIO, AWS).
//
// Beyond plain bucket management it exposes conditional writes and deletes:
// PutObjectIfAbsent relies on If-None-Match so two writers can never both
// create the same key, and DeleteObjectIfMatch removes exactly the version
// that was read.
package s3
