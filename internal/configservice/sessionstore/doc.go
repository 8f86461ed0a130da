// Package sessionstore provides durable configservice.SessionStore backends.
//
// Both backends keep the create-once, read-many, delete-once contract of the
// in-memory store: inserts are conditional on absence at the storage layer,
// and a second delete of the same session fails with NotFound.
package sessionstore
