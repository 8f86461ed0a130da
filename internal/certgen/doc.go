// Package certgen produces batches of self-signed ECDSA identities.
//
// Every identity is an independent unit of work (key pair plus
// self-signature). A batch fans the units out over a bounded worker pool and
// fails as a whole if any single unit fails.
package certgen
