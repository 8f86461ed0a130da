// Package hcloud validates orchestration sites against the Hetzner Cloud API.
//
// Zone ids used in FIXED placements are Hetzner location names (fsn1, nbg1,
// hel1, ...). [SiteValidator] resolves each one through the Locations API,
// optionally restricts it to a network zone, and caches positive answers.
//
// Rate-limited lookups are retried with exponential backoff; unknown
// locations are reported as validation errors so the placement request is
// rejected before any deployment call is made.
package hcloud
