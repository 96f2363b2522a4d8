// Package api is the HTTP client for the homelab backend.
//
// The backend performs discovery, health probing, persistence and backups;
// this package only speaks its contract. Every request carries the session's
// authentication headers, runs under a per-request timeout derived from the
// caller's context and reads at most 1MB of response body.
//
// Non-2xx responses are returned as [*StatusError] carrying the backend's
// own error message when the body provides one.
package api
