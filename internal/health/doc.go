// Package health evaluates per-server verdicts through the backend health
// endpoint.
//
// Each rendered server gets one independent evaluation. Dispatch issues them
// all concurrently with no cap and no ordering between servers. A server with
// no checks resolves to unknown immediately without any request. Transport
// errors, non-success responses and malformed bodies all collapse to unknown:
// a failing probe never surfaces as an error.
//
// The main components are:
//
//   - [Orchestrator]: Evaluate and Dispatch
//   - [VerdictExtractor]: Maps a health response body to a verdict
//   - [Target]: A server plus the badge handle its verdict resolves
package health
