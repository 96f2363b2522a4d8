// Package server provides the HTTP server for the labboard dashboard and API.
//
// It projects the engine's state to a browser and forwards operator actions:
//
//   - Dashboard serving: the embedded page at "/"
//   - Server-Sent Events: badge, render, filter and validation events at "/api/sse"
//   - JSON API: view, editor, discovery, backup, filter and session routes under "/api/"
//
// Operator action failures answer with a JSON {"error": "..."} body and a
// 4xx or 5xx status so the page can show a blocking alert. The server shuts
// down gracefully on context cancellation, with a 5-second timeout for
// in-flight requests.
package server
