// Package labboard provides a self-hosted status dashboard for a small fleet
// of servers and devices.
//
// Labboard talks to a homelab backend over HTTP. It resolves the dashboard
// configuration, renders it, asks the backend to probe every server and
// serves an interactive browser dashboard in which the operator edits,
// validates, saves, backs up and restores the configuration, and merges
// newly discovered hosts into it.
//
// # Quick Start
//
//	lb, _ := labboard.New(labboard.WithAPIBase("http://nas.lan:8000/api"))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	lb.Start(ctx) // blocks until context is cancelled
//
// # Configuration Sources
//
// The configuration is resolved from the first source that yields one, in
// order: the backend, a static file or URL ([WithStaticSource]), the local
// override saved in the state file ([WithStateFile]), an embedded payload
// ([WithEmbeddedConfig]) and finally an empty configuration. A saved local
// override always seeds the editor, even when the backend wins; the
// dashboard then flags that the two differ.
//
// # Verdicts
//
// Every render starts one health round. Each server with at least one check
// is evaluated by the backend, and its badge resolves to [VerdictOnline] or
// [VerdictOffline]; anything else stays [VerdictUnknown]. Verdicts from an
// earlier render are discarded. [VerdictExtractor] functions decide how the
// backend's response is read:
//
//   - [JSONFieldExtractor]: reads a JSON field using dot notation
//   - [RegexExtractor]: matches the body against a pattern
//   - [ContainsExtractor]: looks for a substring
//   - [FirstMatch]: tries extractors in order
//   - [DefaultExtractor]: reads the top-level "status" field
//
// # Architecture
//
//   - internal/engine: the single owner of configuration, editor and view state
//   - internal/resolve, internal/render, internal/filter, internal/health:
//     source fallback, view rendering, search and probing
//   - internal/editor, internal/discovery, internal/backup, internal/validate:
//     operator editing workflows
//   - internal/store: badge board with pub/sub for real-time updates
//   - internal/server: HTTP server with JSON API and Server-Sent Events
//   - internal/poller: periodic refresh
//   - dashboard: embedded web UI assets
package labboard
