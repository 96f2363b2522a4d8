// Package dashboard provides the embedded web UI assets for Labboard.
//
// The page talks to the JSON API under /api/ and listens for badge and state
// changes on /api/sse. Embedding keeps deployment to a single binary.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
//	assets/
//	  index.html    - Dashboard page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
