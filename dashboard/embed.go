// Package dashboard provides the embedded web UI for meshweather.
//
// The page is a single HTML file with inline CSS and JavaScript. It loads
// /api/stations once and then follows /api/sse for live station updates.
package dashboard

import "embed"

// Assets holds the dashboard page at assets/index.html. The server replaces
// the {{.Title}} placeholder with the configured title.
//
//go:embed assets/*
var Assets embed.FS
