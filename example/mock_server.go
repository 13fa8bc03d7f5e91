package main

import (
	"log/slog"
	"net/http"

	"github.com/jpalmerr/meshweather/example/mocknode"
)

// StartMockNodes serves fake node documents on addr. One request in ten
// fails so the demo shows stale stations.
// Call this in a goroutine before starting the monitor.
func StartMockNodes(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/", mocknode.New(0.1, slog.Default()))

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
