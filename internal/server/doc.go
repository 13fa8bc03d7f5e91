// Package server provides the HTTP read surface for polled stations.
//
// It serves the embedded dashboard at "/", station statuses as JSON under
// "/api/stations", the condition table at "/api/conditions", a
// Server-Sent Events stream at "/api/sse" and, when configured, Prometheus
// metrics at "/metrics".
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
