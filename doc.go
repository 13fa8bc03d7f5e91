// Package meshweather polls weather relay nodes on a local mesh network and
// republishes their observations, forecasts, air quality and alerts.
//
// Each node serves a JSON document over plain HTTP. A [Monitor] polls every
// configured [Station] on its own cadence, parses the document into a
// [weather.Snapshot] and publishes the result to an embedded dashboard, a
// REST API, a Server-Sent Events stream, Prometheus metrics and any
// registered callbacks.
//
// # Quick Start
//
//	home, _ := meshweather.NewStation("Home", "") // DefaultURL
//	m, _ := meshweather.New(meshweather.WithStation(home))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	m.Start(ctx) // blocks until ctx is cancelled
//
// # Cadence
//
// A station is polled immediately on start. Until its node reports an update
// interval it is polled every [WithInitialInterval] (60 seconds by default).
// After each successful poll the cadence is recomputed according to the
// station's [Cadence]:
//
//   - [CadenceReported] adopts the reported interval.
//   - [CadenceAligned] waits until just after the node's next refresh.
//
// Either way the cadence never drops below [MinInterval]. A failed poll
// leaves both the snapshot and the cadence unchanged, and the station is
// published as [StateStale] until the next success. There is no retry: the
// next attempt happens on the normal cadence.
//
// # Validation
//
// [Check] performs a single synchronous fetch and parse and reports failures
// as a [*SetupError] carrying one of the codes cannot_connect, invalid_data
// or unknown.
//
// # Architecture
//
//   - weather: the document parser and snapshot model
//   - internal/poller: HTTP client, per-station poller and scheduler
//   - internal/store: in-memory read model with pub/sub
//   - internal/server: dashboard, REST API, SSE and /metrics
//   - internal/metrics: Prometheus instrumentation
//   - config: YAML configuration files for the meshweather command
//
// The internal packages are not part of the public API.
package meshweather
