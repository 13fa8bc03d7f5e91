// Package poller fetches mesh weather node documents on an adaptive cadence.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with timeout and size limits
//   - [Poller]: one station's fetch-parse cycle, latest snapshot and cadence
//   - [Scheduler]: runs one polling loop per station under a concurrency limit
//   - [Result]: outcome of polling a single station once
//
// Users of the meshweather library should not need to interact with this
// package directly. Configuration is done through the root package.
package poller
