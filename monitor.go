package meshweather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jpalmerr/meshweather/dashboard"
	"github.com/jpalmerr/meshweather/internal/metrics"
	"github.com/jpalmerr/meshweather/internal/poller"
	"github.com/jpalmerr/meshweather/internal/server"
	"github.com/jpalmerr/meshweather/internal/store"
	"github.com/jpalmerr/meshweather/weather"
)

const (
	defaultPort           = 8080
	defaultMaxConcurrency = 4
)

// State summarizes how fresh a station's data is.
type State = store.State

const (
	StatePending = store.StatePending
	StateOK      = store.StateOK
	StateStale   = store.StateStale
)

// StationStatus is the published read model of one station, as served by
// the REST API and the SSE stream.
type StationStatus = store.StationStatus

// ErrAlreadyStarted is returned by [Monitor.Start] on a second call.
var ErrAlreadyStarted = errors.New("monitor already started")

// StationUpdate is delivered to update callbacks after every poll.
type StationUpdate struct {
	// Station is the display name of the polled station.
	Station string

	URL string

	// Labels is a copy of the station's labels.
	Labels map[string]string

	// State is StateOK after a success. After a failure it is StateStale
	// when an earlier snapshot exists and StatePending otherwise.
	State State

	// Snapshot is a private copy of the station's latest snapshot. After a
	// failure it is the previous snapshot, or nil.
	Snapshot *weather.Snapshot

	// Err is nil on success. Otherwise it matches one of [ErrCannotConnect],
	// [ErrInvalidData] or [ErrUnknown].
	Err error

	// Latency is the time taken by the fetch and parse.
	Latency time.Duration

	// CheckedAt is when the poll started.
	CheckedAt time.Time

	// Interval is the delay before the station is polled again.
	Interval time.Duration
}

// Monitor polls mesh weather stations and publishes their snapshots to the
// dashboard, the REST API, the SSE stream, Prometheus and callbacks.
//
// The typical lifecycle is:
//
//	m, err := meshweather.New(meshweather.WithStation(home))
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	m.Start(ctx) // blocks until ctx is cancelled
type Monitor struct {
	title           string
	stations        []Station
	port            int
	maxConcurrency  int
	logger          *slog.Logger
	clock           clockwork.Clock
	updateCallbacks []func(StationUpdate)

	store   *store.MemoryStore
	metrics *metrics.Metrics
	started atomic.Bool
}

// New creates a [Monitor] with the given options.
//
// At least one station must be configured via [WithStation] or
// [WithStations], and station names must be unique. Other options default
// to port 8080, max concurrency 4 and slog.Default().
//
// Every station is published as [StatePending] until its first successful poll.
func New(opts ...Option) (*Monitor, error) {
	cfg := &monitorConfig{
		port:           defaultPort,
		maxConcurrency: defaultMaxConcurrency,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.stations) == 0 {
		return nil, errors.New("at least one station is required")
	}

	seen := make(map[string]bool, len(cfg.stations))
	for _, st := range cfg.stations {
		if seen[st.name] {
			return nil, fmt.Errorf("duplicate station name: %q", st.name)
		}
		seen[st.name] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		title:           cfg.title,
		stations:        cfg.stations,
		port:            cfg.port,
		maxConcurrency:  cfg.maxConcurrency,
		logger:          logger,
		clock:           cfg.clock,
		updateCallbacks: cfg.updateCallbacks,
		store:           store.NewMemoryStore(),
		metrics:         metrics.New(),
	}

	for _, st := range m.stations {
		m.store.Update(store.StationStatus{
			Name:            st.name,
			URL:             st.url,
			Title:           st.name,
			State:           StatePending,
			Labels:          copyMap(st.labels),
			IntervalSeconds: st.initialInterval.Seconds(),
		})
	}

	return m, nil
}

// Start begins polling stations and serving the dashboard.
//
// Start blocks until ctx is cancelled. Every station is polled immediately,
// then again whenever its cadence elapses. The HTTP server listens on the
// configured port.
//
// Returns nil on graceful shutdown, [ErrAlreadyStarted] if the monitor was
// started before, or an error if the HTTP server fails to start.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	m.logger.Info("meshweather starting", "station_count", len(m.stations))
	m.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", m.port))

	if ctx.Err() != nil {
		return nil
	}

	opts := []poller.Option{poller.WithRecorder(m.metrics)}
	if m.clock != nil {
		opts = append(opts, poller.WithClock(m.clock))
	}
	scheduler := poller.NewScheduler(m.pollerStations(), m.maxConcurrency, m.logger, opts...)
	scheduler.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range scheduler.Results() {
			m.handleResult(result)
		}
	}()

	cleanup := func() {
		scheduler.Stop() // closes results
		wg.Wait()
	}

	httpServer := server.NewServer(m.store, m.port, dashboard.Assets, m.title, m.metrics.Handler(), m.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	m.logger.Info("meshweather stopped")
	return nil
}

// handleResult publishes one poll result: store first, then callbacks, then logs.
func (m *Monitor) handleResult(result poller.Result) {
	prev, _ := m.store.Get(result.Station)
	status := toStationStatus(result, prev)
	m.store.Update(status)

	if len(m.updateCallbacks) > 0 {
		update := toStationUpdate(result, status)
		for _, cb := range m.updateCallbacks {
			// each callback gets its own copy
			u := update
			u.Labels = copyMap(update.Labels)
			u.Snapshot = update.Snapshot.Clone()
			invokeCallbackSafe(cb, u, m.logger)
		}
	}

	logAttrs := []any{
		"station", result.Station,
		"state", status.State,
		"latency_ms", result.Latency.Milliseconds(),
		"interval", result.Interval.String(),
	}
	if result.Err != nil {
		m.logger.Warn("poll failed", append(logAttrs, "error_kind", status.ErrorKind, "error", result.Err.Error())...)
	} else {
		m.logger.Debug("poll completed", logAttrs...)
	}
}

// Snapshot returns a copy of the latest snapshot of the named station.
// Returns false if the station is unknown or has not been polled
// successfully yet.
func (m *Monitor) Snapshot(name string) (*weather.Snapshot, bool) {
	status, ok := m.store.Get(name)
	if !ok || status.Snapshot == nil {
		return nil, false
	}
	return status.Snapshot.Clone(), true
}

// Status returns the published status of the named station.
// The embedded snapshot is shared; use [Monitor.Snapshot] for a private copy.
func (m *Monitor) Status(name string) (StationStatus, bool) {
	return m.store.Get(name)
}

// Statuses returns the published status of every station, sorted by name.
func (m *Monitor) Statuses() []StationStatus {
	return m.store.GetAll()
}

// Stations returns a copy of the configured stations.
func (m *Monitor) Stations() []Station {
	cp := make([]Station, len(m.stations))
	copy(cp, m.stations)
	return cp
}

// Port returns the configured HTTP port.
func (m *Monitor) Port() int {
	return m.port
}

// MetricsHandler returns the Prometheus handler for this monitor's metrics,
// for hosts that serve them on their own mux.
func (m *Monitor) MetricsHandler() http.Handler {
	return m.metrics.Handler()
}

func (m *Monitor) pollerStations() []poller.StationInfo {
	result := make([]poller.StationInfo, len(m.stations))
	for i, st := range m.stations {
		result[i] = st.pollerInfo()
	}
	return result
}

// toStationStatus folds a poll result into the station's previous status.
// A failure keeps the previous snapshot and marks it stale.
func toStationStatus(r poller.Result, prev store.StationStatus) store.StationStatus {
	status := prev
	status.Name = r.Station
	status.URL = r.URL
	status.Labels = copyMap(r.Labels)
	status.IntervalSeconds = r.Interval.Seconds()
	status.ResponseTimeMs = r.Latency.Milliseconds()
	status.CheckedAt = r.CheckedAt

	if r.Err == nil {
		status.State = StateOK
		status.Snapshot = r.Snapshot
		status.UpdatedAt = r.CheckedAt
		status.Error = nil
		status.ErrorKind = ""
	} else {
		msg := r.Err.Error()
		status.Error = &msg
		status.ErrorKind = ErrorCode(r.Err)
		if status.Snapshot != nil {
			status.State = StateStale
		} else {
			status.State = StatePending
		}
	}

	status.Title = r.Station
	status.Condition = ""
	status.AlertCount = 0
	if status.Snapshot != nil {
		status.Title = status.Snapshot.Title(r.Station)
		status.Condition = weather.ConditionOf(status.Snapshot.Current.ConditionCode)
		status.AlertCount = len(status.Snapshot.Alerts)
	}
	return status
}

func toStationUpdate(r poller.Result, status store.StationStatus) StationUpdate {
	return StationUpdate{
		Station:   r.Station,
		URL:       r.URL,
		Labels:    status.Labels,
		State:     status.State,
		Snapshot:  status.Snapshot,
		Err:       r.Err,
		Latency:   r.Latency,
		CheckedAt: r.CheckedAt,
		Interval:  r.Interval,
	}
}

// invokeCallbackSafe calls an update callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(StationUpdate), update StationUpdate, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("update callback panicked",
				"panic", r,
				"station", update.Station,
			)
		}
	}()
	cb(update)
}
