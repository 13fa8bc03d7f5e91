package meshweather

import (
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"
)

// monitorConfig holds mutable state during Monitor construction.
type monitorConfig struct {
	title           string
	stations        []Station
	port            int
	maxConcurrency  int
	logger          *slog.Logger
	clock           clockwork.Clock
	updateCallbacks []func(StationUpdate)
}

// Option configures a [Monitor] during construction.
//
// Option implements the functional options pattern for [New]. Options
// return an error if validation fails.
type Option func(*monitorConfig) error

// WithStation adds a single [Station] to the monitor. Can be called
// multiple times. At least one station is required.
//
// Example:
//
//	home, _ := meshweather.NewStation("Home", "")
//	m, err := meshweather.New(meshweather.WithStation(home))
func WithStation(s Station) Option {
	return func(cfg *monitorConfig) error {
		cfg.stations = append(cfg.stations, s)
		return nil
	}
}

// WithStations adds several stations, typically the output of [NewStationGrid].
//
// Example:
//
//	relays, err := meshweather.NewStationGrid("Relay", ...)
//	m, err := meshweather.New(meshweather.WithStations(relays...))
func WithStations(stations ...Station) Option {
	return func(cfg *monitorConfig) error {
		cfg.stations = append(cfg.stations, stations...)
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard and API. Defaults to 8080.
//
// Returns an error if the port is not between 1 and 65535.
func WithPort(port int) Option {
	return func(cfg *monitorConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMaxConcurrency limits how many stations are fetched at once.
// Defaults to 4.
//
// Returns an error if n is zero or negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *monitorConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithLogger sets the logger for poll results, cadence changes and server
// events. Defaults to slog.Default().
//
// Returns an error if logger is nil.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	m, err := meshweather.New(
//	    meshweather.WithStation(home),
//	    meshweather.WithLogger(logger),
//	)
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *monitorConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithUpdateCallback registers a function called after every poll, once
// the station's status has been stored.
//
// Callbacks run synchronously on the result-processing goroutine in
// registration order; a slow callback delays processing of other stations.
// A panicking callback is recovered and logged. The update carries its own
// copy of the snapshot, so callbacks may keep or modify it.
//
// A nil callback is ignored.
//
// Example:
//
//	m, err := meshweather.New(
//	    meshweather.WithStation(home),
//	    meshweather.WithUpdateCallback(func(u meshweather.StationUpdate) {
//	        if u.Err == nil {
//	            log.Printf("%s: %v", u.Station, *u.Snapshot.Current.Temperature)
//	        }
//	    }),
//	)
func WithUpdateCallback(cb func(StationUpdate)) Option {
	return func(cfg *monitorConfig) error {
		if cb != nil {
			cfg.updateCallbacks = append(cfg.updateCallbacks, cb)
		}
		return nil
	}
}

// WithTitle sets the dashboard title. Defaults to "Mesh Weather".
// The title is HTML-escaped before rendering.
func WithTitle(title string) Option {
	return func(cfg *monitorConfig) error {
		cfg.title = title
		return nil
	}
}

// WithClock sets the clock used for cadence timers and aligned cadence
// arithmetic. Defaults to the real clock.
func WithClock(clock clockwork.Clock) Option {
	return func(cfg *monitorConfig) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = clock
		return nil
	}
}
