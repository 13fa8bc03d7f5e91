package meshweather

import (
	"errors"
	"fmt"
	"time"
)

// stationConfig holds mutable state during station construction.
type stationConfig struct {
	labels          map[string]string
	timeout         time.Duration
	initialInterval time.Duration
	cadence         Cadence
}

// StationOption configures a [Station] during construction.
// Options return an error if validation fails.
type StationOption func(*stationConfig) error

// WithLabels adds metadata labels to the station for grouping in the
// dashboard and API.
//
// Accepts variadic key-value pairs. Returns an error if an odd number of
// arguments is provided.
//
// Example:
//
//	st, err := meshweather.NewStation("Barn", url,
//	    meshweather.WithLabels("site", "farm", "mount", "mast"),
//	)
func WithLabels(keyValues ...string) StationOption {
	return func(cfg *stationConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithLabels requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.labels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout bounds a single fetch from this station. A fetch that does
// not complete in time fails as a connection error. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) StationOption {
	return func(cfg *stationConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithInitialInterval sets the cadence used until the node reports its own
// update interval, and kept for as long as it never does.
//
// Returns an error if d is below [MinInterval] or above 24 hours.
func WithInitialInterval(d time.Duration) StationOption {
	return func(cfg *stationConfig) error {
		if d < MinInterval {
			return fmt.Errorf("initial interval must be at least %s", MinInterval)
		}
		if d > maxInitialInterval {
			return fmt.Errorf("initial interval must not exceed %s", maxInitialInterval)
		}
		cfg.initialInterval = d
		return nil
	}
}

// WithCadence selects the station's cadence policy. Defaults to [CadenceReported].
func WithCadence(c Cadence) StationOption {
	return func(cfg *stationConfig) error {
		switch c {
		case CadenceReported, CadenceAligned:
			cfg.cadence = c
			return nil
		default:
			return fmt.Errorf("unknown cadence %v", c)
		}
	}
}
