package meshweather

import (
	"errors"
	"fmt"
	"time"
)

// gridConfig holds configuration during station grid construction.
type gridConfig struct {
	urlTemplate     string
	dimensions      map[string][]string
	staticLabels    map[string]string
	timeout         time.Duration
	initialInterval time.Duration
	cadence         Cadence
}

// GridOption configures station grid generation for [NewStationGrid].
type GridOption func(*gridConfig) error

// WithURLTemplate sets the node URL template. Dimension keys are the
// template variables.
//
// Example:
//
//	WithURLTemplate("http://{{.node}}.local.mesh/?mode=data")
//
// Returns an error if the template string is empty.
func WithURLTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if tmpl == "" {
			return errors.New("URL template required")
		}
		cfg.urlTemplate = tmpl
		return nil
	}
}

// WithDimensions sets the values expanded by cartesian product.
//
// Returns an error if the map is empty, any dimension has no values, or any
// value is an empty string.
func WithDimensions(dims map[string][]string) GridOption {
	return func(cfg *gridConfig) error {
		if len(dims) == 0 {
			return errors.New("at least one dimension required")
		}
		for k, vals := range dims {
			if len(vals) == 0 {
				return fmt.Errorf("dimension '%s' has no values", k)
			}
			for i, v := range vals {
				if v == "" {
					return fmt.Errorf("dimension '%s' contains empty value at index %d", k, i)
				}
			}
		}
		cfg.dimensions = dims
		return nil
	}
}

// WithGridLabels adds static labels to every generated station.
// Static labels take precedence over dimension labels.
func WithGridLabels(keyValues ...string) GridOption {
	return func(cfg *gridConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithGridLabels requires an even number of arguments (key-value pairs)")
		}
		if cfg.staticLabels == nil {
			cfg.staticLabels = make(map[string]string)
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.staticLabels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithGridTimeout sets the fetch timeout of every generated station.
// Zero keeps the station default.
func WithGridTimeout(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		if d < 0 {
			return errors.New("timeout cannot be negative")
		}
		cfg.timeout = d
		return nil
	}
}

// WithGridInitialInterval sets the bootstrap cadence of every generated
// station. Zero keeps the station default.
func WithGridInitialInterval(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		if d < 0 {
			return errors.New("initial interval cannot be negative")
		}
		if d != 0 && d < MinInterval {
			return fmt.Errorf("initial interval must be at least %s", MinInterval)
		}
		if d > maxInitialInterval {
			return fmt.Errorf("initial interval must not exceed %s", maxInitialInterval)
		}
		cfg.initialInterval = d
		return nil
	}
}

// WithGridCadence sets the cadence policy of every generated station.
func WithGridCadence(c Cadence) GridOption {
	return func(cfg *gridConfig) error {
		switch c {
		case CadenceReported, CadenceAligned:
			cfg.cadence = c
			return nil
		default:
			return fmt.Errorf("unknown cadence %v", c)
		}
	}
}
