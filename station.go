package meshweather

import (
	"errors"
	"maps"
	"net/url"
	"time"

	"github.com/jpalmerr/meshweather/internal/poller"
)

// DefaultURL is the data URL of a mesh weather node reachable under its
// default mesh hostname.
const DefaultURL = "http://meshweather.local.mesh/?mode=data"

const (
	defaultStationTimeout = poller.DefaultTimeout

	// MinInterval is the shortest cadence a station is ever polled at.
	MinInterval = poller.MinInterval

	maxInitialInterval = 24 * time.Hour
)

// Cadence selects how a station's polling interval follows the interval
// reported by its node.
type Cadence = poller.Policy

const (
	// CadenceReported adopts the node's reported update interval.
	CadenceReported = poller.CadenceReported

	// CadenceAligned polls just after the node's next expected refresh.
	CadenceAligned = poller.CadenceAligned
)

// ParseCadence maps "reported" or "aligned" to a [Cadence].
// The empty string is [CadenceReported].
func ParseCadence(s string) (Cadence, error) {
	return poller.ParsePolicy(s)
}

// Station is a mesh weather node to poll.
//
// Station is immutable after creation via [NewStation]. Getters return
// copies of mutable data.
type Station struct {
	name            string
	url             string
	labels          map[string]string
	timeout         time.Duration
	initialInterval time.Duration
	cadence         Cadence
}

// Name returns the station's display name.
func (s Station) Name() string {
	return s.name
}

// URL returns the node's data URL.
func (s Station) URL() string {
	return s.url
}

// Labels returns a copy of the station's labels, or nil if none are set.
func (s Station) Labels() map[string]string {
	return copyMap(s.labels)
}

// Timeout returns the bound on a single fetch. Defaults to 10 seconds.
func (s Station) Timeout() time.Duration {
	return s.timeout
}

// InitialInterval returns the cadence used until the node reports one.
// Defaults to [MinInterval].
func (s Station) InitialInterval() time.Duration {
	return s.initialInterval
}

// Cadence returns the station's cadence policy.
func (s Station) Cadence() Cadence {
	return s.cadence
}

// NewStation creates a [Station] with the given name, URL, and options.
//
// An empty rawURL means [DefaultURL]. Otherwise the URL must be absolute
// with an http or https scheme.
//
// Example:
//
//	st, err := meshweather.NewStation("Home", "",
//	    meshweather.WithLabels("site", "roof"),
//	    meshweather.WithCadence(meshweather.CadenceAligned),
//	)
func NewStation(name, rawURL string, opts ...StationOption) (Station, error) {
	if name == "" {
		return Station{}, errors.New("station name cannot be empty")
	}
	if rawURL == "" {
		rawURL = DefaultURL
	}
	if err := validateURL(rawURL); err != nil {
		return Station{}, err
	}

	cfg := &stationConfig{
		labels:          make(map[string]string),
		timeout:         defaultStationTimeout,
		initialInterval: poller.DefaultInterval,
		cadence:         CadenceReported,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Station{}, err
		}
	}

	return Station{
		name:            name,
		url:             rawURL,
		labels:          cfg.labels,
		timeout:         cfg.timeout,
		initialInterval: cfg.initialInterval,
		cadence:         cfg.cadence,
	}, nil
}

func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL: " + err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("URL must have a scheme (http:// or https://)")
	}
	if parsed.Host == "" {
		return errors.New("URL must have a host")
	}
	return nil
}

func (s Station) pollerInfo() poller.StationInfo {
	return poller.StationInfo{
		Name:            s.name,
		URL:             s.url,
		Labels:          copyMap(s.labels),
		Timeout:         s.timeout,
		InitialInterval: s.initialInterval,
		Policy:          s.cadence,
	}
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
