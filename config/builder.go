package config

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/jpalmerr/meshweather"
)

// BuildStations converts parsed configuration into SDK stations.
//
// Direct stations come first in file order, followed by each grid's
// expansion.
func BuildStations(cfg *Config) ([]meshweather.Station, error) {
	var stations []meshweather.Station

	for _, sc := range cfg.Stations {
		st, err := buildStation(sc)
		if err != nil {
			return nil, fmt.Errorf("station (%s): %w", sc.Name, err)
		}
		stations = append(stations, st)
	}

	for _, gc := range cfg.Grids {
		gridStations, err := buildGridStations(gc)
		if err != nil {
			return nil, fmt.Errorf("grid (%s): %w", gc.Name, err)
		}
		stations = append(stations, gridStations...)
	}

	return stations, nil
}

// BuildOptions converts parsed configuration into [meshweather.New] options.
func BuildOptions(cfg *Config, logger *slog.Logger) ([]meshweather.Option, error) {
	stations, err := BuildStations(cfg)
	if err != nil {
		return nil, err
	}

	opts := []meshweather.Option{
		meshweather.WithStations(stations...),
		meshweather.WithPort(cfg.Port),
		meshweather.WithMaxConcurrency(cfg.MaxConcurrency),
	}
	if cfg.Title != "" {
		opts = append(opts, meshweather.WithTitle(cfg.Title))
	}
	if logger != nil {
		opts = append(opts, meshweather.WithLogger(logger))
	}
	return opts, nil
}

func buildStation(sc StationConfig) (meshweather.Station, error) {
	cadence, err := meshweather.ParseCadence(sc.Cadence)
	if err != nil {
		return meshweather.Station{}, err
	}

	opts := []meshweather.StationOption{meshweather.WithCadence(cadence)}
	if sc.Timeout != 0 {
		opts = append(opts, meshweather.WithTimeout(sc.Timeout.Duration()))
	}
	if sc.InitialInterval != 0 {
		opts = append(opts, meshweather.WithInitialInterval(sc.InitialInterval.Duration()))
	}
	if len(sc.Labels) > 0 {
		opts = append(opts, meshweather.WithLabels(mapToKeyValuePairs(sc.Labels)...))
	}

	return meshweather.NewStation(sc.Name, sc.URL, opts...)
}

func buildGridStations(gc GridConfig) ([]meshweather.Station, error) {
	cadence, err := meshweather.ParseCadence(gc.Cadence)
	if err != nil {
		return nil, err
	}

	opts := []meshweather.GridOption{
		meshweather.WithURLTemplate(gc.URLTemplate),
		meshweather.WithDimensions(gc.Dimensions),
		meshweather.WithGridTimeout(gc.Timeout.Duration()),
		meshweather.WithGridInitialInterval(gc.InitialInterval.Duration()),
		meshweather.WithGridCadence(cadence),
	}
	if len(gc.Labels) > 0 {
		opts = append(opts, meshweather.WithGridLabels(mapToKeyValuePairs(gc.Labels)...))
	}

	return meshweather.NewStationGrid(gc.Name, opts...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
