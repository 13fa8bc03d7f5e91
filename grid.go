package meshweather

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"text/template"
)

// NewStationGrid creates one station per combination of dimension values,
// rendering each node URL from a template.
//
// Mesh nodes are usually addressed by hostname, so a grid is the natural way
// to poll a handful of relays that share a URL shape. The URL template uses
// text/template syntax; dimension values are URL-encoded before
// interpolation and a missing key is an error.
//
// Each station is named "Base Name (val1/val2)", with values ordered by
// dimension key. Dimension values become labels; labels from
// [WithGridLabels] win on collision.
//
// Example:
//
//	stations, err := meshweather.NewStationGrid("Relay",
//	    meshweather.WithURLTemplate("http://{{.node}}.local.mesh/?mode=data"),
//	    meshweather.WithDimensions(map[string][]string{
//	        "node": {"kc0abc-wx", "kc0xyz-wx"},
//	    }),
//	)
func NewStationGrid(baseName string, opts ...GridOption) ([]Station, error) {
	if strings.TrimSpace(baseName) == "" {
		return nil, errors.New("base name cannot be empty")
	}

	cfg := &gridConfig{
		staticLabels: make(map[string]string),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.urlTemplate == "" {
		return nil, errors.New("URL template required")
	}
	if len(cfg.dimensions) == 0 {
		return nil, errors.New("at least one dimension required")
	}

	tmpl, err := template.New("url").Option("missingkey=error").Parse(cfg.urlTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid URL template: %w", err)
	}

	combinations := cartesianProduct(cfg.dimensions)
	if len(combinations) == 0 {
		return nil, nil
	}

	stations := make([]Station, 0, len(combinations))
	for _, combo := range combinations {
		urlStr, err := executeTemplate(tmpl, urlEncodeMap(combo))
		if err != nil {
			return nil, fmt.Errorf("template execution failed: %w", err)
		}

		name := formatStationName(baseName, combo)

		// dimension labels first, static labels override
		labels := mergeMaps(combo, cfg.staticLabels)

		stOpts := []StationOption{
			WithLabels(flattenMap(labels)...),
			WithCadence(cfg.cadence),
		}
		if cfg.timeout > 0 {
			stOpts = append(stOpts, WithTimeout(cfg.timeout))
		}
		if cfg.initialInterval > 0 {
			stOpts = append(stOpts, WithInitialInterval(cfg.initialInterval))
		}

		st, err := NewStation(name, urlStr, stOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create station '%s': %w", name, err)
		}
		stations = append(stations, st)
	}

	return stations, nil
}

// cartesianProduct generates all combinations of dimension values.
// Keys are iterated in sorted order; values keep their slice order.
//
// Example:
//
//	Input:  {"x": ["a","b"], "y": ["1","2"]}
//	Output: [{"x":"a","y":"1"}, {"x":"a","y":"2"}, {"x":"b","y":"1"}, {"x":"b","y":"2"}]
func cartesianProduct(dims map[string][]string) []map[string]string {
	if len(dims) == 0 {
		return nil
	}

	keys := sortedKeys(dims)
	total := 1
	for _, k := range keys {
		if len(dims[k]) == 0 {
			return nil
		}
		total *= len(dims[k])
	}

	result := make([]map[string]string, 0, total)
	indices := make([]int, len(keys))
	for {
		combo := make(map[string]string, len(keys))
		for i, k := range keys {
			combo[k] = dims[k][indices[i]]
		}
		result = append(result, combo)

		// advance like an odometer, rightmost key fastest
		for i := len(keys) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(dims[keys[i]]) {
				break
			}
			indices[i] = 0
			if i == 0 {
				return result
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// urlEncodeMap returns a new map with all values URL-encoded.
func urlEncodeMap(m map[string]string) map[string]string {
	result := make(map[string]string, len(m))
	for k, v := range m {
		result[k] = url.QueryEscape(v)
	}
	return result
}

func executeTemplate(tmpl *template.Template, data map[string]string) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatStationName creates a name in the format "Base (v1/v2)".
func formatStationName(baseName string, combo map[string]string) string {
	keys := sortedKeys(combo)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = combo[k]
	}
	return fmt.Sprintf("%s (%s)", baseName, strings.Join(parts, "/"))
}

// mergeMaps merges maps left to right; later maps win.
func mergeMaps(ms ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range ms {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// flattenMap converts a map to sorted key-value pairs for variadic options.
func flattenMap(m map[string]string) []string {
	result := make([]string, 0, len(m)*2)
	for _, k := range sortedKeys(m) {
		result = append(result, k, m[k])
	}
	return result
}
