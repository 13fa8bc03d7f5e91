// Package config provides YAML configuration parsing for the meshweather
// command.
//
// Example configuration:
//
//	title: Mesh Weather
//	port: 8080
//	max_concurrency: 4
//
//	stations:
//	  - name: Home
//	    url: http://meshweather.local.mesh/?mode=data
//	    timeout: 10s
//	    initial_interval: 60s
//	    cadence: reported
//	    labels: {site: home}
//
//	grids:
//	  - name: Relay
//	    url_template: "http://{{.node}}.local.mesh/?mode=data"
//	    dimensions:
//	      node: [kc0abc-wx, kc0xyz-wx]
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/meshweather"
)

const (
	defaultPort           = 8080
	defaultMaxConcurrency = 4

	minTimeout         = time.Second
	maxInitialInterval = 24 * time.Hour
)

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Mesh Weather" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// MaxConcurrency limits simultaneous fetches across stations. Defaults to 4.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Stations defines individual nodes.
	Stations []StationConfig `yaml:"stations"`

	// Grids defines station grids that expand via cartesian product.
	Grids []GridConfig `yaml:"grids"`
}

// StationConfig defines a single mesh weather node.
type StationConfig struct {
	// Name is the display name shown in the dashboard.
	Name string `yaml:"name"`

	// URL is the node's data URL. Defaults to meshweather.DefaultURL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Timeout bounds a single fetch. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// InitialInterval is the cadence until the node reports one. Defaults to 60s.
	InitialInterval Duration `yaml:"initial_interval"`

	// Cadence is "reported" (default) or "aligned".
	Cadence string `yaml:"cadence"`

	// Labels are metadata key-value pairs for grouping.
	Labels map[string]string `yaml:"labels"`
}

// GridConfig defines a station grid that expands via cartesian product.
//
// For example, with dimensions {node: [wx1, wx2], site: [ridge, valley]},
// the grid expands to 4 stations.
type GridConfig struct {
	// Name is the base name for generated stations.
	Name string `yaml:"name"`

	// URLTemplate is a Go template for generating node URLs.
	// Dimension keys are available as template variables: {{.node}}
	// Supports environment variable substitution.
	URLTemplate string `yaml:"url_template"`

	// Dimensions maps dimension names to their possible values.
	Dimensions map[string][]string `yaml:"dimensions"`

	Timeout         Duration `yaml:"timeout"`
	InitialInterval Duration `yaml:"initial_interval"`
	Cadence         string   `yaml:"cadence"`

	// Labels are applied to all generated stations and win over dimension labels.
	Labels map[string]string `yaml:"labels"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part, present when a default was given
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URL and URLTemplate values.
// Defaults are applied for Port (8080), MaxConcurrency (4) and station URLs
// (meshweather.DefaultURL).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be positive, got %d", c.MaxConcurrency)
	}

	names := make(map[string]string)

	for i := range c.Stations {
		st := &c.Stations[i]
		where := fmt.Sprintf("stations[%d] (%s)", i, st.Name)

		if st.Name == "" {
			return fmt.Errorf("stations[%d]: name is required", i)
		}
		if prev, dup := names[st.Name]; dup {
			return fmt.Errorf("%s: duplicate name, already used by %s", where, prev)
		}
		names[st.Name] = fmt.Sprintf("stations[%d]", i)

		if st.URL == "" {
			st.URL = meshweather.DefaultURL
		}
		expanded, err := expandEnvVars(st.URL)
		if err != nil {
			return fmt.Errorf("%s: url: %w", where, err)
		}
		st.URL = expanded
		if err := validateURL(st.URL); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}

		if err := validateTiming(st.Timeout, st.InitialInterval, st.Cadence); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
	}

	for i := range c.Grids {
		g := &c.Grids[i]
		where := fmt.Sprintf("grids[%d] (%s)", i, g.Name)

		if g.Name == "" {
			return fmt.Errorf("grids[%d]: name is required", i)
		}

		if g.URLTemplate == "" {
			return fmt.Errorf("%s: url_template is required", where)
		}
		expanded, err := expandEnvVars(g.URLTemplate)
		if err != nil {
			return fmt.Errorf("%s: url_template: %w", where, err)
		}
		g.URLTemplate = expanded

		// fail fast before the SDK renders it
		if _, err := template.New("").Parse(g.URLTemplate); err != nil {
			return fmt.Errorf("%s: invalid url_template: %w", where, err)
		}

		if len(g.Dimensions) == 0 {
			return fmt.Errorf("%s: at least one dimension is required", where)
		}
		for dimName, dimValues := range g.Dimensions {
			if len(dimValues) == 0 {
				return fmt.Errorf("%s: dimension %q has no values", where, dimName)
			}
			seen := make(map[string]struct{}, len(dimValues))
			for _, v := range dimValues {
				if _, exists := seen[v]; exists {
					return fmt.Errorf("%s: dimension %q has duplicate value %q", where, dimName, v)
				}
				seen[v] = struct{}{}
			}
		}

		if err := validateTiming(g.Timeout, g.InitialInterval, g.Cadence); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
	}

	if len(c.Stations) == 0 && len(c.Grids) == 0 {
		return errors.New("at least one station or grid must be defined")
	}

	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme == "" {
		return errors.New("url must have a scheme (http:// or https://)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme)
	}
	return nil
}

// validateTiming checks the optional per-station timing fields. Zero means unset.
func validateTiming(timeout, initial Duration, cadence string) error {
	if timeout != 0 {
		if timeout.Duration() < minTimeout {
			return fmt.Errorf("timeout must be at least %s if specified, got %s", minTimeout, timeout.Duration())
		}
	}

	if initial != 0 {
		if initial.Duration() < meshweather.MinInterval {
			return fmt.Errorf("initial_interval must be at least %s, got %s", meshweather.MinInterval, initial.Duration())
		}
		if initial.Duration() > maxInitialInterval {
			return fmt.Errorf("initial_interval must not exceed %s, got %s", maxInitialInterval, initial.Duration())
		}
	}

	if _, err := meshweather.ParseCadence(cadence); err != nil {
		return err
	}
	return nil
}
