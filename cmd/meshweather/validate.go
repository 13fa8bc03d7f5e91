package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/meshweather/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a meshweather configuration file without starting the server.

This command parses the YAML, expands environment variables, validates all
fields and expands grids. It does not contact any node; use "check" for that.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  meshweather validate -c meshweather.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	stations, err := config.BuildStations(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]bool, len(stations))
	for _, st := range stations {
		if seen[st.Name()] {
			return fmt.Errorf("invalid config: duplicate station name %q", st.Name())
		}
		seen[st.Name()] = true
	}

	direct := len(cfg.Stations)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:            %d\n", cfg.Port)
	fmt.Fprintf(out, "  Max concurrency: %d\n", cfg.MaxConcurrency)
	fmt.Fprintf(out, "  Stations:        %d direct + %d from grids = %d total\n",
		direct, len(stations)-direct, len(stations))

	return nil
}
