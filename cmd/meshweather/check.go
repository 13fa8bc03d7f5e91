package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/meshweather"
	"github.com/jpalmerr/meshweather/config"
	"github.com/jpalmerr/meshweather/weather"
)

var checkCmd = &cobra.Command{
	Use:   "check [url]",
	Short: "Fetch and parse node documents once",
	Long: `Fetch one document from a node and report whether it can be used.

With a URL argument, that node is checked. With --config, every configured
station is checked. With neither, the default node URL is checked.

Failures are reported with one of these codes:
  cannot_connect - the node was unreachable, timed out or answered non-2xx
  invalid_data   - the node answered with a document that could not be parsed
  unknown        - anything else

Example:
  meshweather check
  meshweather check http://kc0abc-wx.local.mesh/?mode=data
  meshweather check -c meshweather.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("config", "c", "", "check every station in this config file")
	checkCmd.Flags().Duration("timeout", 10*time.Second, "fetch timeout for a URL argument")
	checkCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	logger, err := newLogger(cmd.ErrOrStderr(), level)
	if err != nil {
		return err
	}

	var stations []meshweather.Station
	configFile, _ := cmd.Flags().GetString("config")
	switch {
	case configFile != "" && len(args) > 0:
		return errors.New("pass either a URL or --config, not both")

	case configFile != "":
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		stations, err = config.BuildStations(cfg)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

	default:
		rawURL := ""
		if len(args) > 0 {
			rawURL = args[0]
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")
		st, err := meshweather.NewStation("node", rawURL, meshweather.WithTimeout(timeout))
		if err != nil {
			return err
		}
		stations = []meshweather.Station{st}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, st := range stations {
		snap, err := meshweather.CheckStation(ctx, st, logger)
		if err != nil {
			failed++
			if se, ok := meshweather.AsSetupError(err); ok {
				fmt.Fprintf(out, "FAIL %s: %v\n", st.Name(), se)
			} else {
				fmt.Fprintf(out, "FAIL %s: %s: %s: %v\n", st.Name(), meshweather.CodeUnknown, st.URL(), err)
			}
			continue
		}
		printSnapshot(out, st, snap)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d stations failed", failed, len(stations))
	}
	return nil
}

func printSnapshot(w io.Writer, st meshweather.Station, snap *weather.Snapshot) {
	fmt.Fprintf(w, "OK   %s (%s)\n", st.Name(), st.URL())
	fmt.Fprintf(w, "  Node:        %s\n", snap.Title("-"))
	fmt.Fprintf(w, "  Observed:    %s\n", snap.UpdateTime.Format(time.RFC3339))
	fmt.Fprintf(w, "  Interval:    %s\n", snap.UpdateInterval)
	if snap.Current.Temperature != nil {
		fmt.Fprintf(w, "  Temperature: %.1f°%s\n", *snap.Current.Temperature, snap.TemperatureScale())
	}
	if c := weather.ConditionOf(snap.Current.ConditionCode); c != "" {
		fmt.Fprintf(w, "  Condition:   %s\n", c)
	}
	fmt.Fprintf(w, "  Forecast:    %d daily, %d hourly\n", len(snap.Daily), len(snap.Hourly))
	if snap.AirQuality.AQI != nil {
		fmt.Fprintf(w, "  AQI:         %d\n", *snap.AirQuality.AQI)
	}
	fmt.Fprintf(w, "  Alerts:      %d\n", len(snap.Alerts))
	for _, a := range snap.Alerts {
		if h := a.Headline(); h != "" {
			fmt.Fprintf(w, "    - %s\n", h)
		}
	}
}
