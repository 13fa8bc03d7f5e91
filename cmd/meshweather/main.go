// Package main is the entry point for the meshweather CLI.
//
// Usage:
//
//	meshweather serve -c config.yaml    # Poll stations and serve the dashboard
//	meshweather validate -c config.yaml # Validate configuration
//	meshweather check [url]             # Fetch and parse one node document
//	meshweather version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd only displays help; functionality lives in subcommands.
var rootCmd = &cobra.Command{
	Use:   "meshweather",
	Short: "Poll mesh network weather nodes",
	Long: `meshweather polls weather relay nodes on a local mesh network.

Each node serves current conditions, forecasts, air quality and alerts as
JSON. meshweather follows each node's own update interval and republishes
the data on a web dashboard, a JSON API, a Server-Sent Events stream and
Prometheus metrics.

Quick start:
  1. Create a config file (meshweather.yaml)
  2. Run: meshweather serve -c meshweather.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  stations:
    - name: Home
      url: http://meshweather.local.mesh/?mode=data`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this meshweather binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "meshweather %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
