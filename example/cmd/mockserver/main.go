// Standalone mock mesh node for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/meshweather serve -c example/config.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jpalmerr/meshweather/example/mocknode"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	failRate := flag.Float64("fail-rate", 0.1, "fraction of requests answered with 503")
	flag.Parse()

	if *failRate < 0 || *failRate > 1 {
		fmt.Fprintln(os.Stderr, "fail-rate must be between 0 and 1")
		os.Exit(2)
	}

	fmt.Printf("Mock mesh node starting on %s\n", *addr)
	fmt.Println("Each ?node=NAME gets its own drifting weather, updated every 60s")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := http.ListenAndServe(*addr, mocknode.New(*failRate, logger)); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
