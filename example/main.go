package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/meshweather"
)

func main() {
	// start mock nodes (see mock_server.go)
	go StartMockNodes(":9999")
	time.Sleep(100 * time.Millisecond)

	// grid API: 3 relay nodes from one declaration
	stations, err := meshweather.NewStationGrid("Relay",
		meshweather.WithURLTemplate("http://localhost:9999/?node={{.node}}&mode=data"),
		meshweather.WithDimensions(map[string][]string{
			"node": {"ridge-wx", "valley-wx", "tower-wx"},
		}),
		meshweather.WithGridCadence(meshweather.CadenceAligned),
	)
	if err != nil {
		slog.Error("failed to create station grid", "error", err)
		os.Exit(1)
	}

	home, err := meshweather.NewStation("Home", "http://localhost:9999/?node=home-wx&mode=data",
		meshweather.WithLabels("site", "house"),
		meshweather.WithTimeout(5*time.Second),
	)
	if err != nil {
		slog.Error("failed to create station", "error", err)
		os.Exit(1)
	}
	stations = append(stations, home)

	m, err := meshweather.New(
		meshweather.WithStations(stations...),
		meshweather.WithTitle("Mock Mesh Weather"),
		meshweather.WithPort(8080),
		meshweather.WithUpdateCallback(func(u meshweather.StationUpdate) {
			if u.Err != nil || u.Snapshot == nil || u.Snapshot.Current.Temperature == nil {
				return
			}
			fmt.Printf("%-20s %5.1f°%s  next poll in %s\n",
				u.Station, *u.Snapshot.Current.Temperature, u.Snapshot.TemperatureScale(), u.Interval)
		}),
	)
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Mesh Weather Demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println("  Stations: 3 relays via grid, 1 direct")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Start(ctx); err != nil {
		slog.Error("monitor error", "error", err)
		os.Exit(1)
	}
}
