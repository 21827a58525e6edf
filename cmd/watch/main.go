// Command watch follows selected lines against a running tracker
// server and prints the merged vehicle set with its derived motion.
// Useful for eyeballing the poll/merge behavior without a map client.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"busao-tracker/internal/tracker"
	"busao-tracker/internal/vehicle"
)

func main() {
	baseURL := flag.String("server", "http://localhost:8080", "tracker server base URL")
	linhas := flag.String("linhas", "", "comma-separated line numbers to follow")
	modo := flag.String("modo", "bus", "vehicle class: bus or brt")
	interval := flag.Duration("interval", 3*time.Second, "poll interval")
	flag.Parse()

	class := vehicle.Class(*modo)
	if !class.Valid() {
		log.Fatalf("invalid modo %q", *modo)
	}
	var selection []string
	for _, l := range strings.Split(*linhas, ",") {
		if l = strings.TrimSpace(l); l != "" {
			selection = append(selection, l)
		}
	}
	if len(selection) == 0 {
		log.Fatal("at least one line number is required (-linhas 384,399)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	session := tracker.NewSession(&tracker.Client{BaseURL: *baseURL}, class, *interval)
	session.SetLines(selection)
	go session.Run(ctx)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		views := session.Vehicles()
		fmt.Printf("\n%s  %d vehicles\n", time.Now().Format("15:04:05"), len(views))
		for _, v := range views {
			heading := "-"
			if v.HasHeading {
				heading = fmt.Sprintf("%.0f°", v.HeadingDeg)
			}
			fmt.Printf("  %-10s linha %-6s %9.5f,%10.5f  %5.1f km/h (avg %4.1f)  %6.0fm  %s  %s\n",
				v.ID, v.Linha, v.Latitude, v.Longitude, v.Speed, v.AvgSpeedKmh, v.DistanceM, heading, v.Direction)
		}
	}
}
