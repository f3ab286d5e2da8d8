package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rendis/spottet/internal/config"
	"github.com/rendis/spottet/internal/engine/discovery"
	"github.com/rendis/spottet/internal/engine/fountains"
	"github.com/rendis/spottet/internal/engine/markers"
	"github.com/rendis/spottet/internal/engine/storage"
	"github.com/rendis/spottet/internal/model"
)

func runSearch(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var lat, lng float64
	var query, logPath string
	var favoritesOnly bool

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	fs.Float64Var(&lat, "lat", 0, "Your latitude (default: SPOTTET_LAT)")
	fs.Float64Var(&lng, "lng", 0, "Your longitude (default: SPOTTET_LNG)")
	fs.StringVar(&cfg.Place, "place", cfg.Place, "Place name to geocode as your position")
	fs.StringVar(&query, "query", "", "Also run a text search, e.g. \"Vasaparken\"")
	fs.Float64Var(&cfg.NearbyRadiusMeters, "radius", cfg.NearbyRadiusMeters, "Nearby search radius in meters")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the fountain database")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "Search provider: places, legacy or maps")
	fs.StringVar(&logPath, "log", "", "Log file (default: stderr)")
	fs.BoolVar(&favoritesOnly, "favorites", false, "Only print favorites")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: spottet search [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  spottet search -lat 59.3293 -lng 18.0686\n")
		fmt.Fprintf(os.Stderr, "  spottet search -place Södermalm -query \"Tantolunden\"\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if lat != 0 || lng != 0 {
		c := model.Coordinate{Latitude: lat, Longitude: lng}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg.Location = &c
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log: %w", err)
		}
		defer logFile.Close()
		logger = log.New(logFile, "", log.LstdFlags)
		fmt.Fprintf(os.Stderr, "Log: %s\n", logPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	startTime := time.Now()
	orch, client, err := newOrchestrator(ctx, cfg, store, markers.NewMemoryLayer(), newLocator(cfg), logger)
	if err != nil {
		return err
	}

	if err := orch.Start(ctx); err != nil {
		return err
	}
	if query != "" {
		if err := store.RecordSearch(ctx, query); err != nil {
			logger.Printf("ERROR recording search query=%q err=%v", query, err)
		}
		if _, err := orch.SearchText(ctx, query); err != nil {
			fmt.Fprintf(os.Stderr, "Text search failed: %v\n", err)
		}
	}

	snap := orch.Snapshot()
	set := snap.Fountains
	if favoritesOnly {
		set = fountains.Favorites(set)
	}
	set = fountains.SortedByDistance(set)

	for _, f := range set {
		fav := " "
		if f.IsFavorite {
			fav = "★"
		}
		status := "working"
		if !f.IsWorking {
			status = "broken"
		}
		fmt.Printf("%s %5.1f km  %-7s  %-30s  %s\n", fav, f.DistanceKm, status, f.Name, f.Address)
	}

	stats := orch.Stats()
	total, _ := store.Count()
	position := snap.Reference.String()
	if snap.UsingFallback {
		position += " (fallback)"
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  spottet search complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Provider:   %s\n", client.ProviderName())
	fmt.Fprintf(os.Stderr, "  Position:   %s\n", position)
	if query != "" {
		fmt.Fprintf(os.Stderr, "  Query:      %s\n", query)
	}
	fmt.Fprintf(os.Stderr, "  State:      %s\n", snap.State)
	if snap.Status.Message != "" {
		fmt.Fprintf(os.Stderr, "  Note:       %s\n", snap.Status.Message)
	}
	fmt.Fprintf(os.Stderr, "  Searches:   %d (%d failed)\n", stats.SearchesIssued.Load(), stats.SearchesFailed.Load())
	fmt.Fprintf(os.Stderr, "  Candidates: %d\n", stats.CandidatesSeen.Load())
	fmt.Fprintf(os.Stderr, "  Fountains:  %d\n", total)
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", time.Since(startTime).Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  Database:   %s\n", cfg.DBPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	if snap.State == discovery.StateError {
		return fmt.Errorf("nearby search failed, showing stored fountains only")
	}
	return nil
}
