package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rendis/spottet/internal/config"
	"github.com/rendis/spottet/internal/engine/discovery"
	"github.com/rendis/spottet/internal/engine/geo"
	"github.com/rendis/spottet/internal/engine/markers"
	"github.com/rendis/spottet/internal/engine/places"
	"github.com/rendis/spottet/internal/engine/storage"
	"github.com/rendis/spottet/internal/model"
	"github.com/rendis/spottet/internal/tui"
	"github.com/rendis/spottet/internal/tui/components"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[0] != "" {
		switch os.Args[1] {
		case "search":
			if err := runSearch(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "export":
			if err := runExport(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Println("spottet " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	// No subcommand → launch TUI
	if err := runTUI(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `spottet - find drinking fountains near you

Usage:
  spottet                 Launch interactive TUI
  spottet search [flags]  Locate, search and print nearby fountains
  spottet export [flags]  Export stored fountains to CSV or GeoJSON
  spottet version         Show version

Configuration is read from .env and SPOTTET_* environment variables.
Run 'spottet search --help' or 'spottet export --help' for flags.
`)
}

func runTUI() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logPath := filepath.Join(config.Dir(), "spottet.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logFile.Close()
	logger := log.New(logFile, "", log.LstdFlags)
	logger.Printf("=== Session start: version=%s db=%s ===", version, cfg.DBPath)

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	layer := components.NewMarkerLayer()
	locator := newLocator(cfg)
	orch, client, err := newOrchestrator(ctx, cfg, store, layer, locator, logger)
	if err != nil {
		return err
	}
	logger.Printf("SEARCH using provider=%s", client.ProviderName())

	watcher := discovery.NewWatcher(orch, locator, cfg.RefreshInterval, logger)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	return tui.Run(ctx, orch, layer, store, logger)
}

// newLocator picks the position source: fixed coordinates, a geocoded
// place name, or none (which falls back to central Stockholm).
func newLocator(cfg *config.AppConfig) discovery.Locator {
	switch {
	case cfg.Location != nil:
		return discovery.StaticLocator{Position: *cfg.Location}
	case cfg.Place != "":
		return discovery.GeocodeLocator{Geocoder: geo.NewGeocoder(), Place: cfg.Place}
	}
	return discovery.UnavailableLocator{}
}

// newOrchestrator wires the search client, store and layer together. The
// stored fountain set is used when present, the bundled seed list otherwise.
func newOrchestrator(ctx context.Context, cfg *config.AppConfig, store *storage.Store, layer markers.Layer, locator discovery.Locator, logger *log.Logger) (*discovery.Orchestrator, *places.Client, error) {
	initial, err := store.LoadFountains(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading fountains: %w", err)
	}
	if len(initial) == 0 {
		if initial, err = model.SeedFountains(); err != nil {
			return nil, nil, err
		}
		logger.Printf("SEED fountains=%d", len(initial))
	}

	client := places.NewClient(places.Config{
		Provider:             cfg.Provider,
		APIKey:               cfg.APIKey,
		Language:             cfg.Language,
		Region:               cfg.Region,
		ResultCap:            cfg.ResultCap,
		TextBiasRadiusMeters: cfg.TextBiasRadiusMeters,
		ProxyURL:             cfg.ProxyURL,
		RequestsPerSecond:    cfg.RequestsPerSecond,
	}, logger)
	if err := client.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initializing search client: %w", err)
	}

	orch, err := discovery.New(discovery.Options{
		Fountains:          initial,
		Searcher:           client,
		Locator:            locator,
		Layer:              layer,
		Store:              store,
		Logger:             logger,
		NearbyRadiusMeters: cfg.NearbyRadiusMeters,
		LocateTimeout:      cfg.LocateTimeout,
		ErrorDisplay:       cfg.ErrorDisplay,
		RefreshDistanceKm:  cfg.RefreshDistanceKm,
	})
	return orch, client, err
}
