package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/rendis/spottet/internal/config"
	"github.com/rendis/spottet/internal/engine/fountains"
	"github.com/rendis/spottet/internal/engine/geo"
	"github.com/rendis/spottet/internal/engine/storage"
	"github.com/rendis/spottet/internal/model"
)

func runExport(args []string) error {
	var dbPath, outputPath, format string
	var favoritesOnly bool

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to the fountain database (default: SPOTTET_DB)")
	fs.StringVar(&outputPath, "output", "", "Output file path (default: next to the db)")
	fs.StringVar(&format, "format", "csv", "Export format: csv or geojson")
	fs.BoolVar(&favoritesOnly, "favorites", false, "Only export favorites")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: spottet export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  spottet export -format geojson -output fountains.geojson\n")
		fmt.Fprintf(os.Stderr, "  spottet export -db fountains.db -favorites\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dbPath = cfg.DBPath
	}

	var ext string
	switch format {
	case "csv":
		ext = ".csv"
	case "geojson":
		ext = ".geojson"
	default:
		return fmt.Errorf("unsupported format: %s (csv or geojson)", format)
	}

	if outputPath == "" {
		dir := filepath.Dir(dbPath)
		base := strings.TrimSuffix(filepath.Base(dbPath), ".db")
		outputPath = filepath.Join(dir, base+ext)
	}

	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("database %s: %w", dbPath, err)
	}
	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	set, err := store.LoadFountains(context.Background())
	if err != nil {
		return fmt.Errorf("loading db: %w", err)
	}
	if favoritesOnly {
		set = fountains.Favorites(set)
	}
	if len(set) == 0 {
		return fmt.Errorf("no fountains found in database")
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	if format == "geojson" {
		data, err := featureCollection(set).MarshalJSON()
		if err != nil {
			return fmt.Errorf("encoding geojson: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	} else if err := writeCSV(f, set); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Exported %d fountains to %s\n", len(set), outputPath)
	return nil
}

func writeCSV(f *os.File, set []model.Fountain) error {
	w := csv.NewWriter(f)
	w.Write([]string{
		"id", "name", "address", "lat", "lng", "distance_km", "rating",
		"is_working", "is_favorite", "has_photo", "hours", "is_open",
		"directions_url",
	})
	for _, ft := range set {
		w.Write([]string{
			ft.ID,
			ft.Name,
			ft.Address,
			fmt.Sprintf("%.6f", ft.Location.Latitude),
			fmt.Sprintf("%.6f", ft.Location.Longitude),
			fmt.Sprintf("%.1f", ft.DistanceKm),
			fmt.Sprintf("%.1f", ft.Rating),
			strconv.FormatBool(ft.IsWorking),
			strconv.FormatBool(ft.IsFavorite),
			strconv.FormatBool(ft.HasPhoto),
			ft.Hours,
			strconv.FormatBool(ft.IsOpen),
			fountains.DirectionsURL(ft),
		})
	}
	w.Flush()
	return w.Error()
}

func featureCollection(set []model.Fountain) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, ft := range set {
		feat := geojson.NewFeature(geo.Point(ft.Location))
		feat.ID = ft.ID
		feat.Properties["name"] = ft.Name
		feat.Properties["address"] = ft.Address
		feat.Properties["rating"] = ft.Rating
		feat.Properties["is_working"] = ft.IsWorking
		feat.Properties["is_favorite"] = ft.IsFavorite
		feat.Properties["has_photo"] = ft.HasPhoto
		feat.Properties["hours"] = ft.Hours
		if ft.SourcePlaceID != "" {
			feat.Properties["place_id"] = ft.SourcePlaceID
		}
		fc.Append(feat)
	}
	return fc
}
