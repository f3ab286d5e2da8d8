package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/rendis/spottet/internal/model"
)

func TestFeatureCollection(t *testing.T) {
	seeds, err := model.SeedFountains()
	if err != nil {
		t.Fatal(err)
	}
	fc := featureCollection(seeds)
	if len(fc.Features) != 3 {
		t.Fatalf("features = %d", len(fc.Features))
	}
	first := fc.Features[0]
	p, ok := first.Geometry.(orb.Point)
	if !ok || p.Lat() != 59.3326 || p.Lon() != 18.0649 {
		t.Errorf("geometry = %v", first.Geometry)
	}
	if first.ID != "1" || first.Properties.MustString("name") != "Sergels Torg Fontän" {
		t.Errorf("feature = %+v", first)
	}
	if fav, _ := first.Properties["is_favorite"].(bool); !fav {
		t.Error("favorite flag not exported")
	}
}

func TestWriteCSV(t *testing.T) {
	seeds, err := model.SeedFountains()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := writeCSV(f, seeds); err != nil {
		t.Fatal(err)
	}
	f.Close()

	in, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	records, err := csv.NewReader(in).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(records))
	}
	if records[3][1] != "Gamla Stan Fontän" || records[3][7] != "false" {
		t.Errorf("row = %v", records[3])
	}
}
