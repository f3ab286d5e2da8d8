package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rendis/spottet/internal/model"
)

var stockholm = model.Coordinate{Latitude: 59.3293, Longitude: 18.0686}

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Coordinate
		want float64
	}{
		{"same point", stockholm, stockholm, 0},
		{"sergels torg", stockholm, model.Coordinate{Latitude: 59.3326, Longitude: 18.0649}, 0.4},
		{"one degree of latitude", model.Coordinate{}, model.Coordinate{Latitude: 1}, 111.2},
		{"one degree of longitude at the equator", model.Coordinate{}, model.Coordinate{Longitude: 1}, 111.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DistanceKm(tt.a, tt.b); got != tt.want {
				t.Errorf("DistanceKm = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	coords := []model.Coordinate{
		stockholm,
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 40.7128, Longitude: -74.0060},
		{Latitude: 89.9, Longitude: 0},
		{Latitude: -90, Longitude: 180},
	}
	for _, a := range coords {
		if d := DistanceKm(a, a); d != 0 {
			t.Errorf("DistanceKm(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range coords {
			if DistanceKm(a, b) != DistanceKm(b, a) {
				t.Errorf("DistanceKm not symmetric for %v / %v", a, b)
			}
		}
	}
}

func TestDistanceKmMonotonicAlongMeridian(t *testing.T) {
	prev := -1.0
	for i := 0; i <= 90; i++ {
		d := DistanceKm(model.Coordinate{Longitude: 18}, model.Coordinate{Latitude: float64(i), Longitude: 18})
		if d < prev {
			t.Fatalf("distance decreased at %d°: %v < %v", i, d, prev)
		}
		prev = d
	}
}

func TestFitAllContainsEverything(t *testing.T) {
	fountains := []model.Fountain{
		{ID: "a", Location: model.Coordinate{Latitude: 59.3326, Longitude: 18.0649}},
		{ID: "b", Location: model.Coordinate{Latitude: 59.3255, Longitude: 18.0711}},
	}
	b := FitAll(stockholm, fountains)
	if !b.Contains(Point(stockholm)) {
		t.Error("bound misses the user location")
	}
	if got := Within(fountains, b); len(got) != 2 {
		t.Errorf("Within = %d fountains, want 2", len(got))
	}
}

func TestFitAllSinglePointIsPadded(t *testing.T) {
	b := FitAll(stockholm, nil)
	if b.Right()-b.Left() <= 0 || b.Top()-b.Bottom() <= 0 {
		t.Errorf("bound is degenerate: %v", b)
	}
}

func TestWithinKeepsOrder(t *testing.T) {
	fountains := []model.Fountain{
		{ID: "far", Location: model.Coordinate{Latitude: 57.7, Longitude: 11.97}},
		{ID: "x", Location: model.Coordinate{Latitude: 59.33, Longitude: 18.06}},
		{ID: "y", Location: model.Coordinate{Latitude: 59.32, Longitude: 18.07}},
	}
	got := Within(fountains, FitAll(stockholm, fountains[1:]))
	if len(got) != 2 || got[0].ID != "x" || got[1].ID != "y" {
		t.Errorf("Within = %+v", got)
	}
}

func TestZoomForRadius(t *testing.T) {
	tests := []struct {
		name   string
		lat    float64
		radius float64
		want   int
	}{
		{"zero radius", 0, 0, 18},
		{"small radius at equator", 0, 100, 17},
		{"nearby search in stockholm", 59.33, 5000, 10},
		{"huge radius", 0, 500000, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ZoomForRadius(tt.lat, tt.radius); got != tt.want {
				t.Errorf("ZoomForRadius = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Stockholm" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"lat":"59.3251","lon":"18.0711","display_name":"Stockholm, Sverige",
			"boundingbox":["59.1","59.5","17.8","18.3"]}]`))
	}))
	defer srv.Close()

	g := NewGeocoder()
	g.BaseURL = srv.URL

	place, err := g.Geocode(context.Background(), "Stockholm")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if place.Center.Latitude != 59.3251 || place.Center.Longitude != 18.0711 {
		t.Errorf("center = %v", place.Center)
	}
	if place.Bound.Left() != 17.8 || place.Bound.Top() != 59.5 {
		t.Errorf("bound = %v", place.Bound)
	}

	if _, err := g.Geocode(context.Background(), "Nowhere"); err == nil {
		t.Error("expected error for unknown place")
	}
}
