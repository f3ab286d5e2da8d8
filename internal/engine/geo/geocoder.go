package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"

	"github.com/rendis/spottet/internal/model"
)

const nominatimURL = "https://nominatim.openstreetmap.org/search"

type nominatimResult struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	BoundingBox []string `json:"boundingbox"` // [minLat, maxLat, minLng, maxLng]
	DisplayName string   `json:"display_name"`
}

// Place is a geocoded area.
type Place struct {
	Name   string
	Center model.Coordinate
	Bound  orb.Bound
}

// Geocoder resolves free-text place names using the OSM Nominatim API.
type Geocoder struct {
	BaseURL string
	http    *http.Client
}

func NewGeocoder() *Geocoder {
	return &Geocoder{
		BaseURL: nominatimURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Geocode returns the first match for query.
func (g *Geocoder) Geocode(ctx context.Context, query string) (Place, error) {
	u := g.BaseURL + "?" + url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Place{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "spottet/0.1 (drinking fountain finder)")

	resp, err := g.http.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Place{}, fmt.Errorf("decoding geocoding response: %w", err)
	}
	if len(results) == 0 {
		return Place{}, fmt.Errorf("place %q not found", query)
	}

	r := results[0]
	lat, _ := strconv.ParseFloat(r.Lat, 64)
	lng, _ := strconv.ParseFloat(r.Lon, 64)
	center := model.Coordinate{Latitude: lat, Longitude: lng}
	if err := center.Validate(); err != nil {
		return Place{}, err
	}

	place := Place{Name: r.DisplayName, Center: center, Bound: Bound(center)}
	if bb := r.BoundingBox; len(bb) >= 4 {
		// Nominatim returns [minLat, maxLat, minLng, maxLng] as strings
		minLat, _ := strconv.ParseFloat(bb[0], 64)
		maxLat, _ := strconv.ParseFloat(bb[1], 64)
		minLng, _ := strconv.ParseFloat(bb[2], 64)
		maxLng, _ := strconv.ParseFloat(bb[3], 64)
		place.Bound = orb.Bound{Min: orb.Point{minLng, minLat}, Max: orb.Point{maxLng, maxLat}}
	}
	return place, nil
}
