package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Localized placeholders used when a source omits a display field.
const (
	PlaceholderName    = "Dricksvattenfontän"
	PlaceholderAddress = "Okänd adress"
	HoursOpen          = "Öppen nu"
	HoursClosed        = "Stängd"
)

var validate = validator.New()

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Validate reports whether the coordinate lies inside the WGS84 range.
func (c Coordinate) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid coordinate %s: %w", c, err)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Fountain is the merged record for one drinking-water point.
// IsWorking and IsFavorite are owned by the user and survive merges.
type Fountain struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Address       string     `json:"address"`
	Location      Coordinate `json:"location"`
	DistanceKm    float64    `json:"distance_km"`
	Rating        float64    `json:"rating"`
	IsWorking     bool       `json:"is_working"`
	IsFavorite    bool       `json:"is_favorite"`
	HasPhoto      bool       `json:"has_photo"`
	Hours         string     `json:"hours"`
	IsOpen        bool       `json:"is_open"`
	SourcePlaceID string     `json:"source_place_id,omitempty"`
}

// CandidatePlace is a provider search result before it is merged.
type CandidatePlace struct {
	ID        string
	Name      string
	Address   string
	Location  Coordinate
	Rating    float64
	OpenNow   *bool // nil when the provider gave no signal
	PhotoRefs []string
}

// IsOpen treats an unknown open signal as open.
func (c CandidatePlace) IsOpen() bool {
	return c.OpenNow == nil || *c.OpenNow
}

// HoursLabel renders an open signal the way the UI shows it.
func HoursLabel(open bool) string {
	if open {
		return HoursOpen
	}
	return HoursClosed
}
