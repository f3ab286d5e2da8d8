package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/rendis/spottet/internal/engine/geo"
	"github.com/rendis/spottet/internal/model"
)

// FallbackLocation is used whenever the user cannot be located (Stockholm).
var FallbackLocation = model.Coordinate{Latitude: 59.3293, Longitude: 18.0686}

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
)

// Locator reports the user's position.
type Locator interface {
	Locate(ctx context.Context) (model.Coordinate, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (model.Coordinate, error)

func (f LocatorFunc) Locate(ctx context.Context) (model.Coordinate, error) {
	return f(ctx)
}

// StaticLocator always reports the same position.
type StaticLocator struct {
	Position model.Coordinate
}

func (l StaticLocator) Locate(ctx context.Context) (model.Coordinate, error) {
	return l.Position, nil
}

// UnavailableLocator never finds a position. It is used when no position
// source is configured.
type UnavailableLocator struct{}

func (UnavailableLocator) Locate(ctx context.Context) (model.Coordinate, error) {
	return model.Coordinate{}, ErrPositionUnavailable
}

// GeocodeLocator resolves a configured place name to its center.
type GeocodeLocator struct {
	Geocoder *geo.Geocoder
	Place    string
}

func (l GeocodeLocator) Locate(ctx context.Context) (model.Coordinate, error) {
	place, err := l.Geocoder.Geocode(ctx, l.Place)
	if err != nil {
		if ctx.Err() != nil {
			return model.Coordinate{}, ctx.Err()
		}
		return model.Coordinate{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	return place.Center, nil
}

type GeolocationReason int

const (
	ReasonUnavailable GeolocationReason = iota
	ReasonDenied
	ReasonTimeout
)

func (r GeolocationReason) String() string {
	switch r {
	case ReasonDenied:
		return "denied"
	case ReasonTimeout:
		return "timeout"
	}
	return "unavailable"
}

// GeolocationUnavailable is a classified locate failure. It only affects the
// status message; every reason falls back to FallbackLocation.
type GeolocationUnavailable struct {
	Reason GeolocationReason
	Err    error
}

func (e *GeolocationUnavailable) Error() string {
	return fmt.Sprintf("geolocation %s: %v", e.Reason, e.Err)
}

func (e *GeolocationUnavailable) Unwrap() error {
	return e.Err
}

// Message is the advisory shown to the user.
func (e *GeolocationUnavailable) Message() string {
	switch e.Reason {
	case ReasonDenied:
		return "Location access denied. Showing fountains near Stockholm."
	case ReasonTimeout:
		return "Locating you took too long. Showing fountains near Stockholm."
	}
	return "Your position is unavailable. Showing fountains near Stockholm."
}

func classifyLocateError(err error) *GeolocationUnavailable {
	var gu *GeolocationUnavailable
	if errors.As(err, &gu) {
		return gu
	}
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return &GeolocationUnavailable{Reason: ReasonDenied, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &GeolocationUnavailable{Reason: ReasonTimeout, Err: err}
	}
	return &GeolocationUnavailable{Reason: ReasonUnavailable, Err: err}
}
