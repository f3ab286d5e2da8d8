package geo

import (
	"github.com/paulmach/orb"

	"github.com/rendis/spottet/internal/model"
)

// minPadDegrees keeps a single-point bound from collapsing to zero size.
const minPadDegrees = 0.005

// Point converts a coordinate to an orb.Point. orb.Point is [lng, lat].
func Point(c model.Coordinate) orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// Bound returns the bounding box of the given coordinates.
func Bound(coords ...model.Coordinate) orb.Bound {
	mp := make(orb.MultiPoint, 0, len(coords))
	for _, c := range coords {
		mp = append(mp, Point(c))
	}
	return mp.Bound()
}

// FitAll returns the view that shows the user location and every fountain,
// padded by 5% on each side.
func FitAll(user model.Coordinate, fountains []model.Fountain) orb.Bound {
	coords := make([]model.Coordinate, 0, len(fountains)+1)
	coords = append(coords, user)
	for _, f := range fountains {
		coords = append(coords, f.Location)
	}
	b := Bound(coords...)

	latPad := (b.Top() - b.Bottom()) * 0.05
	lngPad := (b.Right() - b.Left()) * 0.05
	if latPad < minPadDegrees {
		latPad = minPadDegrees
	}
	if lngPad < minPadDegrees {
		lngPad = minPadDegrees
	}
	return orb.Bound{
		Min: orb.Point{b.Left() - lngPad, b.Bottom() - latPad},
		Max: orb.Point{b.Right() + lngPad, b.Top() + latPad},
	}
}

// Within returns the fountains located inside bound, in their original order.
func Within(fountains []model.Fountain, bound orb.Bound) []model.Fountain {
	var inside []model.Fountain
	for _, f := range fountains {
		if bound.Contains(Point(f.Location)) {
			inside = append(inside, f)
		}
	}
	return inside
}
