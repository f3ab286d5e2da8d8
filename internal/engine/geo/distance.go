package geo

import (
	"math"

	"github.com/rendis/spottet/internal/model"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between a and b in kilometers,
// rounded to one decimal.
func DistanceKm(a, b model.Coordinate) float64 {
	d := haversineKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	return math.Round(d*10) / 10
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
