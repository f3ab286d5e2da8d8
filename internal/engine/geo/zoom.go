package geo

import "math"

const (
	minZoom = 10
	maxZoom = 18
)

// ZoomToSpanDegrees converts a zoom level to the approximate span in degrees
// covered by a 256px tile.
func ZoomToSpanDegrees(zoom int) float64 {
	return 360.0 / math.Pow(2, float64(zoom))
}

// ZoomForRadius picks the highest zoom whose tile still covers a circle of
// radiusMeters around lat. The result is clamped to [10, 18].
func ZoomForRadius(lat, radiusMeters float64) int {
	if radiusMeters <= 0 {
		return maxZoom
	}
	// Longitude degrees shrink with latitude, so size against the east-west span.
	kmPerDegree := 111.32 * math.Cos(lat*math.Pi/180.0)
	if kmPerDegree <= 0 {
		return minZoom
	}
	needDegrees := 2 * radiusMeters / 1000 / kmPerDegree

	for zoom := maxZoom; zoom > minZoom; zoom-- {
		if ZoomToSpanDegrees(zoom) >= needDegrees {
			return zoom
		}
	}
	return minZoom
}
