// Package geo anchors assets to coordinates and evaluates geofence
// breaches with the haversine great-circle distance.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the distance formula.
const earthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two
// latitude/longitude pairs given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Within reports whether the observed point lies inside the fence around
// the anchor. A nil radius means the asset is unfenced and every point is
// inside.
func Within(anchorLat, anchorLon float64, radius *float64, lat, lon float64) (float64, bool) {
	d := Distance(anchorLat, anchorLon, lat, lon)
	if radius == nil {
		return d, true
	}
	return d, d <= *radius
}
