package geo

import "math"

// earthRadiusMeters is the mean Earth radius.
const earthRadiusMeters = 6371008.8

// DistanceMeters returns the haversine great-circle distance between two
// points. It returns +Inf when either input is nil or has a non-finite
// latitude/longitude, so callers can treat "unknown distance" uniformly as
// "too far" without branching.
func DistanceMeters(a, b *Coordinate) float64 {
	if a == nil || b == nil {
		return math.Inf(1)
	}
	if !isFinite(a.Latitude) || !isFinite(a.Longitude) ||
		!isFinite(b.Latitude) || !isFinite(b.Longitude) {
		return math.Inf(1)
	}

	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}
