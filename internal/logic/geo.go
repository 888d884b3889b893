package logic

import "math"

// EarthRadiusMeters is the mean earth radius (IUGG) used for great-circle distances.
const EarthRadiusMeters = 6371008.8

// Distance returns the great-circle distance in meters between a and b
// using the haversine formula on a spherical earth.
//
// Inputs are not validated. A NaN component yields NaN. Latitudes or
// longitudes outside their geographic range are passed straight to the
// trigonometry, so the result is the distance between the points those
// angles describe (e.g. longitude 370 behaves as 10).
func Distance(a, b Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	if h > 1 {
		// rounding on near-antipodal points
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
