package valuation

import "math"

// earthRadiusMiles is the Earth radius used for haversine distances.
const earthRadiusMiles = 3956

// haversineMiles returns the great-circle distance in miles between two
// points given in decimal degrees.
func haversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	rlat1 := lat1 * degToRad
	rlon1 := lon1 * degToRad
	rlat2 := lat2 * degToRad
	rlon2 := lon2 * degToRad

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1

	a := math.Pow(math.Sin(dlat/2), 2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Asin(math.Sqrt(a))

	return c * earthRadiusMiles
}
