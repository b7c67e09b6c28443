package geo

import "math"

// EarthRadiusKm is the mean earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// MaxLat is the latitude limit of the web mercator projection.
const MaxLat = 85.05112878

// RadiansFromDegrees converts degrees into radians.
func RadiansFromDegrees(deg float64) float64 {
	return deg * (math.Pi / 180)
}

// Equals compares two positions with exact equality on both components.
func Equals(a, b Position) bool {
	return a.Lat == b.Lat && a.Lng == b.Lng
}

// Offset displaces a position by an offset in degrees.
func Offset(p, offset Position) Position {
	return Position{Lat: p.Lat + offset.Lat, Lng: p.Lng + offset.Lng}
}

// DistanceKm calculates the great-circle distance between two positions
// using the haversine formula.
func DistanceKm(start, end Position) float64 {
	lat1 := RadiansFromDegrees(start.Lat)
	lat2 := RadiansFromDegrees(end.Lat)
	deltaLat := RadiansFromDegrees(end.Lat - start.Lat)
	deltaLng := RadiansFromDegrees(end.Lng - start.Lng)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Bearing calculates the rotation in radians that turns a renderable facing
// east at start towards end.
func Bearing(start, end Position) float64 {
	return math.Atan2(start.Lng-end.Lng, start.Lat-end.Lat) + (math.Pi / 2.0)
}

// ClampLat limits a latitude to the range the web mercator projection covers.
func ClampLat(lat float64) float64 {
	if lat > MaxLat {
		return MaxLat
	} else if lat < -MaxLat {
		return -MaxLat
	}

	return lat
}

// UnwrapBounds moves the longitudes of wrapped viewport bounds next to the
// center longitude, so that north-east lies in [center, center+360] and
// south-west in [center-360, center].
func UnwrapBounds(center, northEast, southWest Position) (Position, Position) {
	neLng := northEast.Lng
	for neLng < center.Lng {
		neLng += 360
	}
	for neLng > center.Lng+360 {
		neLng -= 360
	}

	swLng := southWest.Lng
	for swLng < center.Lng-360 {
		swLng += 360
	}
	for swLng > center.Lng {
		swLng -= 360
	}

	return Position{Lat: northEast.Lat, Lng: neLng}, Position{Lat: southWest.Lat, Lng: swLng}
}
