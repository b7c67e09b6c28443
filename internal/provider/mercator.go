package provider

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/woozymasta/geoview/internal/geo"
)

// TileSize is the width of the world at zoom level 0, in world units.
const TileSize = 256.0

// WebMercator projects latitudes and longitudes onto the unit square, x
// growing east and y growing south, with the antimeridian at x = 0 and x = 1.
type WebMercator struct{}

// FromLatLng returns the LatLng projected into the unit square. Longitudes
// outside [-180, 180] land outside [0, 1].
func (WebMercator) FromLatLng(ll s2.LatLng) r2.Point {
	y := (1 - math.Asinh(math.Tan(float64(ll.Lat)))/math.Pi) / 2
	return r2.Point{X: ((float64(ll.Lng) / math.Pi) + 1) / 2, Y: y}
}

// ToLatLng returns the LatLng of a projected point.
func (WebMercator) ToLatLng(pt r2.Point) s2.LatLng {
	lat := math.Atan(math.Sinh(math.Pi * (1 - 2*pt.Y)))
	return s2.LatLng{Lat: s1.Angle(lat), Lng: s1.Angle((pt.X*2 - 1) * math.Pi)}
}

// ToWorld converts a position into world units at zoom 0. Longitudes are not
// wrapped so unwrapped bounds project linearly.
func ToWorld(p geo.Position) geo.Point {
	ll := s2.LatLngFromDegrees(geo.ClampLat(p.Lat), p.Lng)
	pt := WebMercator{}.FromLatLng(ll).Mul(TileSize)
	return geo.Point{X: pt.X, Y: pt.Y}
}

// FromWorld converts world units back to a position.
func FromWorld(pt geo.Point) geo.Position {
	ll := WebMercator{}.ToLatLng(r2.Point{X: pt.X, Y: pt.Y}.Mul(1 / TileSize))
	return geo.Position{Lat: ll.Lat.Degrees(), Lng: ll.Lng.Degrees()}
}

// wrapLng brings a longitude into [-180, 180].
func wrapLng(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	return math.Mod(math.Mod(lng+180, 360)+360, 360) - 180
}
