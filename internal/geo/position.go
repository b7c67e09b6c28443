// Package geo handles geographic positions, pixel points and the math between them.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// Position is a geographic coordinate in degrees.
type Position struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Pair is a position stored as an ordered [lat, lng] pair.
type Pair [2]float64

// Accessor is implemented by position types exposing latitude and longitude methods.
type Accessor interface {
	Lat() float64
	Lng() float64
}

// Point is a position in pixels relative to the top-left of the map viewport.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pair returns the position as a [lat, lng] pair.
func (p Position) Pair() Pair {
	return Pair{p.Lat, p.Lng}
}

// LatLng converts the position to an s2.LatLng.
func (p Position) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lng)
}

// Orb converts the position to an orb.Point ([lng, lat]).
func (p Position) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Position returns the pair as a Position.
func (p Pair) Position() Position {
	return Position{Lat: p[0], Lng: p[1]}
}

// Resolve converts any of the supported position shapes into a Position.
// The second result is false when the shape is not recognized.
func Resolve(v any) (Position, bool) {
	switch p := v.(type) {
	case Position:
		return p, true
	case *Position:
		if p == nil {
			return Position{}, false
		}
		return *p, true
	case Pair:
		return p.Position(), true
	case [2]float64:
		return Position{Lat: p[0], Lng: p[1]}, true
	case []float64:
		if len(p) < 2 {
			return Position{}, false
		}
		return Position{Lat: p[0], Lng: p[1]}, true
	case orb.Point:
		return Position{Lat: p.Lat(), Lng: p.Lon()}, true
	case s2.LatLng:
		return Position{Lat: p.Lat.Degrees(), Lng: p.Lng.Degrees()}, true
	case Accessor:
		return Position{Lat: p.Lat(), Lng: p.Lng()}, true
	}

	return Position{}, false
}

// Lat returns the latitude of any supported position shape, NaN otherwise.
func Lat(v any) float64 {
	p, ok := Resolve(v)
	if !ok {
		return math.NaN()
	}
	return p.Lat
}

// Lng returns the longitude of any supported position shape, NaN otherwise.
func Lng(v any) float64 {
	p, ok := Resolve(v)
	if !ok {
		return math.NaN()
	}
	return p.Lng
}
