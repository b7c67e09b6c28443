package geo

import (
	"math"
	"testing"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

type accessorPos struct{ lat, lng float64 }

func (a accessorPos) Lat() float64 { return a.lat }
func (a accessorPos) Lng() float64 { return a.lng }

func TestLatLngShapes(t *testing.T) {
	shapes := []any{
		Pair{51.44, 5.48},
		[2]float64{51.44, 5.48},
		[]float64{51.44, 5.48},
		Position{Lat: 51.44, Lng: 5.48},
		&Position{Lat: 51.44, Lng: 5.48},
		accessorPos{lat: 51.44, lng: 5.48},
		orb.Point{5.48, 51.44},
	}

	for _, s := range shapes {
		assert.Equal(t, 51.44, Lat(s), "%T", s)
		assert.Equal(t, 5.48, Lng(s), "%T", s)
	}

	ll := s2.LatLngFromDegrees(51.44, 5.48)
	assert.InDelta(t, 51.44, Lat(ll), 1e-12)
	assert.InDelta(t, 5.48, Lng(ll), 1e-12)
}

func TestLatLngUnknownShape(t *testing.T) {
	assert.True(t, math.IsNaN(Lat("51.44")))
	assert.True(t, math.IsNaN(Lng([]float64{1})))

	_, ok := Resolve((*Position)(nil))
	assert.False(t, ok)
}

func TestEquals(t *testing.T) {
	assert.True(t, Equals(Position{Lat: 1, Lng: 2}, Position{Lat: 1, Lng: 2}))
	assert.False(t, Equals(Position{Lat: 1, Lng: 2}, Position{Lat: 1, Lng: 2.0000001}))
}

func TestDistanceKm(t *testing.T) {
	a := Position{Lat: 51.4400867, Lng: 5.4782571}
	b := Position{Lat: 52.3702, Lng: 4.8952}

	assert.Equal(t, 0.0, DistanceKm(a, a))
	assert.Equal(t, DistanceKm(a, b), DistanceKm(b, a))
	assert.InDelta(t, 111.19, DistanceKm(Position{}, Position{Lng: 1}), 0.5)
	assert.InDelta(t, 110.3, DistanceKm(a, b), 1.0)
}

func TestBearing(t *testing.T) {
	start := Position{Lat: 51.0, Lng: 5.0}

	// renderables face east by default, so a target due east needs no rotation
	assert.Equal(t, 0.0, Bearing(start, Position{Lat: 51.0, Lng: 6.0}))
	assert.Equal(t, math.Pi/2, Bearing(start, Position{Lat: 50.0, Lng: 5.0}))
	assert.Equal(t, math.Pi, Bearing(start, Position{Lat: 51.0, Lng: 4.0}))
	assert.Equal(t, math.Atan2(-1, -1)+math.Pi/2, Bearing(start, Position{Lat: 52.0, Lng: 6.0}))
}

func TestUnwrapBounds(t *testing.T) {
	center := Position{Lat: 0, Lng: 179}
	ne, sw := UnwrapBounds(center, Position{Lat: 10, Lng: -170}, Position{Lat: -10, Lng: 170})

	assert.Equal(t, 190.0, ne.Lng)
	assert.Equal(t, 170.0, sw.Lng)
	assert.Equal(t, 10.0, ne.Lat)
	assert.Equal(t, -10.0, sw.Lat)

	center = Position{Lat: 0, Lng: 540}
	ne, sw = UnwrapBounds(center, Position{Lng: -170}, Position{Lng: 170})
	assert.Equal(t, 550.0, ne.Lng)
	assert.Equal(t, 530.0, sw.Lng)
}

func TestClampLat(t *testing.T) {
	assert.Equal(t, MaxLat, ClampLat(89))
	assert.Equal(t, -MaxLat, ClampLat(-90))
	assert.Equal(t, 45.0, ClampLat(45))
}
