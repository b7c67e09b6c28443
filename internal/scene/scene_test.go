package scene

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/geoview/internal/config"
	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/transform"
	"github.com/woozymasta/geoview/internal/transition"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const frameStep = 16 * time.Millisecond

func load(t *testing.T, yaml string) (*Scene, *transition.ManualClock) {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml), "")
	require.NoError(t, err)

	clock := transition.NewManualClock(epoch)
	s, err := New(cfg, Options{Clock: clock})
	require.NoError(t, err)
	return s, clock
}

func frameOf(t *testing.T, frames []Frame, name string) Frame {
	t.Helper()
	for _, f := range frames {
		if f.Name == name {
			return f
		}
	}
	require.FailNow(t, "frame not found", name)
	return Frame{}
}

func TestRouteFacesNextWaypoint(t *testing.T) {
	s, clock := load(t, `
map: {type: leaflet, options: {center: {lat: 0, lng: 0}, zoom: 8}}
markers:
  - name: homer
    face_route: true
    route_transition: {duration: 1s}
    route:
      - position: {lat: 0, lng: 0}
      - position: {lat: 0, lng: 1}
      - position: {lat: 1, lng: 1}
`)
	homer, ok := s.Marker("homer")
	require.True(t, ok)
	assert.Equal(t, 1, homer.Leg())

	f := frameOf(t, s.Frame(), "homer")
	assert.Equal(t, geo.Position{}, f.Position)
	assert.True(t, f.Active)
	target, ok := homer.CurrentRotateTowards()
	require.True(t, ok)
	assert.Equal(t, geo.Position{Lng: 1}, target)

	clock.Advance(500 * time.Millisecond)
	f = frameOf(t, s.Frame(), "homer")
	assert.InDelta(t, 0.5, f.Position.Lng, 1e-9)

	clock.Advance(600 * time.Millisecond)
	f = frameOf(t, s.Frame(), "homer")
	assert.Equal(t, geo.Position{Lng: 1}, f.Position)

	clock.Advance(frameStep)
	s.Frame()
	assert.Equal(t, 2, homer.Leg())
	target, ok = homer.CurrentRotateTowards()
	require.True(t, ok)
	assert.Equal(t, geo.Position{Lat: 1, Lng: 1}, target)

	clock.Advance(1100 * time.Millisecond)
	s.Frame()
	clock.Advance(frameStep)
	f = frameOf(t, s.Frame(), "homer")
	assert.Equal(t, geo.Position{Lat: 1, Lng: 1}, f.Position)
	assert.Equal(t, 3, homer.Leg())
	assert.False(t, f.Active)
}

func TestRouteLoops(t *testing.T) {
	s, clock := load(t, `
map: {type: leaflet}
markers:
  - name: shuttle
    loop: true
    route_transition: {duration: 1s}
    route:
      - position: {lat: 0, lng: 0}
      - position: {lat: 0, lng: 2}
`)
	shuttle, _ := s.Marker("shuttle")

	s.Frame()
	clock.Advance(time.Second)
	s.Frame()
	clock.Advance(frameStep)
	s.Frame()
	assert.Equal(t, 1, shuttle.Laps())
	assert.Equal(t, 0, shuttle.Leg())

	clock.Advance(500 * time.Millisecond)
	f := frameOf(t, s.Frame(), "shuttle")
	assert.InDelta(t, 1, f.Position.Lng, 1e-9, "halfway back to the first waypoint")
	assert.True(t, f.Active)

	clock.Advance(600 * time.Millisecond)
	s.Frame()
	clock.Advance(frameStep)
	s.Frame()
	assert.Equal(t, 1, shuttle.Leg())
}

func TestRotateTowardsMarker(t *testing.T) {
	s, _ := load(t, `
map: {type: googlemaps, options: {center: {lat: 0, lng: 0}}}
markers:
  - name: arrow
    position: {lat: 0, lng: 0}
    rotate_towards_marker: target
  - name: target
    position: {lat: 1, lng: 0}
`)
	arrow, _ := s.Marker("arrow")
	target, ok := arrow.CurrentRotateTowards()
	require.True(t, ok)
	assert.Equal(t, geo.Position{Lat: 1}, target)

	f := frameOf(t, s.Frame(), "arrow")
	x, y := transform.Translation(f.Spec.Transform)
	assert.InDelta(t, f.Point.X, x, 1e-9)
	assert.InDelta(t, f.Point.Y, y, 1e-9)

	// facing north
	ux, uy := transform.Apply(f.Spec.Transform, 1, 0)
	assert.InDelta(t, 0, ux-x, 1e-9)
	assert.InDelta(t, math.Sin(3*math.Pi/2), uy-y, 1e-9)
}

func TestMarkerFrameMatchesViewport(t *testing.T) {
	s, _ := load(t, `
map: {type: leaflet, options: {center: {lat: 51.44, lng: 5.47}, zoom: 12, width: 400, height: 300}}
markers:
  - name: pin
    position: {lat: 51.44, lng: 5.47}
`)
	f := frameOf(t, s.Frame(), "pin")
	assert.Equal(t, "pin", f.Spec.Target)
	assert.InDelta(t, 200, f.Point.X, 1e-6)
	assert.InDelta(t, 150, f.Point.Y, 1e-6)

	x, y := transform.Translation(f.Spec.Transform)
	assert.InDelta(t, 200, x, 1e-6)
	assert.InDelta(t, 150, y, 1e-6)
}

func TestEventsDriveProvider(t *testing.T) {
	s, clock := load(t, `
map: {type: googlemaps, options: {zoom: 10}}
events:
  - {at: 2s, pan: {lat: 40, lng: 10}}
  - {at: 1s, zoom: 13}
`)
	s.Frame()
	assert.Equal(t, 10.0, s.Provider().Zoom())

	clock.Advance(time.Second)
	s.Frame()
	assert.Equal(t, 13.0, s.Provider().Zoom())
	assert.Equal(t, 13.0, s.Viewport().Cache().FinalZoom)

	clock.Advance(time.Second)
	s.Frame()
	assert.Equal(t, geo.Position{Lat: 40, Lng: 10}, s.Provider().Center())
	final, ok := s.Viewport().FinalPosition()
	require.True(t, ok)
	assert.Equal(t, geo.Position{Lat: 40, Lng: 10}, final)

	assert.Equal(t, 0, s.ApplyEvents(time.Hour))
}

func TestCameraLegs(t *testing.T) {
	s, clock := load(t, `
map: {type: googlemaps, options: {center: {lat: 50, lng: 5}}}
camera:
  - position: {lat: 52, lng: 5}
    transition: {duration: 1s}
`)
	s.Frame()
	clock.Advance(500 * time.Millisecond)
	s.Frame()
	assert.InDelta(t, 51, s.Provider().Center().Lat, 1e-9)

	clock.Advance(600 * time.Millisecond)
	s.Frame()
	assert.Equal(t, geo.Position{Lat: 52, Lng: 5}, s.Provider().Center())
}

func TestTracks(t *testing.T) {
	s, clock := load(t, `
map: {type: leaflet}
markers:
  - name: walker
    route_transition: {duration: 1s}
    route:
      - position: {lat: 0, lng: 0}
      - position: {lat: 0, lng: 1}
  - name: statue
    position: {lat: 1, lng: 1}
`)
	for i := 0; i < 4; i++ {
		s.Frame()
		s.Frame()
		clock.Advance(400 * time.Millisecond)
	}

	tracks := s.Tracks()
	require.Len(t, tracks, 2)
	assert.Equal(t, "walker", tracks[0].Name)
	assert.Equal(t, []geo.Position{{}, {Lng: 0.4}, {Lng: 0.8}, {Lng: 1}}, roundTrack(tracks[0].Points))
	assert.Equal(t, []geo.Position{{Lat: 1, Lng: 1}}, tracks[1].Points)
}

func roundTrack(points []geo.Position) []geo.Position {
	out := make([]geo.Position, len(points))
	for i, p := range points {
		out[i] = geo.Position{Lat: math.Round(p.Lat*1e9) / 1e9, Lng: math.Round(p.Lng*1e9) / 1e9}
	}
	return out
}

func TestUnknownMarker(t *testing.T) {
	s, _ := load(t, "map: {type: leaflet}")
	_, ok := s.Marker("nobody")
	assert.False(t, ok)
	assert.Empty(t, s.Markers())
}
