// Package config loads scene descriptions: the map widget, camera moves,
// simulated user input and the markers placed on the map.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/twpayne/go-polyline"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/transition"
	"github.com/woozymasta/geoview/internal/viewport"
)

var (
	// ErrDuplicateMarker is returned when two markers share a name.
	ErrDuplicateMarker = errors.New("duplicate marker name")
	// ErrUnknownMarker is returned when a marker refers to a marker that does not exist.
	ErrUnknownMarker = errors.New("unknown marker")
	// ErrInvalidMarker is returned for markers that cannot be placed.
	ErrInvalidMarker = errors.New("invalid marker")
	// ErrInvalidEvent is returned for events that change nothing.
	ErrInvalidEvent = errors.New("invalid event")
)

// Config represents the root scene file structure.
type Config struct {
	Map            Map      `yaml:"map" json:"map"`
	MarkersGeoJSON string   `yaml:"markers_geojson,omitempty" json:"markers_geojson,omitempty"`
	Camera         []Leg    `yaml:"camera,omitempty" json:"camera,omitempty"`
	Events         []Event  `yaml:"events,omitempty" json:"events,omitempty"`
	Markers        []Marker `yaml:"markers,omitempty" json:"markers,omitempty"`
}

// Map configures the map widget and its viewport.
type Map struct {
	// Options are handed to the map widget (center, zoom, width, height).
	Options        map[string]any   `yaml:"options,omitempty" json:"options,omitempty"`
	ZoomTransition *transition.Spec `yaml:"zoom_transition,omitempty" json:"zoom_transition,omitempty"`
	ID             string           `yaml:"id,omitempty" json:"id,omitempty"`
	Type           viewport.MapType `yaml:"type" json:"type"`
}

// Leg is one queued transition.
type Leg struct {
	Transition *transition.Spec `yaml:"transition,omitempty" json:"transition,omitempty"`
	Position   geo.Position     `yaml:"position" json:"position"`
}

// Event simulates user input on the map widget at a point in scene time.
type Event struct {
	Zoom *float64      `yaml:"zoom,omitempty" json:"zoom,omitempty"`
	Pan  *geo.Position `yaml:"pan,omitempty" json:"pan,omitempty"`
	At   time.Duration `yaml:"at" json:"at"`
}

// Marker is a renderable placed on the map.
type Marker struct {
	Position        *geo.Position    `yaml:"position,omitempty" json:"position,omitempty"`
	Offset          *geo.Position    `yaml:"offset,omitempty" json:"offset,omitempty"`
	RotateTowards   *geo.Position    `yaml:"rotate_towards,omitempty" json:"rotate_towards,omitempty"`
	ZoomBase        *float64         `yaml:"zoom_base,omitempty" json:"zoom_base,omitempty"`
	ZoomScale       *float64         `yaml:"zoom_scale,omitempty" json:"zoom_scale,omitempty"`
	RouteTransition *transition.Spec `yaml:"route_transition,omitempty" json:"route_transition,omitempty"`

	Name string `yaml:"name" json:"name"`
	// RotateTowardsMarker keeps the marker facing another marker.
	RotateTowardsMarker string `yaml:"rotate_towards_marker,omitempty" json:"rotate_towards_marker,omitempty"`
	// RoutePolyline is an encoded polyline appended to Route.
	RoutePolyline string `yaml:"route_polyline,omitempty" json:"route_polyline,omitempty"`

	Route []Leg `yaml:"route,omitempty" json:"route,omitempty"`

	// Loop restarts the route from its first waypoint when it completes.
	Loop bool `yaml:"loop,omitempty" json:"loop,omitempty"`
	// FaceRoute rotates the marker towards the next waypoint on every leg.
	FaceRoute bool `yaml:"face_route,omitempty" json:"face_route,omitempty"`
}

// Load reads and parses the YAML scene file from the specified path.
// Relative paths inside the file are resolved against its directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data, filepath.Dir(path))
}

// Parse decodes a scene, loads referenced files relative to dir, fills in
// defaults and validates the result.
func Parse(data []byte, dir string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}

	if cfg.MarkersGeoJSON != "" {
		path := cfg.MarkersGeoJSON
		if !filepath.IsAbs(path) && dir != "" {
			path = filepath.Join(dir, path)
		}
		markers, err := LoadMarkersGeoJSON(path)
		if err != nil {
			return nil, err
		}
		cfg.Markers = append(cfg.Markers, markers...)
	}

	if err := cfg.expandRoutes(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the scene for errors that would only surface while playing it.
func (c *Config) Validate() error {
	switch c.Map.Type {
	case viewport.GoogleMaps, viewport.Leaflet:
	default:
		return fmt.Errorf("map: %w: %d", viewport.ErrUnknownMapType, int(c.Map.Type))
	}

	names := make(map[string]struct{}, len(c.Markers))
	for i, m := range c.Markers {
		if m.Name == "" {
			return fmt.Errorf("marker #%d: %w: missing name", i, ErrInvalidMarker)
		}
		if _, ok := names[m.Name]; ok {
			return fmt.Errorf("marker %q: %w", m.Name, ErrDuplicateMarker)
		}
		names[m.Name] = struct{}{}

		if m.Position == nil && len(m.Route) == 0 {
			return fmt.Errorf("marker %q: %w: neither position nor route", m.Name, ErrInvalidMarker)
		}
		if m.RotateTowards != nil && m.RotateTowardsMarker != "" {
			return fmt.Errorf("marker %q: %w: rotate_towards and rotate_towards_marker are exclusive", m.Name, ErrInvalidMarker)
		}
		if m.FaceRoute && (m.RotateTowards != nil || m.RotateTowardsMarker != "") {
			return fmt.Errorf("marker %q: %w: face_route conflicts with rotate_towards", m.Name, ErrInvalidMarker)
		}
		if m.ZoomScale != nil && *m.ZoomScale < 0 {
			return fmt.Errorf("marker %q: %w: negative zoom_scale", m.Name, ErrInvalidMarker)
		}
		if m.Loop && len(m.Route) < 2 {
			return fmt.Errorf("marker %q: %w: loop needs at least two waypoints", m.Name, ErrInvalidMarker)
		}
	}

	for _, m := range c.Markers {
		if m.RotateTowardsMarker == "" {
			continue
		}
		if m.RotateTowardsMarker == m.Name {
			return fmt.Errorf("marker %q: %w: rotates towards itself", m.Name, ErrInvalidMarker)
		}
		if _, ok := names[m.RotateTowardsMarker]; !ok {
			return fmt.Errorf("marker %q: %w %q", m.Name, ErrUnknownMarker, m.RotateTowardsMarker)
		}
	}

	for i, e := range c.Events {
		if e.Zoom == nil && e.Pan == nil {
			return fmt.Errorf("event #%d at %s: %w: neither zoom nor pan", i, e.At, ErrInvalidEvent)
		}
		if e.At < 0 {
			return fmt.Errorf("event #%d: %w: negative time %s", i, ErrInvalidEvent, e.At)
		}
	}

	return nil
}

// MapOptions returns a copy of the map widget options.
func (c *Config) MapOptions() map[string]any {
	out := make(map[string]any, len(c.Map.Options))
	for k, v := range c.Map.Options {
		out[k] = v
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.Map.Type == 0 {
		c.Map.Type = viewport.GoogleMaps
	}

	for i := range c.Markers {
		m := &c.Markers[i]
		if m.Position == nil && len(m.Route) > 0 {
			start := m.Route[0].Position
			m.Position = &start
		}
	}
}

// expandRoutes decodes encoded polylines into route legs.
func (c *Config) expandRoutes() error {
	for i := range c.Markers {
		m := &c.Markers[i]
		if m.RoutePolyline == "" {
			continue
		}

		points, err := DecodePolyline(m.RoutePolyline)
		if err != nil {
			return fmt.Errorf("marker %q: %w", m.Name, err)
		}
		for _, p := range points {
			m.Route = append(m.Route, Leg{Position: p})
		}
	}

	return nil
}

// LegSpec returns the transition of a route leg, falling back to the
// marker's route transition.
func (m Marker) LegSpec(i int) *transition.Spec {
	if i >= 0 && i < len(m.Route) && m.Route[i].Transition != nil {
		return m.Route[i].Transition
	}
	return m.RouteTransition
}

// DecodePolyline decodes a Google encoded polyline into positions.
func DecodePolyline(encoded string) ([]geo.Position, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode polyline: %d trailing bytes", len(rest))
	}

	points := make([]geo.Position, 0, len(coords))
	for _, c := range coords {
		points = append(points, geo.Position{Lat: c[0], Lng: c[1]})
	}

	return points, nil
}

// EncodePolyline encodes positions as a Google encoded polyline.
func EncodePolyline(points []geo.Position) string {
	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lat, p.Lng})
	}
	return string(polyline.EncodeCoords(coords))
}
