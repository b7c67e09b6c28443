package viewport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/woozymasta/geoview/internal/geo"
)

var (
	// ErrNotReady is returned by conversions before the map reported a projection.
	ErrNotReady = errors.New("map viewport is not ready")
	// ErrUnknownMapType is returned for map types without a provider.
	ErrUnknownMapType = errors.New("unknown map type")
	// ErrContainerNotFound is returned by providers when the container element is missing.
	ErrContainerNotFound = errors.New("map container not found")
)

// MapType selects the map provider.
type MapType int

const (
	// GoogleMaps providers project through world coordinates and report wrapped bounds.
	GoogleMaps MapType = iota + 1
	// Leaflet providers project directly to container pixels and have no smooth zoom.
	Leaflet
)

// String returns the configuration name of the map type.
func (t MapType) String() string {
	switch t {
	case GoogleMaps:
		return "googlemaps"
	case Leaflet:
		return "leaflet"
	}
	return fmt.Sprintf("maptype(%d)", int(t))
}

// ParseMapType converts a configuration name into a MapType.
func ParseMapType(s string) (MapType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "googlemaps", "google":
		return GoogleMaps, nil
	case "leaflet":
		return Leaflet, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMapType, s)
}

// UnmarshalYAML reads the map type from its name.
func (t *MapType) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseMapType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML writes the map type name.
func (t MapType) MarshalYAML() (any, error) {
	return t.String(), nil
}

// Provider is the narrow interface of an interactive map widget.
type Provider interface {
	// Mount creates the widget inside the container element id.
	Mount(id string, options map[string]any) error
	// Sync gives the widget a chance to process its own events for this frame.
	Sync(ts time.Time)
	// OnProjectionReady registers fn to be called once the widget can project.
	OnProjectionReady(fn func())

	Zoom() float64
	Center() geo.Position
	Bounds() (northEast, southWest geo.Position)
	SetCenter(center geo.Position)
	SetZoom(zoom float64)
	// Size returns the container size in pixels.
	Size() geo.Point
}

// WorldProjection is implemented by GoogleMaps providers. World coordinates
// are the projected plane at zoom level 0.
type WorldProjection interface {
	FromLatLngToPoint(p geo.Position) geo.Point
	FromPointToLatLng(pt geo.Point) geo.Position
}

// ContainerProjection is implemented by Leaflet providers.
type ContainerProjection interface {
	LatLngToContainerPoint(p geo.Position) geo.Point
	ContainerPointToLatLng(pt geo.Point) geo.Position
}
