// Package provider contains headless map widgets. They keep the state a real
// map widget would (center, zoom, container size) and implement the
// projections the viewport needs, without any rendering.
package provider

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/viewport"
)

// Default container size in pixels.
const (
	DefaultWidth  = 800.0
	DefaultHeight = 600.0
)

// MinZoom and MaxZoom bound the zoom levels accepted by SetZoom.
const (
	MinZoom = 0.0
	MaxZoom = 22.0
)

// New creates the headless provider for a map type.
func New(t viewport.MapType) (viewport.Provider, error) {
	switch t {
	case viewport.GoogleMaps:
		return NewWorld(), nil
	case viewport.Leaflet:
		return NewContainer(), nil
	}
	return nil, fmt.Errorf("%w: %s", viewport.ErrUnknownMapType, t)
}

// widget is the state shared by the headless providers.
type widget struct {
	listeners []func()
	id        string
	center    geo.Position
	size      geo.Point
	zoom      float64
	mounted   bool
	ready     bool
}

func (w *widget) mount(kind, id string, options map[string]any) error {
	if id == "" {
		return fmt.Errorf("%s: %w", kind, viewport.ErrContainerNotFound)
	}

	w.id = id
	w.center = viewport.PositionOption(options, "center", viewport.DefaultCenter)
	w.zoom = viewport.DefaultZoom
	if z, ok := viewport.NumberOption(options, "zoom"); ok {
		w.zoom = clampZoom(z)
	}
	w.size = geo.Point{X: DefaultWidth, Y: DefaultHeight}
	if width, ok := viewport.NumberOption(options, "width"); ok && width > 0 {
		w.size.X = width
	}
	if height, ok := viewport.NumberOption(options, "height"); ok && height > 0 {
		w.size.Y = height
	}
	w.mounted = true

	log.Debug().
		Str("id", id).
		Str("provider", kind).
		Float64("zoom", w.zoom).
		Float64("width", w.size.X).
		Float64("height", w.size.Y).
		Msg("Headless map mounted")

	return nil
}

func (w *widget) OnProjectionReady(fn func()) {
	if w.ready {
		fn()
		return
	}
	w.listeners = append(w.listeners, fn)
}

func (w *widget) fireReady() {
	if w.ready {
		return
	}
	w.ready = true

	listeners := w.listeners
	w.listeners = nil
	for _, fn := range listeners {
		fn()
	}
}

func (w *widget) Zoom() float64 { return w.zoom }
func (w *widget) Center() geo.Position { return w.center }
func (w *widget) Size() geo.Point { return w.size }
func (w *widget) Mounted() bool { return w.mounted }
func (w *widget) Ready() bool { return w.ready }
func (w *widget) SetZoom(zoom float64) { w.zoom = clampZoom(zoom) }
func (w *widget) Sync(_ time.Time) {}
func (w *widget) ContainerID() string { return w.id }
func (w *widget) SetSize(size geo.Point) { w.size = size }

func (w *widget) SetCenter(center geo.Position) {
	w.center = geo.Position{Lat: geo.ClampLat(center.Lat), Lng: center.Lng}
}

// scale is the number of pixels per world unit at the current zoom.
func (w *widget) scale() float64 {
	return math.Pow(2, w.zoom)
}

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}
