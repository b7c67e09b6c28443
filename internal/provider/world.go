package provider

import (
	"time"

	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/viewport"
)

// World behaves like a Google Maps widget: it projects to world coordinates,
// reports bounds wrapped to [-180, 180] and becomes ready asynchronously, on
// the first Sync after Mount.
type World struct {
	widget
	pending bool
}

var (
	_ viewport.Provider        = (*World)(nil)
	_ viewport.WorldProjection = (*World)(nil)
)

// NewWorld creates an unmounted world provider.
func NewWorld() *World {
	return &World{}
}

// Mount creates the widget in the container id.
func (w *World) Mount(id string, options map[string]any) error {
	if err := w.mount(viewport.GoogleMaps.String(), id, options); err != nil {
		return err
	}
	w.pending = true
	return nil
}

// Sync delivers the projection-ready event queued by Mount.
func (w *World) Sync(_ time.Time) {
	if w.pending {
		w.pending = false
		w.fireReady()
	}
}

// Center returns the map center with its longitude wrapped.
func (w *World) Center() geo.Position {
	return geo.Position{Lat: w.center.Lat, Lng: wrapLng(w.center.Lng)}
}

// Bounds returns the corners of the container, longitudes wrapped.
func (w *World) Bounds() (northEast, southWest geo.Position) {
	c := ToWorld(w.center)
	scale := w.scale()
	halfWidth := w.size.X / 2 / scale
	halfHeight := w.size.Y / 2 / scale

	northEast = FromWorld(geo.Point{X: c.X + halfWidth, Y: c.Y - halfHeight})
	southWest = FromWorld(geo.Point{X: c.X - halfWidth, Y: c.Y + halfHeight})
	northEast.Lng = wrapLng(northEast.Lng)
	southWest.Lng = wrapLng(southWest.Lng)

	return northEast, southWest
}

// FromLatLngToPoint projects a position to world coordinates.
func (w *World) FromLatLngToPoint(p geo.Position) geo.Point {
	return ToWorld(p)
}

// FromPointToLatLng converts world coordinates back to a position.
func (w *World) FromPointToLatLng(pt geo.Point) geo.Position {
	return FromWorld(pt)
}
