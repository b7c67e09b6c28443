package provider

import (
	"math"

	"github.com/wroge/wgs84"

	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/viewport"
)

// originShift is half the circumference of the EPSG:3857 world in meters.
const originShift = math.Pi * 6378137

// Container behaves like a Leaflet widget: it projects straight to container
// pixels through EPSG:3857 and is ready as soon as it is mounted.
type Container struct {
	toMeters   func(a, b, c float64) (float64, float64, float64)
	fromMeters func(a, b, c float64) (float64, float64, float64)
	widget
}

var (
	_ viewport.Provider            = (*Container)(nil)
	_ viewport.ContainerProjection = (*Container)(nil)
)

// NewContainer creates an unmounted container provider.
func NewContainer() *Container {
	return &Container{
		toMeters:   wgs84.LonLat().To(wgs84.WebMercator()),
		fromMeters: wgs84.WebMercator().To(wgs84.LonLat()),
	}
}

// Mount creates the widget in the container id and reports it ready.
func (c *Container) Mount(id string, options map[string]any) error {
	if err := c.mount(viewport.Leaflet.String(), id, options); err != nil {
		return err
	}
	c.fireReady()
	return nil
}

// Bounds returns the positions of the top-right and bottom-left container corners.
func (c *Container) Bounds() (northEast, southWest geo.Position) {
	northEast = c.ContainerPointToLatLng(geo.Point{X: c.size.X, Y: 0})
	southWest = c.ContainerPointToLatLng(geo.Point{X: 0, Y: c.size.Y})
	return northEast, southWest
}

// LatLngToContainerPoint projects a position to pixels relative to the
// top-left of the container.
func (c *Container) LatLngToContainerPoint(p geo.Position) geo.Point {
	pixel := c.pixel(p)
	origin := c.pixel(c.center)
	return geo.Point{
		X: pixel.X - origin.X + c.size.X/2,
		Y: pixel.Y - origin.Y + c.size.Y/2,
	}
}

// ContainerPointToLatLng converts container pixels back to a position.
func (c *Container) ContainerPointToLatLng(pt geo.Point) geo.Position {
	origin := c.pixel(c.center)
	px := pt.X - c.size.X/2 + origin.X
	py := pt.Y - c.size.Y/2 + origin.Y

	res := 2 * originShift / (TileSize * c.scale())
	x := px*res - originShift
	y := originShift - py*res

	lng, lat, _ := c.fromMeters(x, y, 0)
	return geo.Position{Lat: lat, Lng: lng}
}

// pixel returns the global pixel coordinates of a position at the current zoom.
func (c *Container) pixel(p geo.Position) geo.Point {
	x, y, _ := c.toMeters(p.Lng, geo.ClampLat(p.Lat), 0)
	res := 2 * originShift / (TileSize * c.scale())
	return geo.Point{
		X: (x + originShift) / res,
		Y: (originShift - y) / res,
	}
}
