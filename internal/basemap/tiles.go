// Package basemap draws raster map tiles under the viewport, the way the map
// widget would show them. Tiles come from an XYZ URL template or a single
// world image and can be cached on disk as WebP.
package basemap

import (
	"fmt"
	"math"
	"strings"

	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/provider"
	"github.com/woozymasta/geoview/internal/viewport"
)

// TileSize is the size of a tile in pixels.
const TileSize = 256

// Tile addresses a single XYZ tile.
type Tile struct {
	Z, X, Y int
}

// String returns z/x/y.
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Wrapped returns the tile with its column brought into the world range.
func (t Tile) Wrapped() Tile {
	n := 1 << t.Z
	t.X = ((t.X % n) + n) % n
	return t
}

// URL expands an XYZ template. Supported placeholders are {z}, {x}, {y} and
// {tms_y}, the row counted from the bottom.
func (t Tile) URL(tpl string) string {
	s := strings.ReplaceAll(tpl, "{z}", fmt.Sprintf("%d", t.Z))
	s = strings.ReplaceAll(s, "{x}", fmt.Sprintf("%d", t.X))
	s = strings.ReplaceAll(s, "{y}", fmt.Sprintf("%d", t.Y))

	if strings.Contains(s, "{tms_y}") {
		maxCoord := (1 << t.Z) - 1
		s = strings.ReplaceAll(s, "{tms_y}", fmt.Sprintf("%d", maxCoord-t.Y))
	}

	return s
}

// IsTemplate reports whether source is an XYZ template rather than a single image.
func IsTemplate(source string) bool {
	return strings.Contains(source, "{z}") || strings.Contains(source, "{x}")
}

// Placement is a tile and the pixel rectangle it covers in the viewport.
type Placement struct {
	Tile       Tile
	MinX, MinY float64
	MaxX, MaxY float64
}

// View is the part of the world shown in the viewport.
type View struct {
	NorthEast geo.Position
	SouthWest geo.Position
	Size      geo.Point
	Zoom      float64
}

// ViewOf returns the view of a viewport projection cache, at the zoom the
// map widget settles on.
func ViewOf(c viewport.Cache) View {
	return View{
		NorthEast: c.FinalNorthEast,
		SouthWest: c.FinalSouthWest,
		Size:      c.Size,
		Zoom:      c.FinalZoom,
	}
}

// corners returns the top-left and bottom-right view corners in world units.
func (v View) corners() (topLeft, bottomRight geo.Point) {
	topLeft = provider.ToWorld(geo.Position{Lat: v.NorthEast.Lat, Lng: v.SouthWest.Lng})
	bottomRight = provider.ToWorld(geo.Position{Lat: v.SouthWest.Lat, Lng: v.NorthEast.Lng})
	return topLeft, bottomRight
}

// Cover returns the tiles at zoom level z covering the view and where to draw
// them. Columns outside the world repeat the wrapped tiles.
func Cover(v View, z int) []Placement {
	topLeft, bottomRight := v.corners()
	width := bottomRight.X - topLeft.X
	height := bottomRight.Y - topLeft.Y
	if width <= 0 || height <= 0 {
		return nil
	}

	sx := v.Size.X / width
	sy := v.Size.Y / height

	n := 1 << z
	unit := provider.TileSize / float64(n)

	x0 := int(math.Floor(topLeft.X / unit))
	x1 := int(math.Ceil(bottomRight.X/unit)) - 1
	y0 := max(0, int(math.Floor(topLeft.Y/unit)))
	y1 := min(n-1, int(math.Ceil(bottomRight.Y/unit))-1)

	var placements []Placement
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			placements = append(placements, Placement{
				Tile: Tile{Z: z, X: x, Y: y},
				MinX: (float64(x)*unit - topLeft.X) * sx,
				MinY: (float64(y)*unit - topLeft.Y) * sy,
				MaxX: (float64(x+1)*unit - topLeft.X) * sx,
				MaxY: (float64(y+1)*unit - topLeft.Y) * sy,
			})
		}
	}

	return placements
}
