// Package export writes scene output to files: marker tracks as KML,
// rendered frames as WebP or minified SVG and marker positions as GeoJSON.
package export

import (
	"fmt"
	"io"

	"github.com/twpayne/go-kml"

	"github.com/woozymasta/geoview/internal/scene"
)

// WriteKML writes one placemark per track: a LineString for markers that
// moved, a Point for the ones that did not.
func WriteKML(w io.Writer, name string, tracks []scene.Track) error {
	placemarks := make([]kml.Element, 0, len(tracks)+1)
	placemarks = append(placemarks, kml.Name(name))

	for _, t := range tracks {
		if len(t.Points) == 0 {
			continue
		}

		coords := make([]kml.Coordinate, 0, len(t.Points))
		for _, p := range t.Points {
			coords = append(coords, kml.Coordinate{Lon: p.Lng, Lat: p.Lat})
		}

		var geometry kml.Element
		if len(coords) == 1 {
			geometry = kml.Point(kml.Coordinates(coords...))
		} else {
			geometry = kml.LineString(kml.Tessellate(true), kml.Coordinates(coords...))
		}

		placemarks = append(placemarks, kml.Placemark(
			kml.Name(t.Name),
			kml.Description(fmt.Sprintf("%d points", len(coords))),
			geometry,
		))
	}

	if err := kml.KML(kml.Document(placemarks...)).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("write kml: %w", err)
	}
	return nil
}
