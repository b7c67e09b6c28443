package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/woozymasta/geoview/internal/scene"
)

// FramesGeoJSON returns the marker positions of a frame as a feature
// collection, with the pixel point and activity as properties.
func FramesGeoJSON(frames []scene.Frame) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, f := range frames {
		feature := geojson.NewFeature(f.Position.Orb())
		feature.Properties["name"] = f.Name
		feature.Properties["x"] = f.Point.X
		feature.Properties["y"] = f.Point.Y
		feature.Properties["active"] = f.Active
		fc.Append(feature)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return data, nil
}

// TracksGeoJSON returns the marker tracks as LineString features.
func TracksGeoJSON(tracks []scene.Track) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, t := range tracks {
		line := make(orb.LineString, 0, len(t.Points))
		for _, p := range t.Points {
			line = append(line, p.Orb())
		}

		feature := geojson.NewFeature(line)
		feature.Properties["name"] = t.Name
		fc.Append(feature)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return data, nil
}
