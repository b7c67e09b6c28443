package config

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/transition"
)

// LoadMarkersGeoJSON reads markers from a GeoJSON feature collection file.
func LoadMarkersGeoJSON(path string) ([]Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markers geojson: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode markers geojson %s: %w", path, err)
	}

	return MarkersFromFeatures(fc)
}

// MarkersFromFeatures converts features into markers. Point features become
// static markers, LineString features markers following the line.
// Properties: name, zoom_base, zoom_scale, rotate_towards_marker, speed (km/h),
// loop and face_route.
func MarkersFromFeatures(fc *geojson.FeatureCollection) ([]Marker, error) {
	markers := make([]Marker, 0, len(fc.Features))

	for i, f := range fc.Features {
		m := Marker{
			Name:                f.Properties.MustString("name", fmt.Sprintf("feature-%d", i)),
			RotateTowardsMarker: f.Properties.MustString("rotate_towards_marker", ""),
			Loop:                f.Properties.MustBool("loop", false),
			FaceRoute:           f.Properties.MustBool("face_route", false),
		}
		if v, ok := f.Properties["zoom_base"]; ok {
			if base, ok := v.(float64); ok {
				m.ZoomBase = &base
			}
		}
		if v, ok := f.Properties["zoom_scale"]; ok {
			if scale, ok := v.(float64); ok {
				m.ZoomScale = &scale
			}
		}

		switch g := f.Geometry.(type) {
		case orb.Point:
			p := fromOrb(g)
			m.Position = &p
		case orb.LineString:
			if len(g) == 0 {
				return nil, fmt.Errorf("feature %q: %w: empty line", m.Name, ErrInvalidMarker)
			}
			for _, pt := range g {
				m.Route = append(m.Route, Leg{Position: fromOrb(pt)})
			}
			if speed := f.Properties.MustFloat64("speed", 0); speed > 0 {
				m.RouteTransition = transition.WithSpeed(speed)
			}
		default:
			return nil, fmt.Errorf("feature %q: %w: unsupported geometry %T", m.Name, ErrInvalidMarker, f.Geometry)
		}

		markers = append(markers, m)
	}

	return markers, nil
}

func fromOrb(p orb.Point) geo.Position {
	return geo.Position{Lat: p.Lat(), Lng: p.Lon()}
}
