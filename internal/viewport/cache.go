package viewport

import "github.com/woozymasta/geoview/internal/geo"

// Cache is the projection state derived from the viewport bounds and zoom.
// Final* values are the provider's own; TopRight, BottomLeft, Scale and Zoom
// follow the zoom-edge transitions.
type Cache struct {
	FinalNorthEast geo.Position `json:"final_north_east"`
	FinalSouthWest geo.Position `json:"final_south_west"`
	TopRight       geo.Point    `json:"top_right"`
	BottomLeft     geo.Point    `json:"bottom_left"`
	Size           geo.Point    `json:"size"`
	FinalZoom      float64      `json:"final_zoom"`
	FinalScale     float64      `json:"final_scale"`
	Scale          float64      `json:"scale"`
	Zoom           float64      `json:"zoom"`
	Valid          bool         `json:"valid"`
}

// mapInfo is what the viewport polls from the provider every frame.
type mapInfo struct {
	Center    geo.Position
	NorthEast geo.Position
	SouthWest geo.Position
	Zoom      float64
}
