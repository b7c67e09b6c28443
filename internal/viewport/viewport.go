// Package viewport tracks the viewport of an interactive map widget and
// converts between geographic positions and pixels inside it.
//
// The widget itself is reached through the Provider interface. Every frame
// the viewport polls the provider for zoom, center and bounds, keeps a
// projection cache that stays continuous while the provider animates a zoom
// change, and pushes programmatic center transitions back to the widget.
package viewport

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/transition"
)

const (
	// DefaultZoom is used when the map options carry no zoom.
	DefaultZoom = 10.0
	// DefaultZoomTransition is the duration of the projection cache transition
	// across zoom changes.
	DefaultZoomTransition = 100 * time.Millisecond
)

// DefaultCenter is used when the map options carry no center.
var DefaultCenter = geo.Position{Lat: 51.4400867, Lng: 5.4782571}

// State is the load state of the map widget.
type State int

const (
	// Uninitialized means the widget was not created yet.
	Uninitialized State = iota
	// Loading means the widget exists but cannot project yet.
	Loading
	// Ready means conversions are available.
	Ready
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configures a MapViewport.
type Options struct {
	// MapOptions are passed to the provider verbatim. They should carry
	// "center" and "zoom".
	MapOptions map[string]any
	// ZoomTransition overrides the projection transition across zoom changes.
	ZoomTransition *transition.Spec
	Clock          transition.Clock
	// Node renders the container, a Surface holding the map element by default.
	Node Node
	// ID of the container element, generated when empty.
	ID   string
	Type MapType
}

// MapViewport follows a map widget and converts between positions and pixels.
type MapViewport struct {
	provider      Provider
	world         WorldProjection
	container     ContainerProjection
	node          Node
	position      *transition.PositionTransitionable
	zoomCenter    *transition.PositionTransitionable
	zoomNorthEast *transition.PositionTransitionable
	zoomSouthWest *transition.PositionTransitionable
	zoomSpec      *transition.Spec
	clock         transition.Clock
	mapOptions    map[string]any
	onLoad        []func(*MapViewport)
	id            string
	cache         Cache
	state         State
	mapType       MapType
	invalidated   bool
}

// New creates a viewport for provider. The widget is mounted on the first Render.
func New(provider Provider, opts Options) (*MapViewport, error) {
	if opts.Type == 0 {
		opts.Type = GoogleMaps
	}
	if opts.Clock == nil {
		opts.Clock = transition.SystemClock{}
	}

	v := &MapViewport{
		provider:   provider,
		mapType:    opts.Type,
		clock:      opts.Clock,
		mapOptions: normalizeMapOptions(opts.MapOptions),
	}

	switch opts.Type {
	case GoogleMaps:
		world, ok := provider.(WorldProjection)
		if !ok {
			return nil, fmt.Errorf("%s provider %T lacks world projection", opts.Type, provider)
		}
		v.world = world
		v.zoomSpec = opts.ZoomTransition
		if v.zoomSpec == nil {
			v.zoomSpec = transition.WithDuration(DefaultZoomTransition)
		}
	case Leaflet:
		container, ok := provider.(ContainerProjection)
		if !ok {
			return nil, fmt.Errorf("%s provider %T lacks container projection", opts.Type, provider)
		}
		v.container = container
		// leaflet has no smooth zoom to follow
		v.zoomSpec = transition.WithDuration(0)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMapType, int(opts.Type))
	}

	center := centerOption(v.mapOptions)
	v.position = newTracker(opts.Clock, center)
	v.zoomCenter = newTracker(opts.Clock, center)
	v.zoomNorthEast = newTracker(opts.Clock, center)
	v.zoomSouthWest = newTracker(opts.Clock, center)

	switch {
	case opts.ID != "":
		v.id = opts.ID
		v.node = opts.Node
	case opts.Node != nil:
		v.id = nextID()
		v.node = opts.Node
	default:
		v.id = nextID()
		v.node = newSurface(v.id)
	}
	if v.node == nil {
		v.node = emptyNode{}
	}

	return v, nil
}

// ID returns the id of the container element.
func (v *MapViewport) ID() string { return v.id }

// Type returns the map type.
func (v *MapViewport) Type() MapType { return v.mapType }

// State returns the load state.
func (v *MapViewport) State() State { return v.state }

// Provider returns the map widget. It is only guaranteed to be usable once
// the viewport is Ready.
func (v *MapViewport) Provider() Provider { return v.provider }

// Cache returns a copy of the projection cache.
func (v *MapViewport) Cache() Cache { return v.cache }

// OnLoad registers fn to be called once the map is ready. It is called right
// away when the map already is.
func (v *MapViewport) OnLoad(fn func(*MapViewport)) {
	if v.state == Ready {
		fn(v)
		return
	}
	v.onLoad = append(v.onLoad, fn)
}

// SetPosition moves the map center, through the chain of center transitions.
func (v *MapViewport) SetPosition(position geo.Position, spec *transition.Spec, done func()) *MapViewport {
	v.position.Set(position, spec, done)
	v.invalidated = true
	return v
}

// SetZoom asks the widget to change its zoom level.
func (v *MapViewport) SetZoom(zoom float64) error {
	if v.state == Uninitialized {
		return ErrNotReady
	}
	v.provider.SetZoom(zoom)
	return nil
}

// Position returns the current map center, following zoom transitions.
func (v *MapViewport) Position() (geo.Position, bool) {
	return v.zoomCenter.Get()
}

// GeoPosition lets modifiers follow the map center.
func (v *MapViewport) GeoPosition() (geo.Position, bool) {
	return v.Position()
}

// FinalPosition returns the destination of the center transitions.
func (v *MapViewport) FinalPosition() (geo.Position, bool) {
	return v.position.Final()
}

// Zoom returns the zoom level including the smooth transition between levels.
func (v *MapViewport) Zoom() (float64, error) {
	if !v.ready() {
		return math.NaN(), ErrNotReady
	}
	return v.cache.Zoom, nil
}

// Size returns the size of the viewport in pixels.
func (v *MapViewport) Size() (geo.Point, error) {
	if !v.ready() {
		return geo.Point{}, ErrNotReady
	}
	return v.cache.Size, nil
}

// Halt stops center transitions.
func (v *MapViewport) Halt() {
	v.position.Halt()
	v.invalidated = true
}

// IsActive reports whether a center transition is running.
func (v *MapViewport) IsActive() bool {
	return v.position.IsActive()
}

// PointFromPosition returns the pixel position, relative to the top-left of
// the viewport, of a geographic position.
func (v *MapViewport) PointFromPosition(p geo.Position) (geo.Point, error) {
	if !v.ready() {
		return geo.Point{}, ErrNotReady
	}

	switch v.mapType {
	case GoogleMaps:
		wp := v.world.FromLatLngToPoint(p)
		return geo.Point{
			X: (wp.X - v.cache.BottomLeft.X) * v.cache.Scale,
			Y: (wp.Y - v.cache.TopRight.Y) * v.cache.Scale,
		}, nil
	default:
		return v.container.LatLngToContainerPoint(p), nil
	}
}

// PositionFromPoint returns the geographic position of a pixel relative to
// the top-left of the viewport.
func (v *MapViewport) PositionFromPoint(pt geo.Point) (geo.Position, error) {
	if !v.ready() {
		return geo.Position{}, ErrNotReady
	}

	switch v.mapType {
	case GoogleMaps:
		return v.world.FromPointToLatLng(geo.Point{
			X: (pt.X / v.cache.Scale) + v.cache.BottomLeft.X,
			Y: (pt.Y / v.cache.Scale) + v.cache.TopRight.Y,
		}), nil
	default:
		return v.container.ContainerPointToLatLng(pt), nil
	}
}

// Render runs the frame update and returns the render output of the
// container node.
func (v *MapViewport) Render(ts time.Time) any {
	v.Update(ts)
	return v.node.Render()
}

// Update runs the per-frame viewport update at ts (now when zero). Every
// tracker is sampled at ts; transitions started during the update begin at
// clock time.
func (v *MapViewport) Update(ts time.Time) {
	if ts.IsZero() {
		ts = v.clock.Now()
	}

	if v.state == Uninitialized {
		v.mount()
		if v.state == Uninitialized {
			return
		}
	}

	v.provider.Sync(ts)
	if v.state != Ready {
		return
	}

	info := v.mapInfo()
	invalidate := false

	switch {
	case !v.cache.Valid:
		v.resetZoomTrackers(info)
	case info.Zoom != v.cache.FinalZoom:
		// follow the provider's zoom animation with the projection cache
		v.zoomNorthEast.Halt()
		v.zoomSouthWest.Halt()
		v.zoomCenter.Halt()
		v.zoomNorthEast.Set(info.NorthEast, v.zoomSpec, nil)
		v.zoomSouthWest.Set(info.SouthWest, v.zoomSpec, nil)
		v.zoomCenter.Set(info.Center, v.zoomSpec, nil)
		invalidate = true
		log.Trace().
			Float64("from", v.cache.FinalZoom).
			Float64("to", info.Zoom).
			Str("id", v.id).
			Msg("Zoom changed, starting zoom transition")
	case !v.zoomNorthEast.IsActive():
		v.resetZoomTrackers(info)
	default:
		// keeps IsActive current
		v.zoomNorthEast.GetAt(ts)
		invalidate = true
	}

	if invalidate || !v.cache.Valid ||
		info.Zoom != v.cache.FinalZoom ||
		!geo.Equals(info.NorthEast, v.cache.FinalNorthEast) ||
		!geo.Equals(info.SouthWest, v.cache.FinalSouthWest) {
		v.updateCache(info, ts)
	}

	if v.position.IsActive() || v.invalidated {
		v.invalidated = false
		if center, ok := v.position.GetAt(ts); ok {
			v.provider.SetCenter(center)
		}
	} else {
		v.position.Reset(info.Center)
	}
}

func (v *MapViewport) ready() bool {
	return v.state == Ready && v.cache.Valid
}

func (v *MapViewport) mount() {
	if err := v.provider.Mount(v.id, v.mapOptions); err != nil {
		log.Debug().Err(err).Str("id", v.id).Msg("Map container not available, retrying next frame")
		return
	}

	v.state = Loading
	log.Debug().
		Str("id", v.id).
		Str("type", v.mapType.String()).
		Msg("Map widget created, waiting for projection")

	v.provider.OnProjectionReady(v.markReady)
}

func (v *MapViewport) markReady() {
	if v.state == Ready {
		return
	}
	v.state = Ready

	log.Info().
		Str("id", v.id).
		Str("type", v.mapType.String()).
		Msg("Map loaded")

	listeners := v.onLoad
	v.onLoad = nil
	for _, fn := range listeners {
		fn(v)
	}
}

// mapInfo polls the provider. GoogleMaps bounds come back wrapped to
// [-180, 180] and are unwrapped around the center so the pixel projection
// stays linear across the date line.
func (v *MapViewport) mapInfo() mapInfo {
	info := mapInfo{
		Zoom:   v.provider.Zoom(),
		Center: v.provider.Center(),
	}
	info.NorthEast, info.SouthWest = v.provider.Bounds()

	if v.mapType == GoogleMaps {
		info.NorthEast, info.SouthWest = geo.UnwrapBounds(info.Center, info.NorthEast, info.SouthWest)
	}
	return info
}

func (v *MapViewport) resetZoomTrackers(info mapInfo) {
	v.zoomNorthEast.Reset(info.NorthEast)
	v.zoomSouthWest.Reset(info.SouthWest)
	v.zoomCenter.Reset(info.Center)
}

func (v *MapViewport) updateCache(info mapInfo, ts time.Time) {
	c := &v.cache
	c.FinalZoom = info.Zoom
	c.FinalScale = math.Pow(2, info.Zoom)
	c.FinalNorthEast = info.NorthEast
	c.FinalSouthWest = info.SouthWest

	switch v.mapType {
	case GoogleMaps:
		topRight := v.world.FromLatLngToPoint(info.NorthEast)
		bottomLeft := v.world.FromLatLngToPoint(info.SouthWest)
		c.Size = geo.Point{
			X: (topRight.X - bottomLeft.X) * c.FinalScale,
			Y: (bottomLeft.Y - topRight.Y) * c.FinalScale,
		}

		northEast, _ := v.zoomNorthEast.GetAt(ts)
		southWest, _ := v.zoomSouthWest.GetAt(ts)
		c.TopRight = v.world.FromLatLngToPoint(northEast)
		c.BottomLeft = v.world.FromLatLngToPoint(southWest)

		c.Scale = c.FinalScale
		if width := c.TopRight.X - c.BottomLeft.X; width > 0 {
			c.Scale = c.Size.X / width
		}
		c.Zoom = math.Log2(c.Scale)
	default:
		c.Size = v.provider.Size()
		c.Scale = c.FinalScale
		c.Zoom = info.Zoom
	}
	c.Valid = true

	log.Trace().
		Str("id", v.id).
		Float64("zoom", c.Zoom).
		Float64("scale", c.Scale).
		Msg("Projection cache updated")
}

func newTracker(clock transition.Clock, p geo.Position) *transition.PositionTransitionable {
	t := transition.NewPositionTransitionable(clock)
	t.Reset(p)
	return t
}

// normalizeMapOptions copies the options and fills in center and zoom.
func normalizeMapOptions(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, val := range in {
		out[k] = val
	}
	if _, ok := out["center"]; !ok {
		out["center"] = DefaultCenter
	}
	if _, ok := out["zoom"]; !ok {
		out["zoom"] = DefaultZoom
	}
	return out
}

// centerOption reads the center from map options, which may come from code
// (any geo shape) or from a decoded config ({lat, lng} map).
func centerOption(opts map[string]any) geo.Position {
	return PositionOption(opts, "center", DefaultCenter)
}

// PositionOption reads a position from provider options.
func PositionOption(opts map[string]any, key string, def geo.Position) geo.Position {
	raw, ok := opts[key]
	if !ok {
		return def
	}
	if p, ok := geo.Resolve(raw); ok {
		return p
	}
	if m, ok := raw.(map[string]any); ok {
		lat, okLat := NumberOption(m, "lat")
		lng, okLng := NumberOption(m, "lng")
		if okLat && okLng {
			return geo.Position{Lat: lat, Lng: lng}
		}
	}
	return def
}

// NumberOption reads a number from provider options.
func NumberOption(opts map[string]any, key string) (float64, bool) {
	switch n := opts[key].(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
