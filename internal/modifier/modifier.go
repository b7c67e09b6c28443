// Package modifier positions renderables on a map by geographic coordinates.
//
// A GeoModifier turns a position, an optional rotate-towards target and an
// optional zoom base into a transform relative to the map viewport, once per
// frame. A GeoStateModifier adds animated, chainable position changes on top.
package modifier

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/transform"
)

// Viewport is the part of the map viewport a modifier needs.
type Viewport interface {
	PointFromPosition(p geo.Position) (geo.Point, error)
	Zoom() (float64, error)
}

// ZoomScale controls how renderables grow and shrink with the zoom level.
// The zero value scales by 2^(zoom-zoomBase).
type ZoomScale struct {
	fn     func(zoomBase, zoom float64) float64
	factor float64
}

// ZoomFactor scales linearly with the zoom difference by factor.
func ZoomFactor(factor float64) ZoomScale {
	return ZoomScale{factor: factor}
}

// ZoomFunc computes the scale with fn(zoomBase, currentZoom).
func ZoomFunc(fn func(zoomBase, zoom float64) float64) ZoomScale {
	return ZoomScale{fn: fn}
}

// IsZero reports whether the default scaling applies.
func (z ZoomScale) IsZero() bool {
	return z.fn == nil && z.factor == 0
}

// Factor returns the literal factor, zero when unset or a function.
func (z ZoomScale) Factor() float64 {
	return z.factor
}

func (z ZoomScale) scaling(zoomBase, current float64) float64 {
	switch {
	case z.fn != nil:
		return z.fn(zoomBase, current)
	case z.factor != 0:
		zoom := (current - zoomBase) + 1
		if zoom < 0 {
			return (1 / (math.Abs(zoom) + 1)) * z.factor
		}
		return (1 + zoom) * z.factor
	default:
		return math.Pow(2, current-zoomBase)
	}
}

type modifierCache struct {
	scale     transform.Matrix
	rotate    transform.Matrix
	translate transform.Matrix
	point     geo.Point
	scaling   float64
	rotation  float64
	hasScale  bool
	hasRotate bool
	hasPoint  bool
}

// GeoModifier computes the transform of renderables placed at a geographic
// position on a map viewport.
type GeoModifier struct {
	viewport      Viewport
	position      Source
	offset        Source
	rotateTowards Source
	zoomScale     ZoomScale
	output        transform.RenderSpec
	cache         modifierCache
	zoomBase      float64
	hasZoomBase   bool
}

// Options configures a new GeoModifier.
type Options struct {
	Position      Source
	Offset        Source
	RotateTowards Source
	ZoomScale     ZoomScale
	ZoomBase      *float64
}

// NewGeoModifier creates a modifier attached to viewport.
func NewGeoModifier(viewport Viewport, opts Options) *GeoModifier {
	m := &GeoModifier{
		viewport:      viewport,
		position:      opts.Position,
		offset:        opts.Offset,
		rotateTowards: opts.RotateTowards,
		zoomScale:     opts.ZoomScale,
		output:        transform.NewRenderSpec(),
	}
	if opts.ZoomBase != nil {
		m.SetZoomBase(*opts.ZoomBase)
	}
	return m
}

// SetPosition sets the geographic position of the renderables.
func (m *GeoModifier) SetPosition(s Source) *GeoModifier {
	m.position = s
	return m
}

// SetRotateTowards sets the position the renderables turn to. Renderables
// are assumed to face east when unrotated.
func (m *GeoModifier) SetRotateTowards(s Source) *GeoModifier {
	m.rotateTowards = s
	return m
}

// SetOffset sets a displacement in degrees added to the position.
func (m *GeoModifier) SetOffset(s Source) *GeoModifier {
	m.offset = s
	return m
}

// SetZoomBase enables auto-scaling: renderables show at their true size when
// the map zoom equals zoomBase.
func (m *GeoModifier) SetZoomBase(zoomBase float64) *GeoModifier {
	m.zoomBase = zoomBase
	m.hasZoomBase = true
	return m
}

// ClearZoomBase disables auto-scaling.
func (m *GeoModifier) ClearZoomBase() *GeoModifier {
	m.zoomBase = 0
	m.hasZoomBase = false
	return m
}

// SetZoomScale sets the zoom scaling, ignored without a zoom base.
func (m *GeoModifier) SetZoomScale(z ZoomScale) *GeoModifier {
	m.zoomScale = z
	return m
}

// Position returns the position source.
func (m *GeoModifier) Position() Source { return m.position }

// RotateTowards returns the rotate-towards source.
func (m *GeoModifier) RotateTowards() Source { return m.rotateTowards }

// Offset returns the offset source.
func (m *GeoModifier) Offset() Source { return m.offset }

// ZoomScale returns the zoom scaling.
func (m *GeoModifier) ZoomScale() ZoomScale { return m.zoomScale }

// ZoomBase returns the zoom base and whether it is set.
func (m *GeoModifier) ZoomBase() (float64, bool) {
	return m.zoomBase, m.hasZoomBase
}

// GeoPosition resolves the position, so a modifier can feed another one.
func (m *GeoModifier) GeoPosition() (geo.Position, bool) {
	return m.position.Resolve()
}

// Modify recomputes the transform for this frame and attaches it to target.
// Sub-transforms are only rebuilt when their inputs changed.
func (m *GeoModifier) Modify(target any) transform.RenderSpec {
	invalidated := m.updateScale()

	if position, ok := m.position.Resolve(); ok {
		if offset, ok := m.offset.Resolve(); ok {
			position = geo.Offset(position, offset)
		}
		if m.updateRotation(position) {
			invalidated = true
		}
		if m.updateTranslation(position) {
			invalidated = true
		}
	} else if m.cache.hasPoint {
		m.cache.hasPoint = false
		m.cache.point = geo.Point{}
		invalidated = true
	}

	if invalidated {
		m.output.Transform = m.compose()
	}

	m.output.Target = target
	return m.output
}

func (m *GeoModifier) updateScale() bool {
	if !m.hasZoomBase {
		if m.cache.hasScale {
			m.cache.hasScale = false
			m.cache.scaling = 0
			return true
		}
		return false
	}

	zoom, err := m.viewport.Zoom()
	if err != nil {
		log.Trace().Err(err).Msg("Zoom not available, keeping scale")
		return false
	}

	scaling := m.zoomScale.scaling(m.zoomBase, zoom)
	if m.cache.hasScale && m.cache.scaling == scaling {
		return false
	}

	m.cache.hasScale = true
	m.cache.scaling = scaling
	m.cache.scale = transform.Scale(scaling)
	return true
}

func (m *GeoModifier) updateRotation(position geo.Position) bool {
	target, ok := m.rotateTowards.Resolve()
	if !ok {
		if m.cache.hasRotate {
			m.cache.hasRotate = false
			m.cache.rotation = 0
			return true
		}
		return false
	}

	rotation := geo.Bearing(position, target)
	if m.cache.hasRotate && m.cache.rotation == rotation {
		return false
	}

	m.cache.hasRotate = true
	m.cache.rotation = rotation
	m.cache.rotate = transform.RotateZ(rotation)
	return true
}

func (m *GeoModifier) updateTranslation(position geo.Position) bool {
	point, err := m.viewport.PointFromPosition(position)
	if err != nil {
		log.Trace().Err(err).Msg("Viewport not ready, keeping translation")
		return false
	}

	if m.cache.hasPoint && m.cache.point == point {
		return false
	}

	m.cache.hasPoint = true
	m.cache.point = point
	m.cache.translate = transform.Translate(point.X, point.Y, 0)
	return true
}

// compose multiplies the present factors as translate·rotate·scale.
func (m *GeoModifier) compose() transform.Matrix {
	var (
		result transform.Matrix
		has    bool
	)

	if m.cache.hasScale {
		result, has = m.cache.scale, true
	}
	if m.cache.hasRotate {
		if has {
			result = transform.Multiply(m.cache.rotate, result)
		} else {
			result, has = m.cache.rotate, true
		}
	}
	if m.cache.hasPoint {
		if has {
			result = transform.Multiply(m.cache.translate, result)
		} else {
			result, has = m.cache.translate, true
		}
	}

	if !has {
		return transform.Identity()
	}
	return result
}
