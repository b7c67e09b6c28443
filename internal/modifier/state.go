package modifier

import (
	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/transform"
	"github.com/woozymasta/geoview/internal/transition"
)

// StateOptions configures a new GeoStateModifier.
type StateOptions struct {
	Position      *geo.Position
	RotateTowards *geo.Position
	Offset        *geo.Position
	ZoomBase      *float64
	ZoomScale     ZoomScale
	Clock         transition.Clock
}

// GeoStateModifier animates the position and rotate-towards target of
// renderables, feeding the live values into an internal GeoModifier.
type GeoStateModifier struct {
	position      *transition.PositionTransitionable
	rotateTowards *transition.PositionTransitionable
	modifier      *GeoModifier
	// follow overrides rotateTowards while set
	follow Source
	// rendered is the position the last Modify pulled
	rendered    geo.Position
	hasRendered bool
}

// NewGeoStateModifier creates a state modifier attached to viewport.
func NewGeoStateModifier(viewport Viewport, opts StateOptions) *GeoStateModifier {
	m := &GeoStateModifier{
		position:      transition.NewPositionTransitionable(opts.Clock),
		rotateTowards: transition.NewPositionTransitionable(opts.Clock),
		modifier:      NewGeoModifier(viewport, Options{}),
	}

	if opts.Position != nil {
		m.SetPosition(*opts.Position, nil, nil)
	}
	if opts.RotateTowards != nil {
		m.RotateTowards(*opts.RotateTowards, nil, nil)
	}
	if opts.Offset != nil {
		m.SetOffset(*opts.Offset)
	}
	if opts.ZoomBase != nil {
		m.SetZoomBase(*opts.ZoomBase)
	}
	if !opts.ZoomScale.IsZero() {
		m.SetZoomScale(opts.ZoomScale)
	}

	return m
}

// SetPosition adds position to the chain of position transitions.
func (m *GeoStateModifier) SetPosition(position geo.Position, spec *transition.Spec, done func()) *GeoStateModifier {
	m.position.Set(position, spec, done)
	return m
}

// RotateTowards adds position to the chain of rotate-towards transitions.
func (m *GeoStateModifier) RotateTowards(position geo.Position, spec *transition.Spec, done func()) *GeoStateModifier {
	m.follow = None()
	m.rotateTowards.Set(position, spec, done)
	return m
}

// Face keeps the renderable rotated towards another positioner, such as
// another modifier or the viewport center, until RotateTowards is called.
func (m *GeoStateModifier) Face(p Positioner) *GeoStateModifier {
	m.follow = Delegate(p)
	return m
}

// SetOffset sets a displacement in degrees added to the position.
func (m *GeoStateModifier) SetOffset(offset geo.Position) *GeoStateModifier {
	m.modifier.SetOffset(Literal(offset))
	return m
}

// SetZoomBase enables auto-scaling around zoomBase.
func (m *GeoStateModifier) SetZoomBase(zoomBase float64) *GeoStateModifier {
	m.modifier.SetZoomBase(zoomBase)
	return m
}

// SetZoomScale sets the zoom scaling.
func (m *GeoStateModifier) SetZoomScale(z ZoomScale) *GeoStateModifier {
	m.modifier.SetZoomScale(z)
	return m
}

// SetDefaultTransition sets the spec used by SetPosition calls without one.
func (m *GeoStateModifier) SetDefaultTransition(spec *transition.Spec) {
	m.position.SetDefaultTransition(spec)
}

// Position returns the current, possibly interpolated, position.
func (m *GeoStateModifier) Position() (geo.Position, bool) {
	return m.position.Get()
}

// RenderedPosition returns the position pulled by the last Modify call,
// without advancing the position chain again.
func (m *GeoStateModifier) RenderedPosition() (geo.Position, bool) {
	return m.rendered, m.hasRendered
}

// GeoPosition lets other modifiers follow this one.
func (m *GeoStateModifier) GeoPosition() (geo.Position, bool) {
	return m.position.Get()
}

// CurrentRotateTowards returns the current rotate-towards target.
func (m *GeoStateModifier) CurrentRotateTowards() (geo.Position, bool) {
	if m.follow.IsSet() {
		return m.follow.Resolve()
	}
	return m.rotateTowards.Get()
}

// FinalPosition returns the destination of the position chain.
func (m *GeoStateModifier) FinalPosition() (geo.Position, bool) {
	return m.position.Final()
}

// FinalRotateTowards returns the destination of the rotate-towards chain.
func (m *GeoStateModifier) FinalRotateTowards() (geo.Position, bool) {
	return m.rotateTowards.Final()
}

// Offset returns the offset source.
func (m *GeoStateModifier) Offset() Source { return m.modifier.Offset() }

// ZoomBase returns the zoom base and whether it is set.
func (m *GeoStateModifier) ZoomBase() (float64, bool) { return m.modifier.ZoomBase() }

// ZoomScale returns the zoom scaling.
func (m *GeoStateModifier) ZoomScale() ZoomScale { return m.modifier.ZoomScale() }

// IsActive reports whether a position or rotation transition is running.
func (m *GeoStateModifier) IsActive() bool {
	return m.position.IsActive() || m.rotateTowards.IsActive()
}

// Halt stops both chains at their current values.
func (m *GeoStateModifier) Halt() {
	m.position.Halt()
	m.rotateTowards.Halt()
}

// Modify pulls the current position and rotate-towards target into the
// internal modifier and returns its render spec.
func (m *GeoStateModifier) Modify(target any) transform.RenderSpec {
	p, ok := m.position.Get()
	m.rendered, m.hasRendered = p, ok
	if ok {
		m.modifier.SetPosition(Literal(p))
	} else {
		m.modifier.SetPosition(None())
	}

	if p, ok := m.CurrentRotateTowards(); ok {
		m.modifier.SetRotateTowards(Literal(p))
	} else {
		m.modifier.SetRotateTowards(None())
	}

	return m.modifier.Modify(target)
}
