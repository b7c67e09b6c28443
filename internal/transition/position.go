package transition

import (
	"time"

	"github.com/woozymasta/geoview/internal/geo"
)

// PositionTransitionable tracks both the final target of a chain of position
// transitions and its live interpolated value.
type PositionTransitionable struct {
	position *Transitionable
	final    geo.Position
	hasFinal bool
}

// NewPositionTransitionable creates a transitionable without a position.
func NewPositionTransitionable(clock Clock) *PositionTransitionable {
	return &PositionTransitionable{position: NewTransitionable(clock, geo.Position{})}
}

// SetDefaultTransition sets the spec used by Set calls without one.
func (p *PositionTransitionable) SetDefaultTransition(spec *Spec) {
	p.position.SetDefault(spec)
}

// Reset cancels all transitions and jumps to position.
func (p *PositionTransitionable) Reset(position geo.Position) {
	p.final = position
	p.hasFinal = true
	p.position.Reset(position)
}

// Set adds position to the chain of transitions.
func (p *PositionTransitionable) Set(position geo.Position, spec *Spec, done func()) {
	p.final = position
	p.hasFinal = true
	p.position.Set(position, spec, done)
}

// Get returns the live position while transitioning, the final one otherwise.
// The second result is false when no position was ever set.
func (p *PositionTransitionable) Get() (geo.Position, bool) {
	if p.IsActive() {
		return p.position.Get(), true
	}
	return p.final, p.hasFinal
}

// GetAt is Get evaluated at ts rather than now.
func (p *PositionTransitionable) GetAt(ts time.Time) (geo.Position, bool) {
	if p.IsActive() {
		return p.position.GetAt(ts), true
	}
	return p.final, p.hasFinal
}

// GeoPosition implements the position delegate used by modifiers.
func (p *PositionTransitionable) GeoPosition() (geo.Position, bool) {
	return p.Get()
}

// Final returns the destination of the chain.
func (p *PositionTransitionable) Final() (geo.Position, bool) {
	return p.final, p.hasFinal
}

// IsActive reports whether a transition is in progress.
func (p *PositionTransitionable) IsActive() bool {
	return p.position.IsActive()
}

// Halt stops at the current position, which becomes the new final position.
func (p *PositionTransitionable) Halt() {
	current, ok := p.Get()
	p.final, p.hasFinal = current, ok
	p.position.Reset(current)
}
