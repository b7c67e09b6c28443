package transition

import (
	"time"

	"github.com/woozymasta/geoview/internal/geo"
)

// PositionTransition interpolates between two geographic positions, either
// over a fixed duration or at a fixed speed over the great-circle distance.
type PositionTransition struct {
	clock      Clock
	curve      Curve
	callback   func()
	startTime  time.Time
	updateTime time.Time
	state      geo.Position
	startState geo.Position
	endState   geo.Position
	duration   time.Duration
	distance   float64
	active     bool
}

// NewPositionTransition creates an inactive transition at (0, 0).
func NewPositionTransition(clock Clock) *PositionTransition {
	if clock == nil {
		clock = SystemClock{}
	}
	return &PositionTransition{clock: clock, curve: CurveByName("")}
}

// Reset jumps to state. A pending completion callback is invoked last, so a
// transition it starts is kept.
func (t *PositionTransition) Reset(state geo.Position) {
	callback := t.callback
	t.callback = nil

	t.state = state
	t.startTime = time.Time{}
	t.updateTime = time.Time{}
	t.startState = state
	t.endState = state
	t.duration = 0
	t.distance = 0
	t.active = false

	if callback != nil {
		callback()
	}
}

// Set starts a transition from the current position to state. Without a spec
// it resets to state and calls done right away.
func (t *PositionTransition) Set(state geo.Position, spec *Spec, done func()) {
	if spec == nil {
		t.Reset(state)
		if done != nil {
			done()
		}
		return
	}

	preempted := t.callback
	t.callback = nil
	t.startState = t.Get(time.Time{})

	t.startTime = t.clock.Now()
	t.updateTime = time.Time{}
	t.endState = state
	t.active = true
	t.callback = done
	t.curve = CurveByName(spec.Curve)
	t.distance = geo.DistanceKm(t.startState, t.endState)
	t.duration = spec.durationFor(t.distance)

	// preempted legs are resolved, not dropped
	if preempted != nil {
		preempted()
	}
}

// Get returns the position at ts, or now when ts is zero. Repeated calls with
// the same or an earlier timestamp return the cached position.
func (t *PositionTransition) Get(ts time.Time) geo.Position {
	if !t.active {
		t.fire()
		return t.state
	}

	if ts.IsZero() {
		ts = t.clock.Now()
	}
	if !t.updateTime.IsZero() && !ts.After(t.updateTime) {
		return t.state
	}
	t.updateTime = ts

	elapsed := ts.Sub(t.startTime)
	switch {
	case elapsed >= t.duration:
		t.state = t.endState
		t.active = false
	case elapsed < 0:
		t.state = t.startState
	default:
		f := t.curve(float64(elapsed) / float64(t.duration))
		t.state = geo.Position{
			Lat: interpolate(t.startState.Lat, t.endState.Lat, f),
			Lng: interpolate(t.startState.Lng, t.endState.Lng, f),
		}
	}

	return t.state
}

// IsActive reports whether a transition is in progress.
func (t *PositionTransition) IsActive() bool {
	return t.active
}

// Halt freezes the transition at its current position.
func (t *PositionTransition) Halt() {
	t.Set(t.Get(time.Time{}), nil, nil)
}

// Duration returns the duration of the current leg.
func (t *PositionTransition) Duration() time.Duration {
	return t.duration
}

// DistanceKm returns the great-circle length of the current leg.
func (t *PositionTransition) DistanceKm() float64 {
	return t.distance
}

func (t *PositionTransition) fire() {
	if t.callback == nil {
		return
	}
	callback := t.callback
	t.callback = nil
	callback()
}
