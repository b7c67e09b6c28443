package transition

import (
	"math"
	"time"

	"github.com/woozymasta/geoview/internal/geo"
)

const (
	defaultSpringPeriod  = 300.0 // ms
	defaultSpringDamping = 0.5
	springStep           = 4.0 // ms
	springRestThreshold  = 1e-7
)

// SpringTransition moves towards the end position as a damped spring.
// It is registered as the "spring" method and reads the "period" (ms) and
// "dampingRatio" parameters of the spec.
type SpringTransition struct {
	clock      Clock
	callback   func()
	updateTime time.Time
	state      geo.Position
	velocity   geo.Position // degrees per ms
	endState   geo.Position
	period     float64
	damping    float64
	active     bool
}

// NewSpringTransition creates an inactive spring at (0, 0).
func NewSpringTransition(clock Clock) *SpringTransition {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SpringTransition{clock: clock, period: defaultSpringPeriod, damping: defaultSpringDamping}
}

// Reset jumps to state and stops the spring. A pending completion callback
// is invoked last.
func (s *SpringTransition) Reset(state geo.Position) {
	callback := s.callback
	s.callback = nil

	s.state = state
	s.endState = state
	s.velocity = geo.Position{}
	s.updateTime = time.Time{}
	s.active = false

	if callback != nil {
		callback()
	}
}

// Set attaches the spring to a new anchor.
func (s *SpringTransition) Set(state geo.Position, spec *Spec, done func()) {
	if spec == nil {
		s.Reset(state)
		if done != nil {
			done()
		}
		return
	}

	preempted := s.callback
	s.callback = nil
	s.state = s.Get(time.Time{})

	s.period = spec.Param("period", defaultSpringPeriod)
	if s.period <= 0 {
		s.period = defaultSpringPeriod
	}
	s.damping = spec.Param("dampingRatio", defaultSpringDamping)
	s.endState = state
	s.callback = done
	s.updateTime = s.clock.Now()
	s.active = true

	if preempted != nil {
		preempted()
	}
}

// Get advances the spring to ts, or now when ts is zero.
func (s *SpringTransition) Get(ts time.Time) geo.Position {
	if !s.active {
		s.fire()
		return s.state
	}

	if ts.IsZero() {
		ts = s.clock.Now()
	}
	if !ts.After(s.updateTime) {
		return s.state
	}

	dt := float64(ts.Sub(s.updateTime)) / float64(time.Millisecond)
	s.updateTime = ts

	omega := 2 * math.Pi / s.period
	k := omega * omega
	c := 2 * s.damping * omega

	for dt > 0 {
		step := math.Min(dt, springStep)
		dt -= step

		s.velocity.Lat += (-k*(s.state.Lat-s.endState.Lat) - c*s.velocity.Lat) * step
		s.velocity.Lng += (-k*(s.state.Lng-s.endState.Lng) - c*s.velocity.Lng) * step
		s.state.Lat += s.velocity.Lat * step
		s.state.Lng += s.velocity.Lng * step
	}

	if s.atRest() {
		s.state = s.endState
		s.velocity = geo.Position{}
		s.active = false
	}

	return s.state
}

// IsActive reports whether the spring is still moving.
func (s *SpringTransition) IsActive() bool {
	return s.active
}

// Halt stops the spring where it is.
func (s *SpringTransition) Halt() {
	s.Set(s.Get(time.Time{}), nil, nil)
}

func (s *SpringTransition) atRest() bool {
	return nearlyEqual(s.state.Lat, s.endState.Lat, springRestThreshold) &&
		nearlyEqual(s.state.Lng, s.endState.Lng, springRestThreshold) &&
		nearlyEqual(s.velocity.Lat, 0, springRestThreshold) &&
		nearlyEqual(s.velocity.Lng, 0, springRestThreshold)
}

func (s *SpringTransition) fire() {
	if s.callback == nil {
		return
	}
	callback := s.callback
	s.callback = nil
	callback()
}
