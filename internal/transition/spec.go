// Package transition animates geographic positions over time.
//
// A PositionTransition interpolates a single leg, either over a fixed duration
// or at a fixed real-world speed. A Transitionable chains legs in a FIFO queue,
// each leg driven by a Driver picked from the method registry. The
// PositionTransitionable wrapper adds the distinction between the live value
// and the final target.
package transition

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/woozymasta/geoview/internal/geo"
)

// DefaultSpeed is the speed in km/h of "map-speed" specs that leave speed unset.
const DefaultSpeed = 1000.0

// ErrUnknownMethod is returned when a spec names a method that was never registered.
var ErrUnknownMethod = errors.New("unknown transition method")

// Spec describes how to transition towards a new position.
// A nil *Spec means an immediate jump.
type Spec struct {
	Params   map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
	Method   string             `yaml:"method,omitempty" json:"method,omitempty"`
	Curve    string             `yaml:"curve,omitempty" json:"curve,omitempty"`
	Duration time.Duration      `yaml:"duration,omitempty" json:"duration,omitempty"`
	Speed    float64            `yaml:"speed,omitempty" json:"speed,omitempty"` // km/h
}

// WithDuration returns a spec interpolating linearly over d.
func WithDuration(d time.Duration) *Spec {
	return &Spec{Duration: d}
}

// WithSpeed returns a spec travelling at kmh kilometers per hour.
func WithSpeed(kmh float64) *Spec {
	return &Spec{Speed: kmh}
}

// Param returns a driver parameter or def when it is not set.
func (s *Spec) Param(name string, def float64) float64 {
	if s == nil || s.Params == nil {
		return def
	}
	if v, ok := s.Params[name]; ok {
		return v
	}
	return def
}

// durationFor returns how long a leg of distanceKm takes.
func (s *Spec) durationFor(distanceKm float64) time.Duration {
	speed := s.Speed
	if speed <= 0 && s.Method == "map-speed" {
		speed = DefaultSpeed
	}
	if speed > 0 {
		return time.Duration((distanceKm / speed) * float64(time.Hour))
	}

	return s.Duration
}

// Curve maps linear progress in [0, 1] to eased progress.
type Curve func(t float64) float64

var curves = map[string]Curve{
	"linear": func(t float64) float64 { return t },
	"inQuad": func(t float64) float64 { return t * t },
	"outQuad": func(t float64) float64 {
		return -(t - 2) * t
	},
	"inOutQuad": func(t float64) float64 {
		t *= 2
		if t < 1 {
			return 0.5 * t * t
		}
		t--
		return -0.5 * (t*(t-2) - 1)
	},
	"outBack": func(t float64) float64 {
		const s = 1.70158
		t--
		return t*t*((s+1)*t+s) + 1
	},
}

// CurveByName returns the named easing curve, linear when the name is unknown.
func CurveByName(name string) Curve {
	if c, ok := curves[name]; ok {
		return c
	}
	return curves["linear"]
}

// Driver animates one leg of a transition. Completion callbacks fire on the
// first Get after the leg reached its end, never synchronously at completion.
type Driver interface {
	Reset(state geo.Position)
	Set(state geo.Position, spec *Spec, done func())
	Get(ts time.Time) geo.Position
	IsActive() bool
	Halt()
}

// DriverFactory creates a driver sampling the given clock.
type DriverFactory func(clock Clock) Driver

var (
	methods   = map[string]DriverFactory{}
	methodsMu sync.RWMutex
)

func init() {
	linear := func(clock Clock) Driver { return NewPositionTransition(clock) }
	RegisterMethod("", linear)
	RegisterMethod("tween", linear)
	RegisterMethod("map-speed", linear)
	RegisterMethod("spring", func(clock Clock) Driver { return NewSpringTransition(clock) })
}

// RegisterMethod makes a driver available under name. Registering an existing
// name replaces it.
func RegisterMethod(name string, factory DriverFactory) {
	methodsMu.Lock()
	methods[name] = factory
	methodsMu.Unlock()
}

// Lookup returns the driver factory registered under name.
func Lookup(name string) (DriverFactory, error) {
	methodsMu.RLock()
	defer methodsMu.RUnlock()

	f, ok := methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
	return f, nil
}

// Methods lists the registered method names.
func Methods() []string {
	methodsMu.RLock()
	defer methodsMu.RUnlock()

	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func interpolate(a, b, t float64) float64 {
	return ((1 - t) * a) + (t * b)
}

func nearlyEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
