package transition

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geoview/internal/geo"
)

type action struct {
	spec   *Spec
	done   func()
	target geo.Position
}

// Transitionable chains position transitions. Every Set with a spec is queued
// and played after the previous ones, starting where the previous leg ended.
type Transitionable struct {
	clock    Clock
	driver   Driver
	defaults *Spec
	drivers  map[string]Driver
	queue    []action
	state    geo.Position
	gen      uint64
	active   bool
}

// NewTransitionable creates an idle transitionable at state.
func NewTransitionable(clock Clock, state geo.Position) *Transitionable {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Transitionable{
		clock:   clock,
		state:   state,
		drivers: make(map[string]Driver),
	}
}

// SetDefault sets the spec used by Set calls without one.
func (t *Transitionable) SetDefault(spec *Spec) {
	t.defaults = spec
}

// Reset cancels all transitions and jumps to state. The callbacks of the
// interrupted leg and of every queued leg are invoked afterwards, in order;
// legs they queue play normally.
func (t *Transitionable) Reset(state geo.Position) {
	t.gen++

	driver := t.driver
	queued := t.queue

	t.driver = nil
	t.queue = nil
	t.active = false
	t.state = state

	if driver != nil {
		driver.Reset(state)
	}
	for _, a := range queued {
		if a.done != nil {
			a.done()
		}
	}
}

// Set queues a transition to target. Without a spec (and without a default)
// it resets to target and calls done right away.
func (t *Transitionable) Set(target geo.Position, spec *Spec, done func()) {
	if spec == nil {
		spec = t.defaults
	}
	if spec == nil {
		t.Reset(target)
		if done != nil {
			done()
		}
		return
	}

	t.queue = append(t.queue, action{target: target, spec: spec, done: done})
	if !t.active {
		t.loadNext()
	}
}

// Get returns the current interpolated position.
func (t *Transitionable) Get() geo.Position {
	return t.GetAt(time.Time{})
}

// GetAt returns the interpolated position at ts, or now when ts is zero.
func (t *Transitionable) GetAt(ts time.Time) geo.Position {
	if t.driver != nil {
		t.state = t.driver.Get(ts)
	}
	return t.state
}

// IsActive reports whether a leg is playing or waiting to report completion.
func (t *Transitionable) IsActive() bool {
	return t.active
}

// Pending returns the number of queued legs after the current one.
func (t *Transitionable) Pending() int {
	return len(t.queue)
}

// Halt freezes at the current position and drops the queue.
func (t *Transitionable) Halt() {
	t.Reset(t.Get())
}

func (t *Transitionable) loadNext() {
	if len(t.queue) == 0 {
		t.active = false
		t.driver = nil
		return
	}

	a := t.queue[0]
	t.queue = t.queue[1:]
	t.active = true

	driver := t.driverFor(a.spec.Method)
	driver.Reset(t.state)
	t.driver = driver

	gen := t.gen
	driver.Set(a.target, a.spec, func() {
		if a.done != nil {
			a.done()
		}
		if gen == t.gen {
			t.loadNext()
		}
	})
}

func (t *Transitionable) driverFor(method string) Driver {
	if d, ok := t.drivers[method]; ok {
		return d
	}

	factory, err := Lookup(method)
	if err != nil {
		log.Debug().Err(err).Msg("Falling back to linear transition")
		factory, _ = Lookup("")
	}

	d := factory(t.clock)
	t.drivers[method] = d
	return d
}
