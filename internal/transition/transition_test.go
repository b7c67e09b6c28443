package transition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/geoview/internal/geo"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestPositionTransitionDuration(t *testing.T) {
	clock := NewManualClock(epoch)
	tr := NewPositionTransition(clock)

	start := geo.Position{Lat: 10, Lng: 20}
	end := geo.Position{Lat: 20, Lng: 40}
	tr.Reset(start)
	tr.Set(end, WithDuration(time.Second), nil)
	require.True(t, tr.IsActive())

	assert.Equal(t, start, tr.Get(epoch.Add(-time.Second)))
	assert.Equal(t, start, tr.Get(epoch))

	mid := tr.Get(epoch.Add(500 * time.Millisecond))
	assert.InDelta(t, 15.0, mid.Lat, 1e-9)
	assert.InDelta(t, 30.0, mid.Lng, 1e-9)

	assert.Equal(t, end, tr.Get(epoch.Add(time.Second)))
	assert.False(t, tr.IsActive())
}

func TestPositionTransitionHoldsStartBeforeStartTime(t *testing.T) {
	clock := NewManualClock(epoch)
	tr := NewPositionTransition(clock)
	tr.Reset(geo.Position{Lat: 1, Lng: 1})
	tr.Set(geo.Position{Lat: 2, Lng: 2}, WithDuration(time.Second), nil)

	assert.Equal(t, geo.Position{Lat: 1, Lng: 1}, tr.Get(epoch.Add(-time.Hour)))
	assert.True(t, tr.IsActive())
}

func TestPositionTransitionSpeed(t *testing.T) {
	clock := NewManualClock(epoch)
	tr := NewPositionTransition(clock)
	start := geo.Position{Lat: 0, Lng: 0}
	end := geo.Position{Lat: 0, Lng: 1}

	tr.Reset(start)
	tr.Set(end, WithSpeed(111.19492664455873), nil)

	assert.InDelta(t, float64(time.Hour), float64(tr.Duration()), float64(time.Millisecond))
	assert.InDelta(t, 111.19, tr.DistanceKm(), 0.5)

	half := tr.Get(epoch.Add(30 * time.Minute))
	assert.InDelta(t, 0.5, half.Lng, 1e-3)
}

func TestPositionTransitionMapSpeedDefault(t *testing.T) {
	clock := NewManualClock(epoch)
	tr := NewPositionTransition(clock)
	tr.Reset(geo.Position{})
	tr.Set(geo.Position{Lng: 1}, &Spec{Method: "map-speed"}, nil)

	want := time.Duration(geo.DistanceKm(geo.Position{}, geo.Position{Lng: 1}) / DefaultSpeed * float64(time.Hour))
	assert.Equal(t, want, tr.Duration())
}

func TestPositionTransitionIdempotentGet(t *testing.T) {
	clock := NewManualClock(epoch)
	tr := NewPositionTransition(clock)
	tr.Reset(geo.Position{})
	tr.Set(geo.Position{Lat: 10, Lng: 10}, WithDuration(time.Second), nil)

	first := tr.Get(epoch.Add(300 * time.Millisecond))
	assert.Equal(t, first, tr.Get(epoch.Add(300*time.Millisecond)))
	assert.Equal(t, first, tr.Get(epoch.Add(100*time.Millisecond)))
}

func TestPositionTransitionLazyCallback(t *testing.T) {
	clock := NewManualClock(epoch)
	tr := NewPositionTransition(clock)
	tr.Reset(geo.Position{})

	calls := 0
	tr.Set(geo.Position{Lat: 1}, WithDuration(time.Second), func() { calls++ })

	end := tr.Get(epoch.Add(2 * time.Second))
	assert.Equal(t, geo.Position{Lat: 1}, end)
	assert.False(t, tr.IsActive())
	assert.Equal(t, 0, calls, "callback must wait for the next Get")

	tr.Get(epoch.Add(3 * time.Second))
	assert.Equal(t, 1, calls)

	tr.Get(epoch.Add(4 * time.Second))
	assert.Equal(t, 1, calls)
}

func TestPositionTransitionZeroDuration(t *testing.T) {
	clock := NewManualClock(epoch)
	tr := NewPositionTransition(clock)
	tr.Reset(geo.Position{})
	tr.Get(epoch)

	tr.Set(geo.Position{Lat: 5}, WithDuration(0), nil)
	assert.True(t, tr.IsActive())
	assert.Equal(t, geo.Position{Lat: 5}, tr.Get(time.Time{}))
	assert.False(t, tr.IsActive())
}

func TestPositionTransitionPreemptedCallback(t *testing.T) {
	clock := NewManualClock(epoch)
	tr := NewPositionTransition(clock)
	tr.Reset(geo.Position{})

	first, second := 0, 0
	tr.Set(geo.Position{Lat: 1}, WithDuration(time.Second), func() { first++ })
	clock.Advance(500 * time.Millisecond)
	tr.Set(geo.Position{Lat: 2}, WithDuration(time.Second), func() { second++ })

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	assert.InDelta(t, 0.5, tr.Get(epoch.Add(500*time.Millisecond)).Lat, 1e-9)

	tr.Get(epoch.Add(5 * time.Second))
	tr.Get(epoch.Add(6 * time.Second))
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestPositionTransitionSetWithoutSpec(t *testing.T) {
	tr := NewPositionTransition(NewManualClock(epoch))

	called := false
	tr.Set(geo.Position{Lat: 3, Lng: 4}, nil, func() { called = true })

	assert.True(t, called)
	assert.False(t, tr.IsActive())
	assert.Equal(t, geo.Position{Lat: 3, Lng: 4}, tr.Get(time.Time{}))
}

func TestPositionTransitionHalt(t *testing.T) {
	clock := NewManualClock(epoch)
	tr := NewPositionTransition(clock)
	tr.Reset(geo.Position{})

	calls := 0
	tr.Set(geo.Position{Lat: 10}, WithDuration(time.Second), func() { calls++ })
	clock.Advance(250 * time.Millisecond)
	tr.Halt()

	assert.False(t, tr.IsActive())
	assert.Equal(t, 1, calls)
	frozen := tr.Get(time.Time{})
	assert.InDelta(t, 2.5, frozen.Lat, 1e-9)

	clock.Advance(time.Second)
	assert.Equal(t, frozen, tr.Get(time.Time{}))
}

func TestPositionTransitionResetKeepsLegStartedByCallback(t *testing.T) {
	clock := NewManualClock(epoch)
	tr := NewPositionTransition(clock)
	tr.Reset(geo.Position{})

	var seen geo.Position
	tr.Set(geo.Position{Lng: 1}, WithDuration(time.Second), func() {
		seen = tr.Get(time.Time{})
		tr.Set(geo.Position{Lng: 10}, WithDuration(time.Second), nil)
	})
	clock.Advance(500 * time.Millisecond)
	tr.Reset(geo.Position{Lng: 0.5})

	assert.Equal(t, geo.Position{Lng: 0.5}, seen, "callback runs after the reset state is applied")
	require.True(t, tr.IsActive())

	clock.Advance(100 * time.Millisecond)
	assert.InDelta(t, 0.5+9.5*0.1, tr.Get(time.Time{}).Lng, 1e-9)
}

func TestSpringTransitionResetKeepsLegStartedByCallback(t *testing.T) {
	clock := NewManualClock(epoch)
	sp := NewSpringTransition(clock)
	sp.Reset(geo.Position{})

	sp.Set(geo.Position{Lng: 1}, &Spec{Method: "spring"}, func() {
		sp.Set(geo.Position{Lng: 10}, &Spec{Method: "spring"}, nil)
	})
	clock.Advance(50 * time.Millisecond)
	sp.Reset(geo.Position{Lng: 0.5})
	require.True(t, sp.IsActive())

	for i := 0; i < 500 && sp.IsActive(); i++ {
		clock.Advance(16 * time.Millisecond)
		sp.Get(time.Time{})
	}
	assert.Equal(t, geo.Position{Lng: 10}, sp.Get(time.Time{}))
}

func TestPositionTransitionCurve(t *testing.T) {
	clock := NewManualClock(epoch)
	tr := NewPositionTransition(clock)
	tr.Reset(geo.Position{})
	tr.Set(geo.Position{Lat: 1}, &Spec{Duration: time.Second, Curve: "outQuad"}, nil)

	assert.InDelta(t, 0.75, tr.Get(epoch.Add(500*time.Millisecond)).Lat, 1e-9)
}

func TestCurves(t *testing.T) {
	for _, name := range []string{"linear", "inQuad", "outQuad", "inOutQuad", "outBack"} {
		c := CurveByName(name)
		assert.InDelta(t, 0.0, c(0), 1e-9, name)
		assert.InDelta(t, 1.0, c(1), 1e-9, name)
	}
	assert.Equal(t, 0.3, CurveByName("nope")(0.3))
}

func TestSpringTransitionSettles(t *testing.T) {
	clock := NewManualClock(epoch)
	sp := NewSpringTransition(clock)
	sp.Reset(geo.Position{})

	done := 0
	sp.Set(geo.Position{Lat: 1, Lng: -1}, &Spec{Method: "spring", Params: map[string]float64{"period": 200, "dampingRatio": 0.8}}, func() { done++ })

	moving := sp.Get(clock.Advance(50 * time.Millisecond))
	assert.Greater(t, moving.Lat, 0.0)
	assert.Less(t, moving.Lng, 0.0)

	for i := 0; i < 200 && sp.IsActive(); i++ {
		sp.Get(clock.Advance(16 * time.Millisecond))
	}
	require.False(t, sp.IsActive())
	assert.Equal(t, geo.Position{Lat: 1, Lng: -1}, sp.Get(time.Time{}))
	assert.Equal(t, 1, done)
}

func TestRegistry(t *testing.T) {
	_, err := Lookup("does-not-exist")
	assert.ErrorIs(t, err, ErrUnknownMethod)

	RegisterMethod("test-jump", func(clock Clock) Driver { return NewPositionTransition(clock) })
	f, err := Lookup("test-jump")
	require.NoError(t, err)
	assert.NotNil(t, f(nil))
	assert.Contains(t, Methods(), "spring")
	assert.Contains(t, Methods(), "map-speed")
}
