// Package scene plays a configured scene: a map viewport, the camera moves
// on it, simulated user input and markers animated along their routes.
package scene

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geoview/internal/config"
	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/provider"
	"github.com/woozymasta/geoview/internal/transform"
	"github.com/woozymasta/geoview/internal/transition"
	"github.com/woozymasta/geoview/internal/viewport"
)

// Frame is the render output of one marker.
type Frame struct {
	Name     string               `json:"name"`
	Spec     transform.RenderSpec `json:"spec"`
	Position geo.Position         `json:"position"`
	Point    geo.Point            `json:"point"`
	Active   bool                 `json:"active"`
}

// Track is the path a marker travelled, one point per frame it moved in.
type Track struct {
	Name   string         `json:"name"`
	Points []geo.Position `json:"points"`
}

// Options configures a Scene.
type Options struct {
	Clock transition.Clock
	// Provider overrides the headless provider matching the map type.
	Provider viewport.Provider
}

// Scene owns the viewport and the markers of a configuration.
type Scene struct {
	start    time.Time
	clock    transition.Clock
	provider viewport.Provider
	viewport *viewport.MapViewport
	byName   map[string]*Marker
	markers  []*Marker
	events   []config.Event
	next     int
}

// New builds a scene from cfg and queues its camera moves and routes.
func New(cfg *config.Config, opts Options) (*Scene, error) {
	if opts.Clock == nil {
		opts.Clock = transition.SystemClock{}
	}

	p := opts.Provider
	if p == nil {
		var err error
		if p, err = provider.New(cfg.Map.Type); err != nil {
			return nil, err
		}
	}

	vp, err := viewport.New(p, viewport.Options{
		Type:           cfg.Map.Type,
		MapOptions:     cfg.MapOptions(),
		ID:             cfg.Map.ID,
		ZoomTransition: cfg.Map.ZoomTransition,
		Clock:          opts.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("create viewport: %w", err)
	}

	s := &Scene{
		start:    opts.Clock.Now(),
		clock:    opts.Clock,
		provider: p,
		viewport: vp,
		byName:   make(map[string]*Marker, len(cfg.Markers)),
		markers:  make([]*Marker, 0, len(cfg.Markers)),
		events:   append([]config.Event(nil), cfg.Events...),
	}
	sort.SliceStable(s.events, func(i, j int) bool { return s.events[i].At < s.events[j].At })

	for _, mc := range cfg.Markers {
		m := newMarker(vp, mc, opts.Clock)
		s.markers = append(s.markers, m)
		s.byName[m.name] = m
	}
	for _, m := range s.markers {
		if m.cfg.RotateTowardsMarker == "" {
			continue
		}
		target, ok := s.byName[m.cfg.RotateTowardsMarker]
		if !ok {
			return nil, fmt.Errorf("marker %q: %w %q", m.name, config.ErrUnknownMarker, m.cfg.RotateTowardsMarker)
		}
		m.Face(target)
	}
	for _, m := range s.markers {
		m.start()
	}

	for i, leg := range cfg.Camera {
		i := i
		vp.SetPosition(leg.Position, leg.Transition, func() {
			log.Debug().Int("leg", i).Msg("Camera leg completed")
		})
	}

	log.Info().
		Str("map", cfg.Map.Type.String()).
		Int("markers", len(s.markers)).
		Int("camera", len(cfg.Camera)).
		Int("events", len(s.events)).
		Msg("Scene loaded")

	return s, nil
}

// Viewport returns the map viewport.
func (s *Scene) Viewport() *viewport.MapViewport { return s.viewport }

// Provider returns the map widget.
func (s *Scene) Provider() viewport.Provider { return s.provider }

// Clock returns the clock the scene animates with.
func (s *Scene) Clock() transition.Clock { return s.clock }

// Elapsed returns the scene time.
func (s *Scene) Elapsed() time.Duration { return s.clock.Now().Sub(s.start) }

// Marker returns a marker by name.
func (s *Scene) Marker(name string) (*Marker, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// Markers returns the markers in configuration order.
func (s *Scene) Markers() []*Marker {
	return append([]*Marker(nil), s.markers...)
}

// ApplyEvents replays the simulated user input due at elapsed scene time.
// It returns the number of events applied.
func (s *Scene) ApplyEvents(elapsed time.Duration) int {
	applied := 0
	for s.next < len(s.events) && s.events[s.next].At <= elapsed {
		e := s.events[s.next]
		s.next++
		applied++

		if e.Zoom != nil {
			s.provider.SetZoom(*e.Zoom)
			log.Debug().Dur("at", e.At).Float64("zoom", *e.Zoom).Msg("User zoom")
		}
		if e.Pan != nil {
			s.provider.SetCenter(*e.Pan)
			log.Debug().Dur("at", e.At).Float64("lat", e.Pan.Lat).Float64("lng", e.Pan.Lng).Msg("User pan")
		}
	}
	return applied
}

// Frame advances the scene to the clock's current time and returns the
// render output of every marker.
func (s *Scene) Frame() []Frame {
	now := s.clock.Now()
	s.ApplyEvents(now.Sub(s.start))
	s.viewport.Render(now)

	frames := make([]Frame, 0, len(s.markers))
	for _, m := range s.markers {
		frames = append(frames, m.frame(s.viewport))
	}

	log.Trace().Dur("elapsed", now.Sub(s.start)).Int("markers", len(frames)).Msg("Frame rendered")
	return frames
}

// Tracks returns the travelled path of every marker.
func (s *Scene) Tracks() []Track {
	tracks := make([]Track, 0, len(s.markers))
	for _, m := range s.markers {
		tracks = append(tracks, m.Track())
	}
	return tracks
}
