package scene

import (
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geoview/internal/config"
	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/modifier"
	"github.com/woozymasta/geoview/internal/transition"
	"github.com/woozymasta/geoview/internal/viewport"
)

// Marker is an animated renderable of the scene.
type Marker struct {
	*modifier.GeoStateModifier

	name  string
	cfg   config.Marker
	track []geo.Position
	leg   int
	laps  int
}

func newMarker(vp *viewport.MapViewport, mc config.Marker, clock transition.Clock) *Marker {
	opts := modifier.StateOptions{
		Position:      mc.Position,
		RotateTowards: mc.RotateTowards,
		Offset:        mc.Offset,
		ZoomBase:      mc.ZoomBase,
		Clock:         clock,
	}
	if mc.ZoomScale != nil {
		opts.ZoomScale = modifier.ZoomFactor(*mc.ZoomScale)
	}

	return &Marker{
		GeoStateModifier: modifier.NewGeoStateModifier(vp, opts),
		name:             mc.Name,
		cfg:              mc,
	}
}

// Name returns the marker name.
func (m *Marker) Name() string { return m.name }

// Leg returns the index of the waypoint the marker travels to.
func (m *Marker) Leg() int { return m.leg }

// Laps returns how many times a looping route was completed.
func (m *Marker) Laps() int { return m.laps }

// Track returns the path travelled so far.
func (m *Marker) Track() Track {
	return Track{Name: m.name, Points: append([]geo.Position(nil), m.track...)}
}

// start queues the route. A route whose first waypoint is the marker's
// position starts travelling to the second one.
func (m *Marker) start() {
	if len(m.cfg.Route) == 0 {
		return
	}

	from := 0
	if m.cfg.Position != nil && geo.Equals(*m.cfg.Position, m.cfg.Route[0].Position) {
		from = 1
	}
	if from >= len(m.cfg.Route) {
		return
	}

	m.leg = from
	if m.cfg.FaceRoute {
		m.RotateTowards(m.cfg.Route[from].Position, nil, nil)
	}
	m.queueRoute(from)
}

func (m *Marker) queueRoute(from int) {
	for i := from; i < len(m.cfg.Route); i++ {
		i := i
		m.SetPosition(m.cfg.Route[i].Position, m.legSpec(i), func() { m.arrived(i) })
	}
}

// legSpec never returns nil: a jump would reset the queued legs.
func (m *Marker) legSpec(i int) *transition.Spec {
	if spec := m.cfg.LegSpec(i); spec != nil {
		return spec
	}
	return &transition.Spec{}
}

func (m *Marker) arrived(i int) {
	last := len(m.cfg.Route) - 1
	next := i + 1

	if i == last {
		if !m.cfg.Loop {
			m.leg = len(m.cfg.Route)
			log.Debug().Str("marker", m.name).Msg("Route completed")
			return
		}
		m.laps++
		next = 0
		log.Debug().Str("marker", m.name).Int("laps", m.laps).Msg("Route lap completed")
		m.queueRoute(0)
	}

	m.leg = next
	if m.cfg.FaceRoute {
		m.RotateTowards(m.cfg.Route[next].Position, nil, nil)
	}
}

func (m *Marker) frame(vp *viewport.MapViewport) Frame {
	spec := m.Modify(m.name)
	position, _ := m.RenderedPosition()
	m.record(position)

	point, err := vp.PointFromPosition(position)
	if err != nil {
		point = geo.Point{}
	}

	return Frame{
		Name:     m.name,
		Spec:     spec,
		Position: position,
		Point:    point,
		Active:   m.IsActive(),
	}
}

func (m *Marker) record(p geo.Position) {
	if n := len(m.track); n > 0 && geo.Equals(m.track[n-1], p) {
		return
	}
	m.track = append(m.track, p)
}
