package modifier

import "github.com/woozymasta/geoview/internal/geo"

// Positioner is implemented by anything that can report a geographic position,
// such as another modifier or a position transitionable.
type Positioner interface {
	GeoPosition() (geo.Position, bool)
}

type sourceKind uint8

const (
	sourceNone sourceKind = iota
	sourceLiteral
	sourceDynamic
	sourceDelegate
)

// Source is where a modifier input takes its position from: a literal
// position, a function evaluated every frame or another Positioner.
type Source struct {
	dynamic  func() (geo.Position, bool)
	delegate Positioner
	literal  geo.Position
	kind     sourceKind
}

// None is the empty source.
func None() Source {
	return Source{}
}

// Literal returns a source with a fixed position.
func Literal(p geo.Position) Source {
	return Source{kind: sourceLiteral, literal: p}
}

// Dynamic returns a source calling fn every time it is resolved.
func Dynamic(fn func() (geo.Position, bool)) Source {
	if fn == nil {
		return None()
	}
	return Source{kind: sourceDynamic, dynamic: fn}
}

// Delegate returns a source reading the position of p.
func Delegate(p Positioner) Source {
	if p == nil {
		return None()
	}
	return Source{kind: sourceDelegate, delegate: p}
}

// SourceOf inspects v once and converts it to a Source. It accepts nil, a
// Source, a Positioner, a position function or any shape geo.Resolve knows.
func SourceOf(v any) Source {
	switch s := v.(type) {
	case nil:
		return None()
	case Source:
		return s
	case Positioner:
		return Delegate(s)
	case func() (geo.Position, bool):
		return Dynamic(s)
	case func() geo.Position:
		return Dynamic(func() (geo.Position, bool) { return s(), true })
	}

	if p, ok := geo.Resolve(v); ok {
		return Literal(p)
	}
	return None()
}

// IsSet reports whether the source can produce a position at all.
func (s Source) IsSet() bool {
	return s.kind != sourceNone
}

// Resolve returns the current position of the source.
func (s Source) Resolve() (geo.Position, bool) {
	switch s.kind {
	case sourceLiteral:
		return s.literal, true
	case sourceDynamic:
		return s.dynamic()
	case sourceDelegate:
		return s.delegate.GeoPosition()
	}
	return geo.Position{}, false
}
