package viewport

import (
	"fmt"
	"sync/atomic"
)

var globalViewportID atomic.Int64

func init() {
	globalViewportID.Store(1)
}

// nextID returns MapView1, MapView2, ... for the whole process.
func nextID() string {
	return fmt.Sprintf("MapView%d", globalViewportID.Add(1)-1)
}

// Node is the renderable container the viewport delegates rendering to.
type Node interface {
	Render() any
}

// Surface is the container element created for the map when no element id
// was configured.
type Surface struct {
	Classes []string `json:"classes"`
	Content string   `json:"content"`
	ID      string   `json:"id"`
}

func newSurface(id string) *Surface {
	return &Surface{
		ID:      id,
		Classes: []string{"mapview"},
		Content: fmt.Sprintf(`<div id="%s" style="width: 100%%; height: 100%%;"></div>`, id),
	}
}

// Render returns the surface itself as the render descriptor.
func (s *Surface) Render() any {
	return s
}

type emptyNode struct{}

func (emptyNode) Render() any { return nil }
