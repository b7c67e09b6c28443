package basemap

import (
	"context"
	"image"
	"sync"
)

// Backdrops draws the basemaps of a sequence of views, redrawing only when
// the view changes. It is safe for concurrent use; draws are serialized.
type Backdrops struct {
	Source *Source
	Size   image.Point

	mu    sync.Mutex
	img   image.Image
	last  View
	drawn bool
}

// Draw returns the basemap of v. Consecutive calls with the same view share
// one image, which callers must not modify.
func (b *Backdrops) Draw(ctx context.Context, v View) (image.Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.drawn && b.last == v {
		return b.img, nil
	}

	canvas := image.NewRGBA(image.Rectangle{Max: b.Size})
	if err := b.Source.Draw(ctx, canvas, v); err != nil {
		return nil, err
	}
	b.img, b.last, b.drawn = canvas, v, true
	return canvas, nil
}
