package server

import (
	"bytes"
	"context"
	"image"
	"sync"
	"time"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geoview/internal/basemap"
	"github.com/woozymasta/geoview/internal/scene"
)

// ServerContext holds dependencies for request handlers. The scene is not
// safe for concurrent use, every access goes through mu.
type ServerContext struct {
	Scene           *scene.Scene
	Basemap         *basemap.Source
	TransparentTile []byte
	Name            string
	mu              sync.Mutex
}

// NewServerContext wraps a scene for serving. basemap may be nil.
func NewServerContext(name string, sc *scene.Scene, base *basemap.Source) *ServerContext {
	tile, err := transparentTile()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode transparent tile")
	}

	log.Info().
		Str("scene", name).
		Int("markers", len(sc.Markers())).
		Bool("basemap", base != nil).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Name:            name,
		Scene:           sc,
		Basemap:         base,
		TransparentTile: tile,
	}
}

// Run renders frames at interval until ctx is done, so tracks and
// transition callbacks advance without clients polling.
func (s *ServerContext) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Debug().Dur("interval", interval).Msg("Frame ticker started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Frame ticker stopped")
			return
		case <-ticker.C:
			s.mu.Lock()
			s.Scene.Frame()
			s.mu.Unlock()
		}
	}
}

// transparentTile is served for tiles missing from the cache.
func transparentTile() ([]byte, error) {
	var buf bytes.Buffer
	img := image.NewNRGBA(image.Rect(0, 0, basemap.TileSize, basemap.TileSize))
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
