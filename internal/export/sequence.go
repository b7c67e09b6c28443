package export

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geoview/internal/scene"
)

// Sequence renders captured frames into numbered WebP files.
type Sequence struct {
	// Base is drawn under every frame, a plain background when nil.
	Base        image.Image
	// Background, when set, returns the base of frame i instead of Base.
	// It may be called concurrently.
	Background  func(i int) image.Image
	Dir         string
	Size        image.Point
	Concurrency int
	Quality     float32
	// Force overwrites existing files.
	Force bool
}

// FrameFile returns the file name of frame i.
func FrameFile(i int) string {
	return fmt.Sprintf("frame_%05d.webp", i)
}

// Write encodes every captured frame and returns how many files were written.
func (s Sequence) Write(frames [][]scene.Frame) (int, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return 0, err
	}

	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var (
		wg       sync.WaitGroup
		written  atomic.Int64
		firstErr error
		errOnce  sync.Once
	)
	sem := make(chan struct{}, concurrency)

	for i, frame := range frames {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, frame []scene.Frame) {
			defer wg.Done()
			defer func() { <-sem }()

			path := filepath.Join(s.Dir, FrameFile(i))
			if !s.Force {
				if info, err := os.Stat(path); err == nil && info.Size() > 0 {
					return
				}
			}

			if err := s.writeFrame(path, frame, s.base(i)); err != nil {
				log.Error().Err(err).Str("path", path).Msg("Failed to write frame")
				errOnce.Do(func() { firstErr = err })
				return
			}
			written.Add(1)
		}(i, frame)
	}
	wg.Wait()

	return int(written.Load()), firstErr
}

func (s Sequence) base(i int) image.Image {
	if s.Background != nil {
		if img := s.Background(i); img != nil {
			return img
		}
	}
	return s.Base
}

func (s Sequence) writeFrame(path string, frame []scene.Frame, base image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return WriteWebP(f, RenderImage(frame, s.Size, base), s.Quality)
}
