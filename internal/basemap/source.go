package basemap

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // tile decoders
	_ "image/png"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxZoom limits the tile zoom level when Source.MaxZoom is unset.
const DefaultMaxZoom = 19

// Source draws basemaps from an XYZ template or from a single image covering
// the whole web mercator world.
type Source struct {
	world  image.Image
	Client *http.Client
	// Location is an XYZ URL template, an image URL or an image file path.
	Location string
	// CacheDir keeps downloaded tiles as WebP, laid out as z/x/y.webp.
	CacheDir    string
	Concurrency int
	MaxZoom     int
	mu          sync.Mutex
	// Force ignores tiles already in CacheDir.
	Force bool
}

type job struct {
	Tile Tile
}

type result struct {
	Image image.Image
	Tile  Tile
}

// Draw renders the basemap of the view onto dst, which is expected to have
// the size of the view.
func (s *Source) Draw(ctx context.Context, dst draw.Image, v View) error {
	if !IsTemplate(s.Location) {
		return s.drawWorld(ctx, dst, v)
	}

	z := int(math.Round(v.Zoom))
	maxZoom := s.MaxZoom
	if maxZoom <= 0 {
		maxZoom = DefaultMaxZoom
	}
	z = max(0, min(maxZoom, z))

	placements := Cover(v, z)
	if len(placements) == 0 {
		return nil
	}

	unique := make(map[Tile]struct{}, len(placements))
	tiles := make([]Tile, 0, len(placements))
	for _, p := range placements {
		t := p.Tile.Wrapped()
		if _, ok := unique[t]; ok {
			continue
		}
		unique[t] = struct{}{}
		tiles = append(tiles, t)
	}

	log.Debug().Int("zoom", z).Int("tiles", len(tiles)).Msg("Fetching basemap tiles")
	images := s.fetchBatch(ctx, tiles)
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, p := range placements {
		img, ok := images[p.Tile.Wrapped()]
		if !ok {
			continue
		}
		xdraw.CatmullRom.Scale(dst, rect(p.MinX, p.MinY, p.MaxX, p.MaxY), img, img.Bounds(), draw.Over, nil)
	}

	return nil
}

// drawWorld scales the single world image into the view, repeating it east
// and west of the antimeridian.
func (s *Source) drawWorld(ctx context.Context, dst draw.Image, v View) error {
	img, err := s.worldImage(ctx)
	if err != nil {
		return err
	}

	for _, p := range Cover(v, 0) {
		xdraw.CatmullRom.Scale(dst, rect(p.MinX, p.MinY, p.MaxX, p.MaxY), img, img.Bounds(), draw.Over, nil)
	}
	return nil
}

func (s *Source) worldImage(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.world != nil {
		return s.world, nil
	}

	img, err := LoadImage(ctx, s.client(), s.Location)
	if err != nil {
		return nil, err
	}
	s.world = img
	return img, nil
}

// NewClient returns an HTTP client tuned for many small tile requests.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: timeout,
	}
}

func (s *Source) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

func (s *Source) fetchBatch(ctx context.Context, tiles []Tile) map[Tile]image.Image {
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	jobs := make(chan job, len(tiles))
	results := make(chan result, len(tiles))

	for _, t := range tiles {
		jobs <- job{Tile: t}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					return
				}
				img, err := s.fetch(ctx, j.Tile)
				if err != nil {
					log.Trace().
						Err(err).
						Str("tile", j.Tile.String()).
						Msg("Failed to fetch tile")
					continue
				}
				if img != nil {
					results <- result{Tile: j.Tile, Image: img}
				}
			}
		}()
	}
	wg.Wait()
	close(results)

	images := make(map[Tile]image.Image, len(tiles))
	for res := range results {
		images[res.Tile] = res.Image
	}

	return images
}

// fetch returns a tile from the cache or downloads it. Missing tiles are
// reported as a nil image without error.
func (s *Source) fetch(ctx context.Context, t Tile) (image.Image, error) {
	cachePath := ""
	if s.CacheDir != "" {
		cachePath = filepath.Join(s.CacheDir, fmt.Sprintf("%d", t.Z), fmt.Sprintf("%d", t.X), fmt.Sprintf("%d", t.Y)+".webp")
		if !s.Force {
			if img, err := decodeFile(cachePath); err == nil {
				return img, nil
			}
		}
	}

	url := t.URL(s.Location)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		log.Trace().Str("url", url).Msg("Tile not found (404)")
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode tile %s: %w", t, err)
	}

	// map servers answer out of range requests with 1px tiles
	if img.Bounds().Dx() <= 1 {
		log.Trace().Str("url", url).Msg("Filtered empty tile")
		return nil, nil
	}

	if cachePath != "" {
		if err := writeWebP(cachePath, img); err != nil {
			log.Warn().Err(err).Str("path", cachePath).Msg("Failed to cache tile")
		}
	}

	return img, nil
}

// LoadImage opens an image from an http(s) URL or a file path.
func LoadImage(ctx context.Context, client *http.Client, source string) (image.Image, error) {
	var reader io.Reader

	if strings.HasPrefix(source, "http") {
		log.Info().Str("url", source).Msg("Downloading basemap image")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("download failed: %d", resp.StatusCode)
		}

		// some decoders need to seek
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(body)
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()

		reader = f
	}

	img, format, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	log.Debug().Str("format", format).Msg("Basemap image decoded")
	return img, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	return img, err
}

func writeWebP(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return webp.Encode(f, img, &webp.Options{Lossless: false, Quality: 80})
}

func rect(minX, minY, maxX, maxY float64) image.Rectangle {
	return image.Rect(
		int(math.Round(minX)), int(math.Round(minY)),
		int(math.Round(maxX)), int(math.Round(maxY)),
	)
}
