package basemap

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/viewport"
)

var world = View{
	NorthEast: geo.Position{Lat: geo.MaxLat, Lng: 180},
	SouthWest: geo.Position{Lat: -geo.MaxLat, Lng: -180},
}

func TestTileURL(t *testing.T) {
	tile := Tile{Z: 3, X: 5, Y: 1}
	assert.Equal(t, "https://tiles/3/5/1.png", tile.URL("https://tiles/{z}/{x}/{y}.png"))
	assert.Equal(t, "3/5/6", tile.URL("{z}/{x}/{tms_y}"))
	assert.Equal(t, "3/5/1", tile.String())
}

func TestTileWrapped(t *testing.T) {
	assert.Equal(t, Tile{Z: 2, X: 3, Y: 1}, Tile{Z: 2, X: -1, Y: 1}.Wrapped())
	assert.Equal(t, Tile{Z: 2, X: 1, Y: 1}, Tile{Z: 2, X: 5, Y: 1}.Wrapped())
}

func TestIsTemplate(t *testing.T) {
	assert.True(t, IsTemplate("https://tiles/{z}/{x}/{y}.png"))
	assert.False(t, IsTemplate("world.png"))
}

func TestCoverWorld(t *testing.T) {
	v := world
	v.Size = geo.Point{X: 256, Y: 256}

	placements := Cover(v, 0)
	require.Len(t, placements, 1)
	p := placements[0]
	assert.Equal(t, Tile{}, p.Tile)
	assert.InDelta(t, 0, p.MinX, 1e-6)
	assert.InDelta(t, 0, p.MinY, 1e-6)
	assert.InDelta(t, 256, p.MaxX, 1e-6)
	assert.InDelta(t, 256, p.MaxY, 1e-6)

	v.Size = geo.Point{X: 512, Y: 512}
	assert.Len(t, Cover(v, 1), 4)
}

func TestCoverAcrossAntimeridian(t *testing.T) {
	v := View{
		NorthEast: geo.Position{Lat: 10, Lng: 190},
		SouthWest: geo.Position{Lat: -10, Lng: 170},
		Size:      geo.Point{X: 400, Y: 400},
	}

	columns := map[int]bool{}
	for _, p := range Cover(v, 2) {
		columns[p.Tile.X] = true
	}
	assert.Equal(t, map[int]bool{3: true, 4: true}, columns)
}

var palette = []color.RGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
	{R: 255, G: 255, A: 255},
}

func tileServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var z, x, y int
		if _, err := fmt.Sscanf(r.URL.Path, "/%d/%d/%d.png", &z, &x, &y); err != nil {
			http.NotFound(w, r)
			return
		}
		if hits != nil {
			hits.Add(1)
		}
		if y == 9 {
			http.NotFound(w, r)
			return
		}

		img := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
		draw.Draw(img, img.Bounds(), image.NewUniform(palette[(x+2*y)%len(palette)]), image.Point{}, draw.Src)
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, img)
	}))
}

func TestDrawTiles(t *testing.T) {
	srv := tileServer(t, nil)
	defer srv.Close()

	v := world
	v.Size = geo.Point{X: 512, Y: 512}
	v.Zoom = 1

	dst := image.NewRGBA(image.Rect(0, 0, 512, 512))
	src := &Source{Location: srv.URL + "/{z}/{x}/{y}.png", Client: srv.Client()}
	require.NoError(t, src.Draw(context.Background(), dst, v))

	assertColor(t, palette[0], dst.RGBAAt(100, 100))
	assertColor(t, palette[1], dst.RGBAAt(400, 100))
	assertColor(t, palette[2], dst.RGBAAt(100, 400))
	assertColor(t, palette[3], dst.RGBAAt(400, 400))
}

func TestDrawCachesTiles(t *testing.T) {
	var hits atomic.Int32
	srv := tileServer(t, &hits)
	defer srv.Close()

	cache := t.TempDir()
	v := world
	v.Size = geo.Point{X: 256, Y: 256}

	src := &Source{Location: srv.URL + "/{z}/{x}/{y}.png", Client: srv.Client(), CacheDir: cache}
	require.NoError(t, src.Draw(context.Background(), image.NewRGBA(image.Rect(0, 0, 256, 256)), v))
	assert.Equal(t, int32(1), hits.Load())

	_, err := os.Stat(filepath.Join(cache, "0", "0", "0.webp"))
	require.NoError(t, err)

	dst := image.NewRGBA(image.Rect(0, 0, 256, 256))
	require.NoError(t, src.Draw(context.Background(), dst, v))
	assert.Equal(t, int32(1), hits.Load(), "second draw served from cache")
	assert.Greater(t, dst.RGBAAt(128, 128).R, uint8(200))

	src.Force = true
	require.NoError(t, src.Draw(context.Background(), dst, v))
	assert.Equal(t, int32(2), hits.Load())
}

func TestBackdropsRedrawOnViewChange(t *testing.T) {
	var hits atomic.Int32
	srv := tileServer(t, &hits)
	defer srv.Close()

	b := &Backdrops{
		Source: &Source{Location: srv.URL + "/{z}/{x}/{y}.png", Client: srv.Client()},
		Size:   image.Pt(256, 256),
	}

	v := world
	v.Size = geo.Point{X: 256, Y: 256}
	first, err := b.Draw(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 256), first.Bounds())
	assert.Equal(t, int32(1), hits.Load())

	same, err := b.Draw(context.Background(), v)
	require.NoError(t, err)
	assert.Same(t, first, same)
	assert.Equal(t, int32(1), hits.Load())

	zoomed := world
	zoomed.Size = geo.Point{X: 512, Y: 512}
	zoomed.Zoom = 1
	next, err := b.Draw(context.Background(), zoomed)
	require.NoError(t, err)
	assert.NotSame(t, first, next)
	assert.Greater(t, hits.Load(), int32(1))
	assertColor(t, palette[0], next.(*image.RGBA).RGBAAt(100, 100))
}

func TestFetchMissingTile(t *testing.T) {
	srv := tileServer(t, nil)
	defer srv.Close()

	src := &Source{Location: srv.URL + "/{z}/{x}/{y}.png", Client: srv.Client()}
	img, err := src.fetch(context.Background(), Tile{Z: 4, X: 1, Y: 9})
	require.NoError(t, err)
	assert.Nil(t, img)
}

func TestDrawWorldImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.png")
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	draw.Draw(img, img.Bounds(), image.NewUniform(palette[1]), image.Point{}, draw.Src)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	v := world
	v.Size = geo.Point{X: 128, Y: 128}
	v.Zoom = 5

	dst := image.NewRGBA(image.Rect(0, 0, 128, 128))
	src := &Source{Location: path}
	require.NoError(t, src.Draw(context.Background(), dst, v))
	assertColor(t, palette[1], dst.RGBAAt(64, 64))
}

func TestLoadImageMissingFile(t *testing.T) {
	_, err := LoadImage(context.Background(), http.DefaultClient, filepath.Join(t.TempDir(), "none.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func assertColor(t *testing.T, want, got color.RGBA) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 2, "red")
	assert.InDelta(t, want.G, got.G, 2, "green")
	assert.InDelta(t, want.B, got.B, 2, "blue")
	assert.InDelta(t, want.A, got.A, 2, "alpha")
}

func TestViewOf(t *testing.T) {
	v := ViewOf(viewport.Cache{
		FinalNorthEast: geo.Position{Lat: 10, Lng: 20},
		FinalSouthWest: geo.Position{Lat: -10, Lng: -20},
		Size:           geo.Point{X: 800, Y: 600},
		FinalZoom:      5,
		Zoom:           4.5,
	})
	assert.Equal(t, geo.Position{Lat: 10, Lng: 20}, v.NorthEast)
	assert.Equal(t, geo.Position{Lat: -10, Lng: -20}, v.SouthWest)
	assert.InDelta(t, 5, v.Zoom, 1e-9)
	assert.InDelta(t, 800, v.Size.X, 1e-9)
}
