package export

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chai2010/webp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/geoview/internal/geo"
	"github.com/woozymasta/geoview/internal/scene"
	"github.com/woozymasta/geoview/internal/transform"
)

func frameAt(name string, x, y float64) scene.Frame {
	spec := transform.NewRenderSpec()
	spec.Target = name
	spec.Transform = transform.Translate(x, y, 0)
	return scene.Frame{
		Name:     name,
		Spec:     spec,
		Position: geo.Position{Lat: 51.44, Lng: 5.47},
		Point:    geo.Point{X: x, Y: y},
	}
}

func TestWriteKML(t *testing.T) {
	tracks := []scene.Track{
		{Name: "walker", Points: []geo.Position{{Lat: 51.44, Lng: 5.47}, {Lat: 51.45, Lng: 5.48}}},
		{Name: "statue", Points: []geo.Position{{Lat: 51.43, Lng: 5.46}}},
		{Name: "ghost"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, "scene", tracks))

	out := buf.String()
	assert.Contains(t, out, "<name>scene</name>")
	assert.Contains(t, out, "<name>walker</name>")
	assert.Contains(t, out, "<LineString>")
	assert.Contains(t, out, "<name>statue</name>")
	assert.Contains(t, out, "<Point>")
	assert.NotContains(t, out, "ghost")
	assert.Equal(t, 2, strings.Count(out, "<Placemark>"))
}

func TestOutline(t *testing.T) {
	spec := transform.NewRenderSpec()
	spec.Transform = transform.Translate(100, 50, 0)

	outline := Outline(spec)
	require.Len(t, outline, len(Shape))
	assert.InDelta(t, 112, outline[0][0], 1e-9)
	assert.InDelta(t, 50, outline[0][1], 1e-9)
}

func TestRenderImage(t *testing.T) {
	img := RenderImage([]scene.Frame{frameAt("a", 50, 50)}, image.Point{X: 100, Y: 80}, nil)

	assert.Equal(t, image.Rect(0, 0, 100, 80), img.Bounds())
	assert.Equal(t, Palette[0], img.RGBAAt(52, 50))
	assert.Equal(t, Background, img.RGBAAt(0, 0))
}

func TestRenderImageOverBase(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img := RenderImage(nil, image.Point{X: 10, Y: 10}, base)
	assert.Equal(t, uint8(0), img.RGBAAt(5, 5).A)
}

func TestWriteWebP(t *testing.T) {
	img := RenderImage([]scene.Frame{frameAt("a", 20, 20)}, image.Point{X: 40, Y: 30}, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteWebP(&buf, img, 0))

	decoded, err := webp.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, []scene.Frame{frameAt("homer", 10, 20), frameAt("<bart>", 30, 40)}, image.Point{X: 200, Y: 100}))

	out := buf.String()
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "homer")
	assert.Contains(t, out, "&lt;bart")
	assert.NotContains(t, out, "\n  <g")
}

func TestFramesGeoJSON(t *testing.T) {
	data, err := FramesGeoJSON([]scene.Frame{frameAt("pin", 3, 4)})
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "pin", fc.Features[0].Properties.MustString("name"))
	assert.Equal(t, orb.Point{5.47, 51.44}, fc.Features[0].Geometry)
	assert.Equal(t, 3.0, fc.Features[0].Properties.MustFloat64("x"))
}

func TestTracksGeoJSON(t *testing.T) {
	data, err := TracksGeoJSON([]scene.Track{{Name: "walker", Points: []geo.Position{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}}})
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, orb.LineString{{2, 1}, {4, 3}}, fc.Features[0].Geometry)
}

func TestSequence(t *testing.T) {
	dir := t.TempDir()
	seq := Sequence{Dir: dir, Size: image.Point{X: 32, Y: 32}, Concurrency: 2}
	frames := [][]scene.Frame{
		{frameAt("a", 10, 10)},
		{frameAt("a", 12, 10)},
		{frameAt("a", 14, 10)},
	}

	n, err := seq.Write(frames)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for i := range frames {
		info, err := os.Stat(filepath.Join(dir, FrameFile(i)))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	n, err = seq.Write(frames)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "existing frames are kept")

	seq.Force = true
	n, err = seq.Write(frames)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSequenceBackgroundPerFrame(t *testing.T) {
	dir := t.TempDir()
	size := image.Point{X: 16, Y: 16}
	red := image.NewUniform(color.RGBA{R: 255, A: 255})
	blue := image.NewUniform(color.RGBA{B: 255, A: 255})

	seq := Sequence{
		Dir:  dir,
		Size: size,
		Base: red,
		Background: func(i int) image.Image {
			if i == 1 {
				return blue
			}
			return nil
		},
		Quality: 100,
	}
	n, err := seq.Write([][]scene.Frame{nil, nil})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	decode := func(i int) color.RGBA {
		data, err := os.ReadFile(filepath.Join(dir, FrameFile(i)))
		require.NoError(t, err)
		img, err := webp.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		return color.RGBAModel.Convert(img.At(8, 8)).(color.RGBA)
	}

	first := decode(0)
	assert.Greater(t, first.R, uint8(200), "falls back to Base")
	assert.Less(t, first.B, uint8(50))

	second := decode(1)
	assert.Greater(t, second.B, uint8(200))
	assert.Less(t, second.R, uint8(50))
}
