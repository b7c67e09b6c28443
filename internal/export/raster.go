package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/chai2010/webp"
	"golang.org/x/image/vector"

	"github.com/woozymasta/geoview/internal/scene"
	"github.com/woozymasta/geoview/internal/transform"
)

// DefaultQuality is the WebP quality of rendered frames.
const DefaultQuality = 85

// Shape is the marker outline in local pixels, pointing east.
var Shape = [][2]float64{{12, 0}, {-8, -7}, {-4, 0}, {-8, 7}}

// Palette colors markers in frame order.
var Palette = []color.RGBA{
	{R: 0xe6, G: 0x39, B: 0x46, A: 0xff},
	{R: 0x1d, G: 0x35, B: 0x57, A: 0xff},
	{R: 0x2a, G: 0x9d, B: 0x8f, A: 0xff},
	{R: 0xf4, G: 0xa2, B: 0x61, A: 0xff},
	{R: 0x6d, G: 0x59, B: 0x7a, A: 0xff},
}

// Background fills frames rendered without a basemap.
var Background = color.RGBA{R: 0xf1, G: 0xfa, B: 0xee, A: 0xff}

// Outline returns the marker shape transformed by the render spec.
func Outline(spec transform.RenderSpec) [][2]float64 {
	out := make([][2]float64, len(Shape))
	for i, p := range Shape {
		x, y := transform.Apply(spec.Transform, p[0], p[1])
		out[i] = [2]float64{x, y}
	}
	return out
}

// RenderImage draws the frames over base, or over a plain background when
// base is nil.
func RenderImage(frames []scene.Frame, size image.Point, base image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rectangle{Max: size})
	if base != nil {
		draw.Draw(dst, dst.Bounds(), base, base.Bounds().Min, draw.Src)
	} else {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	}

	r := vector.NewRasterizer(size.X, size.Y)
	for i, f := range frames {
		outline := Outline(f.Spec)

		r.Reset(size.X, size.Y)
		r.MoveTo(float32(outline[0][0]), float32(outline[0][1]))
		for _, p := range outline[1:] {
			r.LineTo(float32(p[0]), float32(p[1]))
		}
		r.ClosePath()

		fill := Palette[i%len(Palette)]
		if f.Spec.Opacity > 0 && f.Spec.Opacity < 1 {
			fill.A = uint8(float64(fill.A) * f.Spec.Opacity)
			fill.R = uint8(float64(fill.R) * f.Spec.Opacity)
			fill.G = uint8(float64(fill.G) * f.Spec.Opacity)
			fill.B = uint8(float64(fill.B) * f.Spec.Opacity)
		}
		r.Draw(dst, dst.Bounds(), image.NewUniform(fill), image.Point{})
	}

	return dst
}

// WriteWebP encodes img as lossy WebP.
func WriteWebP(w io.Writer, img image.Image, quality float32) error {
	if quality <= 0 {
		quality = DefaultQuality
	}
	if err := webp.Encode(w, img, &webp.Options{Lossless: false, Quality: quality}); err != nil {
		return fmt.Errorf("encode webp: %w", err)
	}
	return nil
}
