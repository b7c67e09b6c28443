package export

import (
	"bytes"
	"fmt"
	"html"
	"image"
	"image/color"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"

	"github.com/woozymasta/geoview/internal/scene"
)

const svgMediaType = "image/svg+xml"

var svgTemplate = template.Must(template.New("frame").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
  <rect x="0" y="0" width="{{.Width}}" height="{{.Height}}" fill="{{.Background}}"/>
  {{- range .Markers}}
  <g id="{{.Name}}">
    <title>{{.Name}}</title>
    <polygon points="{{.Points}}" fill="{{.Fill}}" fill-opacity="{{.Opacity}}"/>
  </g>
  {{- end}}
</svg>
`))

type svgMarker struct {
	Name    string
	Points  string
	Fill    string
	Opacity string
}

type svgFrame struct {
	Background string
	Markers    []svgMarker
	Width      int
	Height     int
}

// WriteSVG writes the frames as a minified SVG document.
func WriteSVG(w io.Writer, frames []scene.Frame, size image.Point) error {
	data := svgFrame{
		Width:      size.X,
		Height:     size.Y,
		Background: hexColor(Background),
		Markers:    make([]svgMarker, 0, len(frames)),
	}

	for i, f := range frames {
		points := make([]string, 0, len(Shape))
		for _, p := range Outline(f.Spec) {
			points = append(points, formatFloat(p[0])+","+formatFloat(p[1]))
		}

		opacity := f.Spec.Opacity
		if opacity <= 0 || opacity > 1 {
			opacity = 1
		}

		data.Markers = append(data.Markers, svgMarker{
			Name:    html.EscapeString(f.Name),
			Points:  strings.Join(points, " "),
			Fill:    hexColor(Palette[i%len(Palette)]),
			Opacity: formatFloat(opacity),
		})
	}

	var buf bytes.Buffer
	if err := svgTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("render svg: %w", err)
	}

	m := minify.New()
	m.AddFunc(svgMediaType, svg.Minify)
	if err := m.Minify(svgMediaType, w, &buf); err != nil {
		return fmt.Errorf("minify svg: %w", err)
	}

	return nil
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
