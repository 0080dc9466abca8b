package render

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/paulmach/orb"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
)

// Colors shared by the SVG and raster writers.
const (
	colorRoad     = "#b4b4b4"
	colorRoute    = "#d62728"
	colorSelected = "#1f77b4"
	colorOverlay  = "#e31a1c"
	colorText     = "#000000"
)

// WriteSVG renders s as a minified SVG document.
func WriteSVG(w io.Writer, s *Scene) error {
	f := newFrame(s)
	width, height := s.size()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		width, height, width, height)
	fmt.Fprintf(&buf, `<rect width="100%%" height="100%%" fill="#ffffff"/>`)

	// Base network as a single path.
	if len(s.Roads) > 0 {
		fmt.Fprintf(&buf, `<path fill="none" stroke="%s" stroke-width="0.5" d="`, colorRoad)
		for _, l := range s.Roads {
			writePathData(&buf, f, l)
		}
		buf.WriteString(`"/>`)
	}

	fmt.Fprintf(&buf, `<g fill="none" stroke="%s" stroke-width="2.5" stroke-linecap="round" stroke-linejoin="round">`, colorRoute)
	for _, l := range s.Routes {
		if len(l) < 2 {
			continue
		}
		buf.WriteString(`<path d="`)
		writePathData(&buf, f, l)
		buf.WriteString(`"/>`)
	}
	buf.WriteString(`</g>`)

	for _, layer := range s.Overlays {
		fmt.Fprintf(&buf, `<g fill="%s" stroke="#ffffff" stroke-width="0.8">`, colorOverlay)
		for _, p := range layer.Points {
			x, y := f.at(p)
			fmt.Fprintf(&buf, `<circle cx="%.1f" cy="%.1f" r="5"/>`, x, y)
		}
		buf.WriteString(`</g>`)
	}

	fmt.Fprintf(&buf, `<g fill="%s" stroke="#000000" stroke-width="1">`, colorSelected)
	for _, p := range s.Selected {
		x, y := f.at(p)
		fmt.Fprintf(&buf, `<circle cx="%.1f" cy="%.1f" r="4"/>`, x, y)
	}
	buf.WriteString(`</g>`)

	if s.Title != "" {
		fmt.Fprintf(&buf, `<text x="%d" y="26" font-family="sans-serif" font-size="18" text-anchor="middle" fill="%s">%s</text>`,
			width/2, colorText, html.EscapeString(s.Title))
	}

	writeSVGLegend(&buf, s, height)
	buf.WriteString(`</svg>`)

	m := minify.New()
	m.AddFunc("image/svg+xml", svg.Minify)
	return m.Minify("image/svg+xml", w, &buf)
}

func writePathData(buf *bytes.Buffer, f frame, l orb.LineString) {
	for i, p := range l {
		x, y := f.at(p)
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(buf, "%s%.1f %.1f", cmd, x, y)
	}
}

// Legend box geometry shared by both writers.
const (
	legendPad    = 8
	legendRow    = 18
	legendSwatch = 14
)

func writeSVGLegend(buf *bytes.Buffer, s *Scene, height int) {
	lines := s.LegendLines()
	longest := 0
	for _, l := range lines {
		longest = max(longest, len(l))
	}

	boxW := legendPad*3 + legendSwatch + longest*7
	boxH := legendPad*2 + legendRow*len(lines)
	x0 := marginSide
	y0 := height - marginSide - boxH

	fmt.Fprintf(buf, `<g font-family="sans-serif" font-size="12" fill="%s">`, colorText)
	fmt.Fprintf(buf, `<rect x="%d" y="%d" width="%d" height="%d" fill="#ffffff" fill-opacity="0.85" stroke="#666666"/>`,
		x0, y0, boxW, boxH)

	for i, text := range lines {
		rowY := y0 + legendPad + i*legendRow
		sx := x0 + legendPad
		cy := rowY + legendRow/2

		switch swatchFor(s, i) {
		case swatchRoute:
			fmt.Fprintf(buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2.5"/>`,
				sx, cy, sx+legendSwatch, cy, colorRoute)
		case swatchSelected:
			fmt.Fprintf(buf, `<circle cx="%d" cy="%d" r="4" fill="%s" stroke="#000000"/>`,
				sx+legendSwatch/2, cy, colorSelected)
		case swatchOverlay:
			fmt.Fprintf(buf, `<circle cx="%d" cy="%d" r="5" fill="%s"/>`,
				sx+legendSwatch/2, cy, colorOverlay)
		}

		fmt.Fprintf(buf, `<text x="%d" y="%d">%s</text>`,
			sx+legendSwatch+legendPad, cy+4, html.EscapeString(text))
	}
	buf.WriteString(`</g>`)
}

type swatch int

const (
	swatchNone swatch = iota
	swatchRoute
	swatchSelected
	swatchOverlay
)

// swatchFor returns the marker drawn next to legend line i.
func swatchFor(s *Scene, i int) swatch {
	if i == 0 {
		return swatchRoute
	}
	i--
	if s.Legend.Label != "" {
		if i == 0 {
			return swatchSelected
		}
		i--
	}
	if i < len(s.Overlays) {
		return swatchOverlay
	}
	return swatchNone
}
