package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"

	"github.com/chai2010/webp"
	"github.com/paulmach/orb"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Format is a raster encoding.
type Format int

const (
	PNG Format = iota
	WebP
)

// WriteRaster draws s into an RGBA image and encodes it.
func WriteRaster(w io.Writer, s *Scene, format Format) error {
	img := Rasterize(s)

	switch format {
	case PNG:
		return png.Encode(w, img)
	case WebP:
		return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: 90})
	default:
		return fmt.Errorf("%w: raster format %d", ErrUnsupportedFormat, format)
	}
}

// Rasterize draws s into a new image.
func Rasterize(s *Scene) *image.RGBA {
	f := newFrame(s)
	width, height := s.size()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	c := canvas{img: img, z: vector.NewRasterizer(width, height)}

	for _, l := range s.Roads {
		c.polyline(f, l, 0.6)
	}
	c.fill(hexColor(colorRoad))

	for _, l := range s.Routes {
		c.polyline(f, l, 2.5)
	}
	c.fill(hexColor(colorRoute))

	for _, layer := range s.Overlays {
		for _, p := range layer.Points {
			x, y := f.at(p)
			c.circle(x, y, 5)
		}
	}
	c.fill(hexColor(colorOverlay))

	// Selected markers get a black ring under the fill.
	for _, p := range s.Selected {
		x, y := f.at(p)
		c.circle(x, y, 5)
	}
	c.fill(color.Black)
	for _, p := range s.Selected {
		x, y := f.at(p)
		c.circle(x, y, 4)
	}
	c.fill(hexColor(colorSelected))

	if s.Title != "" {
		face := basicfont.Face7x13
		tw := font.MeasureString(face, s.Title).Ceil()
		c.text((width-tw)/2, 26, s.Title)
	}

	c.legend(s, height)
	return img
}

// canvas accumulates shapes in a rasterizer and flushes them with one color.
type canvas struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

func (c canvas) fill(col color.Color) {
	c.z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
	b := c.img.Bounds()
	c.z.Reset(b.Dx(), b.Dy())
}

// polyline adds one quad per segment, all wound the same way.
func (c canvas) polyline(f frame, l orb.LineString, width float64) {
	hw := width / 2
	for i := 1; i < len(l); i++ {
		x1, y1 := f.at(l[i-1])
		x2, y2 := f.at(l[i])
		c.segment(x1, y1, x2, y2, hw)
	}
}

func (c canvas) segment(x1, y1, x2, y2, hw float64) {
	dx, dy := x2-x1, y2-y1
	n := math.Hypot(dx, dy)
	if n == 0 {
		c.circle(x1, y1, hw)
		return
	}
	nx, ny := -dy/n*hw, dx/n*hw

	c.z.MoveTo(float32(x1+nx), float32(y1+ny))
	c.z.LineTo(float32(x2+nx), float32(y2+ny))
	c.z.LineTo(float32(x2-nx), float32(y2-ny))
	c.z.LineTo(float32(x1-nx), float32(y1-ny))
	c.z.ClosePath()
}

func (c canvas) circle(cx, cy, r float64) {
	const steps = 24
	c.z.MoveTo(float32(cx+r), float32(cy))
	for i := 1; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / steps
		c.z.LineTo(float32(cx+r*math.Cos(a)), float32(cy+r*math.Sin(a)))
	}
	c.z.ClosePath()
}

func (c canvas) rect(x0, y0, x1, y1 int, col color.Color) {
	draw.Draw(c.img, image.Rect(x0, y0, x1, y1), image.NewUniform(col), image.Point{}, draw.Over)
}

func (c canvas) text(x, y int, s string) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func (c canvas) legend(s *Scene, height int) {
	lines := s.LegendLines()
	face := basicfont.Face7x13
	longest := 0
	for _, l := range lines {
		longest = max(longest, font.MeasureString(face, l).Ceil())
	}

	boxW := legendPad*3 + legendSwatch + longest
	boxH := legendPad*2 + legendRow*len(lines)
	x0 := marginSide
	y0 := height - marginSide - boxH

	c.rect(x0, y0, x0+boxW, y0+boxH, hexColor("#666666"))
	c.rect(x0+1, y0+1, x0+boxW-1, y0+boxH-1, color.NRGBA{0xff, 0xff, 0xff, 0xd9})

	for i, text := range lines {
		rowY := y0 + legendPad + i*legendRow
		sx := float64(x0 + legendPad)
		cy := float64(rowY + legendRow/2)

		switch swatchFor(s, i) {
		case swatchRoute:
			c.segment(sx, cy, sx+legendSwatch, cy, 1.25)
			c.fill(hexColor(colorRoute))
		case swatchSelected:
			c.circle(sx+legendSwatch/2, cy, 5)
			c.fill(color.Black)
			c.circle(sx+legendSwatch/2, cy, 4)
			c.fill(hexColor(colorSelected))
		case swatchOverlay:
			c.circle(sx+legendSwatch/2, cy, 5)
			c.fill(hexColor(colorOverlay))
		}

		c.text(x0+legendPad*2+legendSwatch, rowY+legendRow/2+4, text)
	}
}

// hexColor parses #rrggbb, falling back to black.
func hexColor(s string) color.RGBA {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{A: 0xff}
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
