// Package render draws the road network, the spanning tree routes and the POI
// markers as an SVG or raster figure.
package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/roadmst/internal/geo"
	"github.com/woozymasta/roadmst/internal/mst"
	"github.com/woozymasta/roadmst/internal/roadgraph"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// ErrUnsupportedFormat is returned by WriteFile for unknown file extensions.
var ErrUnsupportedFormat = errors.New("render: unsupported output format")

// Default figure size in pixels.
const (
	DefaultWidth  = 1000
	DefaultHeight = 900
)

// Layer is a named set of markers, e.g. hospitals.
type Layer struct {
	Label  string
	Points []orb.Point
}

// Legend holds the figures printed in the legend box.
type Legend struct {
	Label    string  // POI label, e.g. "Pharmacy"
	Found    int     // raw features fetched
	Selected int     // nodes fed into the spanning tree
	Total    float64 // meters
}

// Scene is everything drawn on one figure.
type Scene struct {
	Title    string
	Legend   Legend
	Roads    []orb.LineString
	Routes   []orb.LineString
	Selected []orb.Point
	Overlays []Layer
	Width    int
	Height   int
}

// NewScene builds the road layer from g and one polyline per route.
// Parallel edges are drawn once.
func NewScene(g *roadgraph.Graph, routes []mst.Route) *Scene {
	s := &Scene{Width: DefaultWidth, Height: DefaultHeight}

	seen := make(map[[2]roadgraph.NodeID]bool, g.EdgeCount())
	for _, e := range g.Edges() {
		k := [2]roadgraph.NodeID{e.From, e.To}
		if k[1] < k[0] {
			k[0], k[1] = k[1], k[0]
		}
		if seen[k] {
			continue
		}
		seen[k] = true

		a, okA := nodePoint(g, e.From)
		b, okB := nodePoint(g, e.To)
		if okA && okB {
			s.Roads = append(s.Roads, orb.LineString{a, b})
		}
	}

	for _, r := range routes {
		line := make(orb.LineString, 0, len(r.Path.Nodes))
		for _, id := range r.Path.Nodes {
			if p, ok := nodePoint(g, id); ok {
				line = append(line, p)
			}
		}
		s.Routes = append(s.Routes, line)
	}

	return s
}

func nodePoint(g *roadgraph.Graph, id roadgraph.NodeID) (orb.Point, bool) {
	n, ok := g.Node(id)
	if !ok {
		return orb.Point{}, false
	}
	return orb.Point{n.Lon, n.Lat}, true
}

// LegendLines returns the legend entries in drawing order.
func (s *Scene) LegendLines() []string {
	lines := []string{"Route (MST)"}
	if s.Legend.Label != "" {
		lines = append(lines, fmt.Sprintf("%ss / Total found: %d / Selected for MST: %d",
			s.Legend.Label, s.Legend.Found, s.Legend.Selected))
	}
	for _, l := range s.Overlays {
		lines = append(lines, fmt.Sprintf("%ss: %d", l.Label, len(l.Points)))
	}
	lines = append(lines, fmt.Sprintf("Total MST length: %.2f m / %.2f km", s.Legend.Total, s.Legend.Total/1000))
	return lines
}

// WriteFile renders s to path, picking the format from the extension.
func WriteFile(path string, s *Scene) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".svg", ".png", ".webp":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch ext {
	case ".svg":
		err = WriteSVG(f, s)
	case ".png":
		err = WriteRaster(f, s, PNG)
	case ".webp":
		err = WriteRaster(f, s, WebP)
	}

	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	log.Debug().Str("path", path).Str("format", ext[1:]).Msg("Figure written")
	return nil
}

// frame maps geographic points to pixel coordinates.
type frame struct {
	proj       geo.Projection
	minX, maxY float64
	scale      float64
	offX, offY float64
}

// Pixel margins around the map area.
const (
	marginTop  = 40
	marginSide = 20
)

func newFrame(s *Scene) frame {
	b, ok := s.bound()
	if !ok {
		return frame{proj: geo.NewProjection(0), scale: 1}
	}

	f := frame{proj: geo.NewProjection(b.Center().Lat())}
	minX, minY := f.proj.Project(b.Min)
	maxX, maxY := f.proj.Project(b.Max)
	f.minX, f.maxY = minX, maxY

	width, height := s.size()
	w := float64(width - 2*marginSide)
	h := float64(height - marginTop - marginSide)
	spanX, spanY := maxX-minX, maxY-minY

	switch {
	case spanX <= 0 && spanY <= 0:
		f.scale = 1
	case spanX <= 0:
		f.scale = h / spanY
	case spanY <= 0:
		f.scale = w / spanX
	default:
		f.scale = min(w/spanX, h/spanY)
	}

	f.offX = marginSide + (w-spanX*f.scale)/2
	f.offY = marginTop + (h-spanY*f.scale)/2
	return f
}

// size returns the figure size, falling back to the defaults.
func (s *Scene) size() (w, h int) {
	w, h = s.Width, s.Height
	if w <= 2*marginSide {
		w = DefaultWidth
	}
	if h <= marginTop+marginSide {
		h = DefaultHeight
	}
	return w, h
}

func (f frame) at(p orb.Point) (x, y float64) {
	px, py := f.proj.Project(p)
	return f.offX + (px-f.minX)*f.scale, f.offY + (f.maxY-py)*f.scale
}

func (s *Scene) bound() (orb.Bound, bool) {
	var b orb.Bound
	found := false
	add := func(p orb.Point) {
		if !found {
			b = orb.Bound{Min: p, Max: p}
			found = true
			return
		}
		b = b.Extend(p)
	}

	for _, l := range s.Roads {
		for _, p := range l {
			add(p)
		}
	}
	for _, l := range s.Routes {
		for _, p := range l {
			add(p)
		}
	}
	for _, p := range s.Selected {
		add(p)
	}
	for _, l := range s.Overlays {
		for _, p := range l.Points {
			add(p)
		}
	}

	return b, found
}
