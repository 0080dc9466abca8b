package pipeline

import (
	"fmt"

	"github.com/woozymasta/roadmst/internal/poi"
	"github.com/woozymasta/roadmst/internal/render"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// Report logs the selected POIs and the tree totals.
func Report(res *Result) {
	log.Info().
		Int("found", len(res.Records)).
		Int("eligible", res.Resolution.Eligible).
		Int("selected", len(res.Resolution.Nodes)).
		Msg("POIs selected for the spanning tree")

	for i, id := range res.Resolution.Nodes {
		d := res.Resolution.Details[id]
		log.Info().
			Int("n", i+1).
			Int64("node", int64(id)).
			Str("name", d.Name).
			Str("category", d.Category.String()).
			Str("location", fmt.Sprintf("%.4f, %.4f", d.Lat, d.Lon)).
			Msg("Selected POI")
	}

	total := res.Tree.Tree.Total
	log.Info().
		Int("edges", len(res.Tree.Tree.Edges)).
		Str("total_m", fmt.Sprintf("%.2f", total)).
		Str("total_km", fmt.Sprintf("%.2f", total/1000)).
		Dur("took", res.Took).
		Msg("Spanning tree computed")
}

// Scene builds the figure for a result.
func Scene(res *Result, place string) *render.Scene {
	s := render.NewScene(res.Graph, res.Tree.Routes)

	label := res.Category.DisplayLabel()
	s.Title = fmt.Sprintf("MST between %ss in %s", label, place)
	s.Legend = render.Legend{
		Label:    label,
		Found:    len(res.Records),
		Selected: len(res.Resolution.Nodes),
		Total:    res.Tree.Tree.Total,
	}

	for _, id := range res.Resolution.Nodes {
		if n, ok := res.Graph.Node(id); ok {
			s.Selected = append(s.Selected, orb.Point{n.Lon, n.Lat})
		}
	}

	for _, o := range res.Overlays {
		layer := render.Layer{Label: o.Category.DisplayLabel()}
		for _, pl := range o.Placements {
			layer.Points = append(layer.Points, placementPoint(res, pl))
		}
		s.Overlays = append(s.Overlays, layer)
	}

	return s
}

// placementPoint draws overlay markers on their snapped node.
func placementPoint(res *Result, pl poi.Placement) orb.Point {
	if n, ok := res.Graph.Node(pl.Node); ok {
		return orb.Point{n.Lon, n.Lat}
	}
	return orb.Point{pl.Details.Lon, pl.Details.Lat}
}
