// Package pipeline runs the batch from raw road and POI data to the spanning
// tree routes. Every stage takes the previous stage's output and failures are
// labelled with the stage that produced them.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/woozymasta/roadmst/internal/mst"
	"github.com/woozymasta/roadmst/internal/poi"
	"github.com/woozymasta/roadmst/internal/roadgraph"
	"github.com/woozymasta/roadmst/internal/routing"
	"github.com/woozymasta/roadmst/internal/spatial"

	"github.com/rs/zerolog/log"
)

// Stage names a pipeline step.
type Stage string

const (
	StageFetchGraph Stage = "fetch-graph"
	StageNormalize  Stage = "normalize"
	StageFetchPOIs  Stage = "fetch-pois"
	StageResolve    Stage = "resolve"
	StageRoute      Stage = "route"
	StageMST        Stage = "mst"
	StageOverlay    Stage = "overlay"
)

// ErrEmptyGraph is returned when normalization leaves no nodes.
var ErrEmptyGraph = errors.New("pipeline: road graph is empty")

// StageError wraps the error of the stage that failed.
type StageError struct {
	Err   error
	Stage Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func fail(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// RoadGraphSource provides the raw road network of a place.
type RoadGraphSource interface {
	RoadGraph(place, network string) (*roadgraph.Graph, error)
}

// FeatureSource provides the POI features of a category.
type FeatureSource = poi.FeatureSource

// Overlay is a secondary POI layer drawn next to the tree, e.g. hospitals.
type Overlay struct {
	Source   FeatureSource // nil uses the pipeline's feature source
	Category poi.Category
	Limit    int // records kept before snapping, 0 keeps all
}

// Options configure one run.
type Options struct {
	Place      string
	Network    string
	Categories []poi.Category // tried in order
	Overlays   []Overlay
	MaxPOIs    int // cap on nodes fed into the router, 0 is unlimited
	Workers    int
}

// OverlayResult holds the snapped markers of one overlay.
type OverlayResult struct {
	Category   poi.Category
	Placements []poi.Placement
}

// Result is the output of a successful run.
type Result struct {
	Graph      *roadgraph.Graph // normalized road graph
	Resolution *poi.Resolution  // after the cap
	Auxiliary  *routing.Auxiliary
	Tree       *mst.Result
	Category   poi.Category // category the POIs came from
	Records    []poi.Record
	Overlays   []OverlayResult
	Took       time.Duration
}

// Pipeline wires the data sources.
type Pipeline struct {
	Roads    RoadGraphSource
	Features FeatureSource
}

// Run executes every stage in order and stops at the first failure.
func (p *Pipeline) Run(opts Options) (*Result, error) {
	start := time.Now()

	raw, err := p.Roads.RoadGraph(opts.Place, opts.Network)
	if err != nil {
		return nil, fail(StageFetchGraph, err)
	}

	g := roadgraph.Normalize(raw)
	if g.NodeCount() == 0 {
		return nil, fail(StageNormalize, ErrEmptyGraph)
	}
	log.Info().
		Int("raw_nodes", raw.NodeCount()).
		Int("raw_edges", raw.EdgeCount()).
		Int("nodes", g.NodeCount()).
		Int("edges", g.EdgeCount()).
		Msg("Road graph normalized")

	records, category, err := poi.Fetch(p.Features, opts.Place, opts.Categories)
	if err != nil {
		return nil, fail(StageFetchPOIs, err)
	}
	log.Info().
		Str("category", category.String()).
		Int("records", len(records)).
		Msg("POI features fetched")

	index := spatial.NewIndex(g)

	res, err := poi.Resolve(g, records, index)
	if err != nil {
		return nil, fail(StageResolve, err)
	}
	if opts.MaxPOIs > 0 && res.Eligible > opts.MaxPOIs {
		log.Info().
			Int("eligible", res.Eligible).
			Int("max", opts.MaxPOIs).
			Msg("POI list capped")
		res = res.Limit(opts.MaxPOIs)
	}

	aux, err := routing.BuildAuxiliary(g, res.Nodes, routing.Options{Workers: opts.Workers})
	if err != nil {
		return nil, fail(StageRoute, err)
	}

	tree, err := mst.Compute(g, aux)
	if err != nil {
		return nil, fail(StageMST, err)
	}

	overlays, err := p.overlays(g, index, opts)
	if err != nil {
		return nil, fail(StageOverlay, err)
	}

	return &Result{
		Graph:      g,
		Resolution: res,
		Auxiliary:  aux,
		Tree:       tree,
		Category:   category,
		Records:    records,
		Overlays:   overlays,
		Took:       time.Since(start),
	}, nil
}

func (p *Pipeline) overlays(g *roadgraph.Graph, loc poi.Locator, opts Options) ([]OverlayResult, error) {
	out := make([]OverlayResult, 0, len(opts.Overlays))
	for _, o := range opts.Overlays {
		src := o.Source
		if src == nil {
			src = p.Features
		}

		records, err := src.Features(opts.Place, o.Category)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", o.Category, err)
		}
		if o.Limit > 0 && len(records) > o.Limit {
			records = records[:o.Limit]
		}

		placements, err := poi.Snap(g, records, loc)
		if err != nil {
			return nil, fmt.Errorf("snap %s: %w", o.Category, err)
		}

		log.Debug().
			Str("category", o.Category.String()).
			Int("records", len(records)).
			Int("placed", len(placements)).
			Msg("Overlay snapped")

		out = append(out, OverlayResult{Category: o.Category, Placements: placements})
	}
	return out, nil
}
