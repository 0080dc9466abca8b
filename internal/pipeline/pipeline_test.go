package pipeline

import (
	"errors"
	"testing"

	"github.com/woozymasta/roadmst/internal/poi"
	"github.com/woozymasta/roadmst/internal/roadgraph"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pharmacy = poi.Category{Key: "amenity", Value: "pharmacy", Label: "Pharmacy"}
	school   = poi.Category{Key: "amenity", Value: "school"}
	hospital = poi.Category{Key: "amenity", Value: "hospital", Label: "Hospital"}
)

type fakeRoads struct {
	g   *roadgraph.Graph
	err error
}

func (f fakeRoads) RoadGraph(place, network string) (*roadgraph.Graph, error) {
	return f.g, f.err
}

type fakeFeatures struct {
	byCategory map[poi.Category][]poi.Record
	err        error
}

func (f fakeFeatures) Features(place string, c poi.Category) ([]poi.Record, error) {
	return f.byCategory[c], f.err
}

// lineRoads is A-B-C-D (ids 1..4, 10 m apart) plus a detached E-F pair.
func lineRoads(t *testing.T) *roadgraph.Graph {
	t.Helper()
	g := roadgraph.New(true)
	for i, lon := range []float64{0, 0.0001, 0.0002, 0.0003} {
		g.AddNode(roadgraph.Node{ID: roadgraph.NodeID(i + 1), Lon: lon})
	}
	g.AddNode(roadgraph.Node{ID: 5, Lon: 1})
	g.AddNode(roadgraph.Node{ID: 6, Lon: 1.0001})

	for _, e := range [][2]roadgraph.NodeID{{1, 2}, {2, 3}, {3, 4}, {5, 6}} {
		_, err := g.AddEdge(e[0], e[1], 10, nil)
		require.NoError(t, err)
		_, err = g.AddEdge(e[1], e[0], 10, nil)
		require.NoError(t, err)
	}
	return g
}

func record(name string, c poi.Category, lon float64) poi.Record {
	return poi.Record{Name: name, Category: c, Geometry: orb.Point{lon, 0.00001}}
}

func lineFeatures() fakeFeatures {
	return fakeFeatures{byCategory: map[poi.Category][]poi.Record{
		pharmacy: {
			record("A", pharmacy, 0),
			record("C", pharmacy, 0.0002),
			record("C again", pharmacy, 0.00021),
			record("", pharmacy, 0.0003),
		},
		hospital: {
			record("H1", hospital, 0.00011),
			record("H2", hospital, 0.00029),
			record("H3", hospital, 0.00001),
		},
	}}
}

func TestRunLineScenario(t *testing.T) {
	p := &Pipeline{Roads: fakeRoads{g: lineRoads(t)}, Features: lineFeatures()}

	res, err := p.Run(Options{
		Place:      "Lineville",
		Network:    "drive",
		Categories: []poi.Category{pharmacy},
		Overlays:   []Overlay{{Category: hospital, Limit: 2}},
		Workers:    2,
	})
	require.NoError(t, err)

	assert.False(t, res.Graph.Directed())
	assert.Equal(t, 4, res.Graph.NodeCount())
	assert.Equal(t, pharmacy, res.Category)
	assert.Len(t, res.Records, 4)

	assert.Equal(t, []roadgraph.NodeID{1, 3, 4}, res.Resolution.Nodes)
	assert.Equal(t, "C", res.Resolution.Details[3].Name)
	assert.Equal(t, "Pharmacy (unnamed)", res.Resolution.Details[4].Name)

	require.Len(t, res.Auxiliary.Edges, 3)
	assert.Equal(t, 30.0, res.Tree.Tree.Total)
	require.Len(t, res.Tree.Routes, 2)
	assert.Equal(t, []roadgraph.NodeID{3, 4}, res.Tree.Routes[0].Path.Nodes)
	assert.Equal(t, []roadgraph.NodeID{1, 2, 3}, res.Tree.Routes[1].Path.Nodes)

	require.Len(t, res.Overlays, 1)
	placed := res.Overlays[0].Placements
	require.Len(t, placed, 2, "limit applies before snapping")
	assert.Equal(t, roadgraph.NodeID(2), placed[0].Node)
	assert.Equal(t, roadgraph.NodeID(4), placed[1].Node)
	assert.Equal(t, "H2", placed[1].Details.Name)

	Report(res)

	s := Scene(res, "Lineville")
	assert.Equal(t, "MST between Pharmacys in Lineville", s.Title)
	assert.Equal(t, 4, s.Legend.Found)
	assert.Equal(t, 3, s.Legend.Selected)
	assert.Len(t, s.Selected, 3)
	require.Len(t, s.Overlays, 1)
	assert.Equal(t, "Hospital", s.Overlays[0].Label)
	assert.Len(t, s.Overlays[0].Points, 2)
}

func TestRunCapsPOIs(t *testing.T) {
	p := &Pipeline{Roads: fakeRoads{g: lineRoads(t)}, Features: lineFeatures()}

	res, err := p.Run(Options{Categories: []poi.Category{pharmacy}, MaxPOIs: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Resolution.Eligible)
	assert.Equal(t, []roadgraph.NodeID{1, 3}, res.Resolution.Nodes)
	assert.Equal(t, 20.0, res.Tree.Tree.Total)
	assert.Empty(t, res.Overlays)
}

func TestRunSnapsOntoConnectedGraph(t *testing.T) {
	// The second pharmacy sits next to the detached 5-6 pair.
	features := fakeFeatures{byCategory: map[poi.Category][]poi.Record{
		pharmacy: {record("A", pharmacy, 0), record("near fragment", pharmacy, 0.99995)},
	}}
	p := &Pipeline{Roads: fakeRoads{g: lineRoads(t)}, Features: features}

	res, err := p.Run(Options{Categories: []poi.Category{pharmacy}})
	require.NoError(t, err)

	assert.Equal(t, []roadgraph.NodeID{1, 4}, res.Resolution.Nodes)
	assert.Equal(t, "near fragment", res.Resolution.Details[4].Name)
	assert.Equal(t, 30.0, res.Tree.Tree.Total)
}

func TestRunCategoryFallback(t *testing.T) {
	features := fakeFeatures{byCategory: map[poi.Category][]poi.Record{
		school: {record("S1", school, 0), record("S2", school, 0.0003)},
	}}
	p := &Pipeline{Roads: fakeRoads{g: lineRoads(t)}, Features: features}

	res, err := p.Run(Options{Categories: []poi.Category{pharmacy, school}})
	require.NoError(t, err)
	assert.Equal(t, school, res.Category)
	assert.Equal(t, 30.0, res.Tree.Tree.Total)
	assert.Equal(t, "MST between Schools in X", Scene(res, "X").Title)
}

func TestRunStageErrors(t *testing.T) {
	boom := errors.New("boom")
	single := fakeFeatures{byCategory: map[poi.Category][]poi.Record{
		pharmacy: {record("A", pharmacy, 0), record("A'", pharmacy, 0.00001), {Name: "nowhere", Category: pharmacy}},
	}}

	tests := []struct {
		name  string
		p     *Pipeline
		opts  Options
		stage Stage
		is    error
	}{
		{
			name:  "fetch graph",
			p:     &Pipeline{Roads: fakeRoads{err: boom}, Features: lineFeatures()},
			stage: StageFetchGraph,
			is:    boom,
		},
		{
			name:  "empty graph",
			p:     &Pipeline{Roads: fakeRoads{g: roadgraph.New(true)}, Features: lineFeatures()},
			stage: StageNormalize,
			is:    ErrEmptyGraph,
		},
		{
			name:  "no features",
			p:     &Pipeline{Roads: fakeRoads{g: lineRoads(t)}, Features: lineFeatures()},
			opts:  Options{Categories: []poi.Category{school}},
			stage: StageFetchPOIs,
			is:    poi.ErrEmptyResult,
		},
		{
			name:  "insufficient",
			p:     &Pipeline{Roads: fakeRoads{g: lineRoads(t)}, Features: single},
			opts:  Options{Categories: []poi.Category{pharmacy}},
			stage: StageResolve,
			is:    poi.ErrInsufficientPOIs,
		},
		{
			name: "overlay source",
			p:    &Pipeline{Roads: fakeRoads{g: lineRoads(t)}, Features: lineFeatures()},
			opts: Options{
				Categories: []poi.Category{pharmacy},
				Overlays:   []Overlay{{Category: hospital, Source: fakeFeatures{err: boom}}},
			},
			stage: StageOverlay,
			is:    boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.p.Run(tt.opts)
			require.Error(t, err)

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.stage, se.Stage)
			assert.ErrorIs(t, err, tt.is)
			assert.Contains(t, err.Error(), string(tt.stage)+": ")
		})
	}
}

func TestRunInsufficientCounts(t *testing.T) {
	features := fakeFeatures{byCategory: map[poi.Category][]poi.Record{
		pharmacy: {record("A", pharmacy, 0), record("A'", pharmacy, 0.00001), {Name: "nowhere", Category: pharmacy}},
	}}
	p := &Pipeline{Roads: fakeRoads{g: lineRoads(t)}, Features: features}

	_, err := p.Run(Options{Categories: []poi.Category{pharmacy}})

	var ie *poi.InsufficientPOIsError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 3, ie.Records)
	assert.Equal(t, 1, ie.Found)
	assert.Equal(t, poi.MinResolved, ie.Required)
}
