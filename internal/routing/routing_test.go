package routing

import (
	"math/rand"
	"testing"

	"github.com/woozymasta/roadmst/internal/geo"
	"github.com/woozymasta/roadmst/internal/roadgraph"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nodeA roadgraph.NodeID = iota + 1
	nodeB
	nodeC
	nodeD
)

// lineGraph builds A-B-C-D with 10 m segments.
func lineGraph(t *testing.T) *roadgraph.Graph {
	t.Helper()
	g := roadgraph.New(false)
	for _, id := range []roadgraph.NodeID{nodeA, nodeB, nodeC, nodeD} {
		g.AddNode(roadgraph.Node{ID: id})
	}
	for _, e := range [][2]roadgraph.NodeID{{nodeA, nodeB}, {nodeB, nodeC}, {nodeC, nodeD}} {
		_, err := g.AddEdge(e[0], e[1], 10, nil)
		require.NoError(t, err)
	}
	return g
}

// randomCity builds a connected grid-like graph with jittered coordinates and
// edge lengths at least as long as the straight line between endpoints.
func randomCity(t *testing.T, seed int64, side int) *roadgraph.Graph {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	g := roadgraph.New(false)
	id := func(row, col int) roadgraph.NodeID { return roadgraph.NodeID(row*side + col + 1) }

	for row := 0; row < side; row++ {
		for col := 0; col < side; col++ {
			g.AddNode(roadgraph.Node{
				ID:  id(row, col),
				Lat: -5.8 + float64(row)*0.001 + r.Float64()*0.0002,
				Lon: -35.2 + float64(col)*0.001 + r.Float64()*0.0002,
			})
		}
	}
	link := func(u, v roadgraph.NodeID) {
		a, _ := g.Node(u)
		b, _ := g.Node(v)
		straight := geo.Distance(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat})
		_, err := g.AddEdge(u, v, straight*(1+r.Float64()*0.5), nil)
		require.NoError(t, err)
		if r.Intn(4) == 0 {
			// Parallel carriageway, sometimes shorter than the first.
			_, err = g.AddEdge(v, u, straight*(1+r.Float64()*0.5), nil)
			require.NoError(t, err)
		}
	}
	for row := 0; row < side; row++ {
		for col := 0; col < side; col++ {
			if col+1 < side {
				link(id(row, col), id(row, col+1))
			}
			if row+1 < side {
				link(id(row, col), id(row+1, col))
			}
		}
	}
	return g
}

func TestShortestPathLine(t *testing.T) {
	g := lineGraph(t)

	p, err := ShortestPath(g, nodeA, nodeD)
	require.NoError(t, err)
	assert.Equal(t, []roadgraph.NodeID{nodeA, nodeB, nodeC, nodeD}, p.Nodes)
	assert.Len(t, p.Edges, 3)
	assert.Equal(t, 30.0, p.Length)

	p, err = ShortestPath(g, nodeD, nodeB)
	require.NoError(t, err)
	assert.Equal(t, []roadgraph.NodeID{nodeD, nodeC, nodeB}, p.Nodes)
	assert.Equal(t, 20.0, p.Length)

	p, err = ShortestPath(g, nodeC, nodeC)
	require.NoError(t, err)
	assert.Equal(t, []roadgraph.NodeID{nodeC}, p.Nodes)
	assert.Zero(t, p.Length)
}

func TestShortestPathUsesShortestParallelEdge(t *testing.T) {
	g := lineGraph(t)
	short, err := g.AddEdge(nodeC, nodeB, 4, map[string]any{"name": "bypass"})
	require.NoError(t, err)

	p, err := ShortestPath(g, nodeA, nodeD)
	require.NoError(t, err)
	assert.Equal(t, 24.0, p.Length)
	assert.Same(t, short, p.Edges[1])

	best, ok := g.Shortest(nodeB, nodeC)
	require.True(t, ok)
	assert.Same(t, best, p.Edges[1], "path uses the same parallel edge as the length lookup")
}

func TestShortestPathPrefersWeightOverHops(t *testing.T) {
	g := lineGraph(t)
	_, err := g.AddEdge(nodeA, nodeD, 45, nil)
	require.NoError(t, err)

	p, err := ShortestPath(g, nodeA, nodeD)
	require.NoError(t, err)
	assert.Equal(t, 30.0, p.Length)
	assert.Len(t, p.Nodes, 4)
}

func TestShortestPathDisconnected(t *testing.T) {
	g := lineGraph(t)
	g.AddNode(roadgraph.Node{ID: 42})

	_, err := ShortestPath(g, nodeA, 42)
	assert.ErrorIs(t, err, ErrDisconnectedPath)

	_, err = ShortestPath(g, nodeA, 404)
	assert.ErrorIs(t, err, roadgraph.ErrNodeNotFound)

	_, err = ShortestPaths(g, 404)
	assert.ErrorIs(t, err, roadgraph.ErrNodeNotFound)
}

func TestShortestPathDirected(t *testing.T) {
	g := roadgraph.New(true)
	for _, id := range []roadgraph.NodeID{1, 2, 3} {
		g.AddNode(roadgraph.Node{ID: id})
	}
	_, _ = g.AddEdge(1, 2, 1, nil)
	_, _ = g.AddEdge(2, 3, 1, nil)
	_, _ = g.AddEdge(3, 1, 1, nil)

	p, err := ShortestPath(g, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Length)

	p, err = ShortestPath(g, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []roadgraph.NodeID{3, 1, 2}, p.Nodes)
}

func TestBuildAuxiliaryLineScenario(t *testing.T) {
	g := lineGraph(t)

	aux, err := BuildAuxiliary(g, []roadgraph.NodeID{nodeA, nodeC, nodeD}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []AuxEdge{
		{U: nodeA, V: nodeC, I: 0, J: 1, Weight: 20},
		{U: nodeA, V: nodeD, I: 0, J: 2, Weight: 30},
		{U: nodeC, V: nodeD, I: 1, J: 2, Weight: 10},
	}, aux.Edges)

	w, ok := aux.Weight(2, 1)
	require.True(t, ok)
	assert.Equal(t, 10.0, w)
	_, ok = aux.Weight(1, 1)
	assert.False(t, ok)
}

func TestBuildAuxiliaryCompleteness(t *testing.T) {
	g := randomCity(t, 7, 8)
	nodes := []roadgraph.NodeID{1, 9, 20, 33, 47, 50, 64}

	aux, err := BuildAuxiliary(g, nodes, Options{})
	require.NoError(t, err)

	n := len(nodes)
	require.Len(t, aux.Edges, n*(n-1)/2)
	for _, e := range aux.Edges {
		assert.Less(t, e.I, e.J)
		assert.Equal(t, nodes[e.I], e.U)
		assert.Equal(t, nodes[e.J], e.V)

		a, _ := g.Node(e.U)
		b, _ := g.Node(e.V)
		straight := geo.Distance(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat})
		assert.GreaterOrEqual(t, e.Weight, straight, "road distance is never shorter than the straight line")

		p, err := ShortestPath(g, e.U, e.V)
		require.NoError(t, err)
		assert.Equal(t, e.Weight, p.Length)

		w, ok := aux.Weight(e.I, e.J)
		require.True(t, ok)
		assert.Equal(t, e.Weight, w)
	}
}

func TestBuildAuxiliaryWorkersMatchSequential(t *testing.T) {
	g := randomCity(t, 11, 10)
	nodes := []roadgraph.NodeID{5, 17, 23, 42, 58, 61, 77, 89, 93, 100}

	seq, err := BuildAuxiliary(g, nodes, Options{Workers: 1})
	require.NoError(t, err)
	for _, workers := range []int{2, 4, 32} {
		par, err := BuildAuxiliary(g, nodes, Options{Workers: workers})
		require.NoError(t, err)
		assert.Equal(t, seq.Edges, par.Edges, "workers=%d", workers)
	}
}

func TestBuildAuxiliaryErrors(t *testing.T) {
	g := lineGraph(t)
	g.AddNode(roadgraph.Node{ID: 42})

	_, err := BuildAuxiliary(g, []roadgraph.NodeID{nodeA}, Options{})
	assert.ErrorIs(t, err, ErrTooFewNodes)

	_, err = BuildAuxiliary(g, []roadgraph.NodeID{nodeA, nodeB, 42}, Options{Workers: 2})
	assert.ErrorIs(t, err, ErrDisconnectedPath)

	_, err = BuildAuxiliary(g, []roadgraph.NodeID{nodeA, nodeA}, Options{})
	assert.Error(t, err)
}
