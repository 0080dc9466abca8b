package spatial

import (
	"testing"

	"github.com/woozymasta/roadmst/internal/roadgraph"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridGraph() *roadgraph.Graph {
	g := roadgraph.New(false)
	id := roadgraph.NodeID(100)
	for row := 0; row < 5; row++ {
		for col := 0; col < 5; col++ {
			g.AddNode(roadgraph.Node{ID: id, Lat: -5.80 + float64(row)*0.001, Lon: -35.20 + float64(col)*0.001})
			id++
		}
	}
	return g
}

func TestNearestBatchOrder(t *testing.T) {
	ix := NewIndex(gridGraph())
	assert.Equal(t, 25, ix.Size())

	got, err := ix.Nearest([]orb.Point{
		{-35.2001, -5.7999}, // by node 100
		{-35.1960, -5.7960}, // by node 124
		{-35.1979, -5.7980}, // row 2, col 2 -> 112
	})
	require.NoError(t, err)
	assert.Equal(t, []roadgraph.NodeID{100, 124, 112}, got)
}

func TestNearestDeterministicTies(t *testing.T) {
	g := roadgraph.New(false)
	g.AddNode(roadgraph.Node{ID: 7, Lat: 0, Lon: 0.001})
	g.AddNode(roadgraph.Node{ID: 3, Lat: 0, Lon: -0.001})

	ix := NewIndex(g)
	for i := 0; i < 5; i++ {
		got, err := ix.Nearest([]orb.Point{{0, 0}})
		require.NoError(t, err)
		assert.Equal(t, []roadgraph.NodeID{3}, got, "equidistant nodes resolve to the lowest id")
	}
}

func TestNearestEmpty(t *testing.T) {
	ix := NewIndex(roadgraph.New(false))
	_, err := ix.Nearest([]orb.Point{{0, 0}})
	assert.ErrorIs(t, err, ErrEmptyIndex)
}
