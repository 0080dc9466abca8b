// Package mst computes the minimum spanning tree of the auxiliary POI graph
// and turns every tree edge back into a road route.
package mst

import (
	"errors"
	"fmt"
	"sort"

	"github.com/woozymasta/roadmst/internal/roadgraph"
	"github.com/woozymasta/roadmst/internal/routing"
)

var (
	// ErrEmptyGraph is returned for auxiliary graphs with fewer than two nodes.
	ErrEmptyGraph = errors.New("mst: at least two nodes are required")

	// ErrDisconnected is returned when the edges cannot span every node.
	ErrDisconnected = errors.New("mst: graph is disconnected")
)

// Tree is a minimum spanning tree over the auxiliary graph.
type Tree struct {
	Nodes []roadgraph.NodeID
	Edges []routing.AuxEdge // in selection order, non-decreasing weight
	Total float64           // meters
}

// Kruskal computes the minimum spanning tree of aux.
//
// Edges are stably sorted by ascending weight, so equal weights keep the
// (I, J) order of aux and the result is reproducible. A union-find with path
// compression and union by rank rejects cycle-closing edges; the scan stops
// after n-1 edges.
func Kruskal(aux *routing.Auxiliary) (*Tree, error) {
	n := len(aux.Nodes)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrEmptyGraph, n)
	}

	edges := append(make([]routing.AuxEdge, 0, len(aux.Edges)), aux.Edges...)
	sort.SliceStable(edges, func(a, b int) bool {
		return edges[a].Weight < edges[b].Weight
	})

	ds := newDisjointSet(n)
	tree := &Tree{
		Nodes: append(make([]roadgraph.NodeID, 0, n), aux.Nodes...),
		Edges: make([]routing.AuxEdge, 0, n-1),
	}
	for _, e := range edges {
		if e.I == e.J || !ds.union(e.I, e.J) {
			continue
		}
		tree.Edges = append(tree.Edges, e)
		tree.Total += e.Weight
		if len(tree.Edges) == n-1 {
			break
		}
	}

	if len(tree.Edges) < n-1 {
		return nil, fmt.Errorf("%w: %d of %d edges", ErrDisconnected, len(tree.Edges), n-1)
	}

	return tree, nil
}

// disjointSet is a union-find over indexes 0..n-1.
type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
	}
	return ds
}

func (ds *disjointSet) find(x int) int {
	for ds.parent[x] != x {
		ds.parent[x] = ds.parent[ds.parent[x]]
		x = ds.parent[x]
	}
	return x
}

// union merges the sets of a and b, false if they already share one.
func (ds *disjointSet) union(a, b int) bool {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return false
	}
	switch {
	case ds.rank[ra] < ds.rank[rb]:
		ds.parent[ra] = rb
	case ds.rank[ra] > ds.rank[rb]:
		ds.parent[rb] = ra
	default:
		ds.parent[rb] = ra
		ds.rank[ra]++
	}
	return true
}
