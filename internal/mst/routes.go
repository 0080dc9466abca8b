package mst

import (
	"errors"
	"fmt"
	"math"

	"github.com/woozymasta/roadmst/internal/roadgraph"
	"github.com/woozymasta/roadmst/internal/routing"
)

// ErrRouteMismatch is returned when a rebuilt route does not add up to the tree edge weight.
var ErrRouteMismatch = errors.New("mst: route length differs from edge weight")

// Tolerance is the relative difference allowed between a route length and its edge weight.
const Tolerance = 1e-6

// Route is the road path realizing one tree edge.
type Route struct {
	Path routing.Path
	Edge routing.AuxEdge
}

// Result is a spanning tree together with its road routes.
type Result struct {
	Tree   *Tree
	Routes []Route // same order as Tree.Edges
}

// Routes recomputes the road path of every tree edge.
// The auxiliary graph keeps no paths, so each one is searched again.
func Routes(g *roadgraph.Graph, tree *Tree) ([]Route, error) {
	routes := make([]Route, 0, len(tree.Edges))
	for _, e := range tree.Edges {
		p, err := routing.ShortestPath(g, e.U, e.V)
		if err != nil {
			return nil, fmt.Errorf("route %d-%d: %w", e.U, e.V, err)
		}
		if !withinTolerance(p.Length, e.Weight) {
			return nil, fmt.Errorf("%w: %d-%d route=%.3f weight=%.3f", ErrRouteMismatch, e.U, e.V, p.Length, e.Weight)
		}
		routes = append(routes, Route{Path: p, Edge: e})
	}
	return routes, nil
}

// Compute runs Kruskal on aux and rebuilds the routes over g.
func Compute(g *roadgraph.Graph, aux *routing.Auxiliary) (*Result, error) {
	tree, err := Kruskal(aux)
	if err != nil {
		return nil, err
	}
	routes, err := Routes(g, tree)
	if err != nil {
		return nil, err
	}
	return &Result{Tree: tree, Routes: routes}, nil
}

func withinTolerance(a, b float64) bool {
	diff := math.Abs(a - b)
	if diff <= Tolerance {
		return true
	}
	return diff <= Tolerance*math.Max(math.Abs(a), math.Abs(b))
}
