// Package roadgraph holds the road network multigraph and its normalization.
//
// Nodes are intersections and way endpoints, edges are road segments carrying
// a length in meters. Parallel edges between the same pair of nodes are kept
// as an ordered list per pair, each identified by its per-pair Key.
// Nodes, edges and adjacency iterate in insertion order.
package roadgraph

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNodeNotFound is returned when an edge references an unknown node.
	ErrNodeNotFound = errors.New("roadgraph: node not found")

	// ErrBadLength is returned for negative or non-finite edge lengths.
	ErrBadLength = errors.New("roadgraph: edge length must be finite and non-negative")
)

// NodeID identifies a node, usually an OSM node id.
type NodeID int64

// Node is a road intersection or endpoint.
type Node struct {
	Attrs map[string]any
	ID    NodeID
	Lat   float64
	Lon   float64
}

// Edge is a road segment between two nodes.
// For undirected graphs From and To keep the orientation the edge was added with.
type Edge struct {
	Attrs  map[string]any
	From   NodeID
	To     NodeID
	Key    int     // index among the edges of the same node pair
	Length float64 // meters
}

// Other returns the endpoint of e opposite to id.
func (e *Edge) Other(id NodeID) NodeID {
	if e.From == id {
		return e.To
	}
	return e.From
}

type pair struct {
	a, b NodeID
}

// Graph is a directed or undirected multigraph.
type Graph struct {
	Attrs map[string]any

	nodes map[NodeID]*Node
	pairs map[pair][]*Edge
	adj   map[NodeID][]*Edge // outgoing (directed) or incident (undirected) edges
	order []NodeID
	edges []*Edge

	directed bool
}

// New creates an empty graph.
func New(directed bool) *Graph {
	return &Graph{
		Attrs:    make(map[string]any),
		nodes:    make(map[NodeID]*Node),
		pairs:    make(map[pair][]*Edge),
		adj:      make(map[NodeID][]*Edge),
		directed: directed,
	}
}

// Directed reports whether edges are one-way.
func (g *Graph) Directed() bool { return g.directed }

// AddNode inserts a node. Adding an existing id replaces its position and attributes.
func (g *Graph) AddNode(n Node) {
	if existing, ok := g.nodes[n.ID]; ok {
		*existing = n
		return
	}
	node := n
	g.nodes[n.ID] = &node
	g.order = append(g.order, n.ID)
}

// AddEdge inserts a new edge between two existing nodes and assigns its Key.
func (g *Graph) AddEdge(from, to NodeID, length float64, attrs map[string]any) (*Edge, error) {
	if _, ok := g.nodes[from]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, to)
	}
	if length < 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return nil, fmt.Errorf("%w: %d-%d length=%v", ErrBadLength, from, to, length)
	}

	k := g.key(from, to)
	e := &Edge{
		Attrs:  attrs,
		From:   from,
		To:     to,
		Key:    len(g.pairs[k]),
		Length: length,
	}
	g.pairs[k] = append(g.pairs[k], e)
	g.edges = append(g.edges, e)
	g.adj[from] = append(g.adj[from], e)
	if !g.directed && from != to {
		g.adj[to] = append(g.adj[to], e)
	}

	return e, nil
}

func (g *Graph) key(u, v NodeID) pair {
	if !g.directed && v < u {
		u, v = v, u
	}
	return pair{u, v}
}

// HasNode reports whether id is a node of g.
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns node ids in insertion order. The slice must not be modified.
func (g *Graph) Nodes() []NodeID { return g.order }

// Edges returns all edges in insertion order. The slice must not be modified.
func (g *Graph) Edges() []*Edge { return g.edges }

// Incident returns the edges leaving id (directed) or touching id (undirected).
func (g *Graph) Incident(id NodeID) []*Edge { return g.adj[id] }

// Parallel returns all edges between u and v ordered by Key.
func (g *Graph) Parallel(u, v NodeID) []*Edge { return g.pairs[g.key(u, v)] }

// Shortest returns the minimum-length edge between u and v,
// the lowest Key on equal lengths.
func (g *Graph) Shortest(u, v NodeID) (*Edge, bool) {
	var best *Edge
	for _, e := range g.Parallel(u, v) {
		if best == nil || e.Length < best.Length {
			best = e
		}
	}
	return best, best != nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.order) }

// EdgeCount returns the number of edges, parallel edges counted separately.
func (g *Graph) EdgeCount() int { return len(g.edges) }

func copyAttrs(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
