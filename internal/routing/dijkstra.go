// Package routing computes shortest road paths and the pairwise distance
// graph between points of interest.
//
// Shortest paths use Dijkstra with the edge length in meters as the additive
// metric. Between two consecutive path nodes the shortest parallel edge is
// taken (lowest key on equal lengths), and the reported length is the sum of
// exactly those edges.
//
// The search is deterministic: adjacency is scanned in insertion order, only
// strictly shorter distances relax a node, and heap ties pop the lowest node id.
package routing

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/woozymasta/roadmst/internal/roadgraph"
)

var (
	// ErrDisconnectedPath is returned when no path exists between two nodes that
	// are expected to share a component. It signals a broken invariant upstream.
	ErrDisconnectedPath = errors.New("routing: no path between nodes")

	// ErrTooFewNodes is returned when fewer than two nodes are given to BuildAuxiliary.
	ErrTooFewNodes = errors.New("routing: at least two nodes are required")
)

// Path is a route through the road graph.
type Path struct {
	Nodes  []roadgraph.NodeID
	Edges  []*roadgraph.Edge // Edges[i] joins Nodes[i] and Nodes[i+1]
	Length float64           // meters
}

// Tree holds the result of a single-source search.
type Tree struct {
	dist   map[roadgraph.NodeID]float64
	prev   map[roadgraph.NodeID]*roadgraph.Edge
	source roadgraph.NodeID
}

// Dist returns the shortest distance to id, false when id was not reached.
func (t *Tree) Dist(id roadgraph.NodeID) (float64, bool) {
	d, ok := t.dist[id]
	return d, ok
}

// PathTo rebuilds the path from the source to id.
func (t *Tree) PathTo(id roadgraph.NodeID) (Path, error) {
	if _, ok := t.dist[id]; !ok {
		return Path{}, fmt.Errorf("%w: %d -> %d", ErrDisconnectedPath, t.source, id)
	}

	var edges []*roadgraph.Edge
	nodes := []roadgraph.NodeID{id}
	for cur := id; cur != t.source; {
		e := t.prev[cur]
		edges = append(edges, e)
		cur = e.Other(cur)
		nodes = append(nodes, cur)
	}

	// Reverse into source -> id order.
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	var length float64
	for _, e := range edges {
		length += e.Length
	}

	return Path{Nodes: nodes, Edges: edges, Length: length}, nil
}

// ShortestPaths runs a full single-source search from src.
func ShortestPaths(g *roadgraph.Graph, src roadgraph.NodeID) (*Tree, error) {
	return search(g, src, nil)
}

// ShortestPath returns the shortest path from src to dst.
func ShortestPath(g *roadgraph.Graph, src, dst roadgraph.NodeID) (Path, error) {
	if !g.HasNode(dst) {
		return Path{}, fmt.Errorf("%w: %d", roadgraph.ErrNodeNotFound, dst)
	}
	t, err := search(g, src, map[roadgraph.NodeID]bool{dst: true})
	if err != nil {
		return Path{}, err
	}
	return t.PathTo(dst)
}

// search runs Dijkstra from src. With a non-nil target set it stops as soon
// as every target is settled; distances and predecessors of settled nodes are
// the same as in a full run.
func search(g *roadgraph.Graph, src roadgraph.NodeID, targets map[roadgraph.NodeID]bool) (*Tree, error) {
	if !g.HasNode(src) {
		return nil, fmt.Errorf("%w: %d", roadgraph.ErrNodeNotFound, src)
	}

	t := &Tree{
		dist:   map[roadgraph.NodeID]float64{src: 0},
		prev:   make(map[roadgraph.NodeID]*roadgraph.Edge),
		source: src,
	}
	settled := make(map[roadgraph.NodeID]bool)
	remaining := len(targets)

	pq := &queue{{node: src, dist: 0}}
	for pq.Len() > 0 {
		it := heap.Pop(pq).(entry)
		u := it.node
		if settled[u] || it.dist > t.dist[u] {
			continue // stale entry
		}
		settled[u] = true

		if targets[u] {
			remaining--
			if remaining == 0 {
				break
			}
		}

		for _, e := range g.Incident(u) {
			v := e.Other(u)
			if v == u || settled[v] {
				continue
			}
			nd := t.dist[u] + e.Length
			if old, ok := t.dist[v]; !ok || nd < old {
				t.dist[v] = nd
				t.prev[v] = e
				heap.Push(pq, entry{node: v, dist: nd})
			}
		}
	}

	// Only settled distances are final.
	for id := range t.dist {
		if !settled[id] {
			delete(t.dist, id)
			delete(t.prev, id)
		}
	}

	return t, nil
}

type entry struct {
	node roadgraph.NodeID
	dist float64
}

// queue is a min-heap on distance, lowest node id first on ties.
type queue []entry

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(entry)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
