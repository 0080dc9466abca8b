// Package spatial provides nearest-node lookups over a road graph.
package spatial

import (
	"errors"
	"math"

	"github.com/woozymasta/roadmst/internal/geo"
	"github.com/woozymasta/roadmst/internal/roadgraph"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// ErrEmptyIndex is returned when querying an index built from a graph without nodes.
var ErrEmptyIndex = errors.New("spatial: index has no nodes")

// DefaultCandidates is the number of planar nearest candidates re-ranked by
// haversine distance for every query.
const DefaultCandidates = 8

type item struct {
	rect rtreego.Rect
	id   roadgraph.NodeID
	pt   orb.Point
}

// Bounds implements rtreego.Spatial.
func (it *item) Bounds() rtreego.Rect {
	return it.rect
}

// Index answers nearest-node queries with an R-tree over projected node positions.
type Index struct {
	tree       *rtreego.Rtree
	proj       geo.Projection
	candidates int
}

// NewIndex builds an index over every node of g.
func NewIndex(g *roadgraph.Graph) *Index {
	ids := g.Nodes()

	var sumLat float64
	for _, id := range ids {
		n, _ := g.Node(id)
		sumLat += n.Lat
	}
	refLat := 0.0
	if len(ids) > 0 {
		refLat = sumLat / float64(len(ids))
	}
	proj := geo.NewProjection(refLat)

	objs := make([]rtreego.Spatial, 0, len(ids))
	for _, id := range ids {
		n, _ := g.Node(id)
		pt := orb.Point{n.Lon, n.Lat}
		x, y := proj.Project(pt)
		objs = append(objs, &item{
			rect: rtreego.Point{x, y}.ToRect(0.01),
			id:   id,
			pt:   pt,
		})
	}

	return &Index{
		tree:       rtreego.NewTree(2, 25, 50, objs...),
		proj:       proj,
		candidates: DefaultCandidates,
	}
}

// Size returns the number of indexed nodes.
func (ix *Index) Size() int {
	return ix.tree.Size()
}

// Nearest returns the nearest node id for every lon/lat point, in input order.
// Candidates are ranked by haversine distance, the lowest node id wins ties.
func (ix *Index) Nearest(points []orb.Point) ([]roadgraph.NodeID, error) {
	if ix.tree.Size() == 0 {
		return nil, ErrEmptyIndex
	}

	k := ix.candidates
	if size := ix.tree.Size(); k > size {
		k = size
	}

	out := make([]roadgraph.NodeID, len(points))
	for i, pt := range points {
		x, y := ix.proj.Project(pt)

		best := roadgraph.NodeID(0)
		bestDist := math.Inf(1)
		found := false
		for _, s := range ix.tree.NearestNeighbors(k, rtreego.Point{x, y}) {
			it, ok := s.(*item)
			if !ok || it == nil {
				continue
			}
			d := geo.Distance(pt, it.pt)
			if !found || d < bestDist || (d == bestDist && it.id < best) {
				best, bestDist, found = it.id, d, true
			}
		}
		if !found {
			return nil, ErrEmptyIndex
		}
		out[i] = best
	}

	return out, nil
}
