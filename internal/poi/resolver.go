package poi

import (
	"fmt"

	"github.com/woozymasta/roadmst/internal/geo"
	"github.com/woozymasta/roadmst/internal/roadgraph"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// Locator answers a bulk nearest-node query, one id per point in input order.
type Locator interface {
	Nearest(points []orb.Point) ([]roadgraph.NodeID, error)
}

// Placement is a record snapped onto a road graph node.
type Placement struct {
	Details Details
	Node    roadgraph.NodeID
	Index   int // position of the record in the input
}

// Resolution maps distinct road graph nodes to the first record snapped onto them.
type Resolution struct {
	Details  map[roadgraph.NodeID]Details
	Nodes    []roadgraph.NodeID // first-occurrence order
	Records  int                // raw records considered
	Eligible int                // distinct nodes before any limit
}

// Snap locates every record and pairs it with its nearest node.
// Records without a usable geometry and records whose node is not part of g
// are skipped. Duplicated nodes are kept.
func Snap(g *roadgraph.Graph, records []Record, loc Locator) ([]Placement, error) {
	points := make([]orb.Point, 0, len(records))
	index := make([]int, 0, len(records))
	details := make([]Details, 0, len(records))

	for i, r := range records {
		pt, ok := geo.Representative(r.Geometry)
		if !ok {
			log.Debug().Int("record", i).Str("name", r.Name).Msg("Skipping POI without geometry")
			continue
		}
		points = append(points, pt)
		index = append(index, i)
		details = append(details, Details{
			Name:     DisplayName(r),
			Category: r.Category,
			Lat:      pt.Lat(),
			Lon:      pt.Lon(),
		})
	}
	if len(points) == 0 {
		return nil, nil
	}

	nearest, err := loc.Nearest(points)
	if err != nil {
		return nil, fmt.Errorf("nearest nodes: %w", err)
	}
	if len(nearest) != len(points) {
		return nil, fmt.Errorf("nearest nodes: got %d ids for %d points", len(nearest), len(points))
	}

	placements := make([]Placement, 0, len(points))
	for k, id := range nearest {
		if !g.HasNode(id) {
			log.Trace().
				Int64("node", int64(id)).
				Str("name", details[k].Name).
				Msg("POI node outside the connected road graph")
			continue
		}
		placements = append(placements, Placement{Details: details[k], Node: id, Index: index[k]})
	}

	return placements, nil
}

// Resolve snaps records onto g and keeps each node once, with the details of
// the first record that reached it, in first-occurrence order.
// It fails with *InsufficientPOIsError when fewer than two distinct nodes remain.
func Resolve(g *roadgraph.Graph, records []Record, loc Locator) (*Resolution, error) {
	placements, err := Snap(g, records, loc)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Details: make(map[roadgraph.NodeID]Details, len(placements)),
		Records: len(records),
	}
	for _, p := range placements {
		if _, seen := res.Details[p.Node]; seen {
			continue
		}
		res.Details[p.Node] = p.Details
		res.Nodes = append(res.Nodes, p.Node)
	}
	res.Eligible = len(res.Nodes)

	if len(res.Nodes) < MinResolved {
		return nil, &InsufficientPOIsError{Records: len(records), Found: len(res.Nodes), Required: MinResolved}
	}

	return res, nil
}

// Limit returns a copy holding only the first k nodes. k <= 0 keeps everything.
func (r *Resolution) Limit(k int) *Resolution {
	out := &Resolution{
		Details:  make(map[roadgraph.NodeID]Details, len(r.Nodes)),
		Records:  r.Records,
		Eligible: r.Eligible,
	}

	nodes := r.Nodes
	if k > 0 && len(nodes) > k {
		nodes = nodes[:k]
	}
	out.Nodes = append(make([]roadgraph.NodeID, 0, len(nodes)), nodes...)
	for _, id := range out.Nodes {
		out.Details[id] = r.Details[id]
	}

	return out
}
