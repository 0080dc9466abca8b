package routing

import (
	"fmt"
	"sync"
	"time"

	"github.com/woozymasta/roadmst/internal/roadgraph"

	"github.com/rs/zerolog/log"
)

// AuxEdge is an edge of the auxiliary graph: the road distance between two POI nodes.
type AuxEdge struct {
	U, V   roadgraph.NodeID
	I, J   int     // indexes of U and V in Auxiliary.Nodes, I < J
	Weight float64 // shortest road distance in meters
}

// Auxiliary is the complete graph over POI nodes weighted by road distance.
// Edges are ordered by (I, J).
type Auxiliary struct {
	Nodes []roadgraph.NodeID
	Edges []AuxEdge
}

// Options tunes BuildAuxiliary.
type Options struct {
	// Workers is the number of concurrent single-source searches.
	// Values below 2 run sequentially.
	Workers int
}

type sourceResult struct {
	err   error
	edges []AuxEdge
	i     int
}

// BuildAuxiliary computes the shortest road distance between every pair of
// nodes. One single-source search per node settles all later nodes, so n
// nodes cost n searches and yield n(n-1)/2 edges.
// The road graph is only read, so searches may run concurrently; the output
// does not depend on the number of workers.
func BuildAuxiliary(g *roadgraph.Graph, nodes []roadgraph.NodeID, opts Options) (*Auxiliary, error) {
	n := len(nodes)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewNodes, n)
	}

	seen := make(map[roadgraph.NodeID]bool, n)
	for _, id := range nodes {
		if seen[id] {
			return nil, fmt.Errorf("routing: duplicate node %d", id)
		}
		seen[id] = true
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > n-1 {
		workers = n - 1
	}

	start := time.Now()
	jobs := make(chan int, n-1)
	results := make(chan sourceResult, n-1)

	go func() {
		for i := 0; i < n-1; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				edges, err := fromSource(g, nodes, i)
				results <- sourceResult{i: i, edges: edges, err: err}
			}
		}()
	}
	wg.Wait()
	close(results)

	bySource := make([][]AuxEdge, n-1)
	var firstErr error
	firstErrAt := n
	for res := range results {
		if res.err != nil {
			if res.i < firstErrAt {
				firstErr, firstErrAt = res.err, res.i
			}
			continue
		}
		bySource[res.i] = res.edges
	}
	if firstErr != nil {
		return nil, firstErr
	}

	aux := &Auxiliary{
		Nodes: append(make([]roadgraph.NodeID, 0, n), nodes...),
		Edges: make([]AuxEdge, 0, n*(n-1)/2),
	}
	for _, edges := range bySource {
		aux.Edges = append(aux.Edges, edges...)
	}

	log.Debug().
		Int("nodes", n).
		Int("edges", len(aux.Edges)).
		Int("workers", workers).
		Dur("took", time.Since(start)).
		Msg("Auxiliary graph built")

	return aux, nil
}

// fromSource computes the edges (i, j) for every j > i.
func fromSource(g *roadgraph.Graph, nodes []roadgraph.NodeID, i int) ([]AuxEdge, error) {
	targets := make(map[roadgraph.NodeID]bool, len(nodes)-i-1)
	for _, id := range nodes[i+1:] {
		targets[id] = true
	}

	t, err := search(g, nodes[i], targets)
	if err != nil {
		return nil, err
	}

	edges := make([]AuxEdge, 0, len(nodes)-i-1)
	for j := i + 1; j < len(nodes); j++ {
		d, ok := t.Dist(nodes[j])
		if !ok {
			return nil, fmt.Errorf("%w: %d -> %d", ErrDisconnectedPath, nodes[i], nodes[j])
		}
		edges = append(edges, AuxEdge{U: nodes[i], V: nodes[j], I: i, J: j, Weight: d})
	}

	log.Trace().
		Int64("source", int64(nodes[i])).
		Int("targets", len(edges)).
		Msg("Source distances computed")

	return edges, nil
}

// Weight returns the weight of the edge between node indexes i and j.
func (a *Auxiliary) Weight(i, j int) (float64, bool) {
	if i == j || i < 0 || j < 0 || i >= len(a.Nodes) || j >= len(a.Nodes) {
		return 0, false
	}
	if i > j {
		i, j = j, i
	}
	// Row i starts after the edges of rows 0..i-1, which hold (n-1)+(n-2)+...+(n-i) edges.
	n := len(a.Nodes)
	off := i*(2*n-i-1)/2 + (j - i - 1)
	if off >= len(a.Edges) {
		return 0, false
	}
	return a.Edges[off].Weight, true
}
