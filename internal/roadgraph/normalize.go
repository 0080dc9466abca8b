package roadgraph

// ToUndirected converts g into an undirected multigraph.
// Nodes, node attributes, edge attributes and graph attributes are copied.
// Every directed edge becomes its own undirected edge, so reciprocal
// u->v and v->u roads end up as two parallel edges.
func ToUndirected(g *Graph) *Graph {
	h := New(false)
	for k, v := range g.Attrs {
		h.Attrs[k] = v
	}

	for _, id := range g.order {
		n := *g.nodes[id]
		n.Attrs = copyAttrs(n.Attrs)
		h.AddNode(n)
	}
	for _, e := range g.edges {
		// Endpoints and length were validated when e was added to g.
		_, _ = h.AddEdge(e.From, e.To, e.Length, copyAttrs(e.Attrs))
	}

	return h
}

// Components returns the weakly connected components of g.
// Components are ordered by their first node in insertion order,
// and nodes inside a component are in BFS order.
func Components(g *Graph) [][]NodeID {
	undirected := g
	if g.directed {
		undirected = ToUndirected(g)
	}

	seen := make(map[NodeID]bool, len(undirected.order))
	var comps [][]NodeID
	for _, start := range undirected.order {
		if seen[start] {
			continue
		}
		seen[start] = true
		comp := []NodeID{start}
		for i := 0; i < len(comp); i++ {
			u := comp[i]
			for _, e := range undirected.adj[u] {
				v := e.Other(u)
				if !seen[v] {
					seen[v] = true
					comp = append(comp, v)
				}
			}
		}
		comps = append(comps, comp)
	}

	return comps
}

// Subgraph returns a new graph induced by the given node set.
// Node and edge attribute maps are shallow-copied; insertion order follows g.
func Subgraph(g *Graph, keep map[NodeID]bool) *Graph {
	h := New(g.directed)
	for k, v := range g.Attrs {
		h.Attrs[k] = v
	}
	for _, id := range g.order {
		if !keep[id] {
			continue
		}
		n := *g.nodes[id]
		n.Attrs = copyAttrs(n.Attrs)
		h.AddNode(n)
	}
	for _, e := range g.edges {
		if keep[e.From] && keep[e.To] {
			_, _ = h.AddEdge(e.From, e.To, e.Length, copyAttrs(e.Attrs))
		}
	}

	return h
}

// LargestComponent returns the subgraph induced by the component with the
// most nodes. The first such component wins on ties.
func LargestComponent(g *Graph) *Graph {
	var largest []NodeID
	for _, comp := range Components(g) {
		if len(comp) > len(largest) {
			largest = comp
		}
	}

	keep := make(map[NodeID]bool, len(largest))
	for _, id := range largest {
		keep[id] = true
	}

	return Subgraph(g, keep)
}

// Normalize converts g into an undirected multigraph restricted to its
// largest connected component.
func Normalize(g *Graph) *Graph {
	return LargestComponent(ToUndirected(g))
}
