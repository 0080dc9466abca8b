package roadgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Internal structures for node-link JSON as written by networkx / OSMnx.
type nodeLinkDoc struct {
	Graph      json.RawMessage  `json:"graph,omitempty"`
	Nodes      []map[string]any `json:"nodes"`
	Links      []map[string]any `json:"links,omitempty"`
	Edges      []map[string]any `json:"edges,omitempty"`
	Directed   bool             `json:"directed"`
	Multigraph bool             `json:"multigraph"`
}

// Node keys consumed by the loader; everything else is kept in Attrs.
var reservedNodeKeys = map[string]bool{"id": true, "x": true, "y": true}

// Edge keys consumed by the loader.
var reservedEdgeKeys = map[string]bool{"source": true, "target": true, "key": true, "length": true}

// ReadNodeLink decodes a node-link JSON document into a graph.
// Node coordinates come from "x" (lon) and "y" (lat), edge length from "length".
// Both the "links" and the newer "edges" spelling are accepted, as is a
// document wrapped under a top-level "graph" key.
func ReadNodeLink(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc, err := decodeNodeLink(data)
	if err != nil {
		return nil, err
	}

	g := New(doc.Directed)
	if len(doc.Graph) > 0 {
		var attrs map[string]any
		if err := json.Unmarshal(doc.Graph, &attrs); err == nil {
			for k, v := range attrs {
				g.Attrs[k] = v
			}
		}
	}

	for i, raw := range doc.Nodes {
		id, err := parseID(raw["id"])
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		lon, errX := toFloat(raw["x"])
		lat, errY := toFloat(raw["y"])
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("node %d: missing coordinates", id)
		}
		g.AddNode(Node{ID: id, Lat: lat, Lon: lon, Attrs: extraAttrs(raw, reservedNodeKeys)})
	}

	links := doc.Links
	if len(links) == 0 {
		links = doc.Edges
	}
	for i, raw := range links {
		from, err := parseID(raw["source"])
		if err != nil {
			return nil, fmt.Errorf("link %d source: %w", i, err)
		}
		to, err := parseID(raw["target"])
		if err != nil {
			return nil, fmt.Errorf("link %d target: %w", i, err)
		}
		length, err := toFloat(raw["length"])
		if err != nil {
			return nil, fmt.Errorf("link %d (%d-%d): length: %w", i, from, to, err)
		}
		if _, err := g.AddEdge(from, to, length, extraAttrs(raw, reservedEdgeKeys)); err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
	}

	return g, nil
}

func decodeNodeLink(data []byte) (nodeLinkDoc, error) {
	var doc nodeLinkDoc
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return doc, fmt.Errorf("failed to parse node-link JSON: %w", err)
	}
	if len(doc.Nodes) > 0 || len(doc.Graph) == 0 {
		return doc, nil
	}

	// Wrapped form: {"graph": {"directed": ..., "nodes": [...], "links": [...]}}
	var inner nodeLinkDoc
	dec = json.NewDecoder(bytes.NewReader(doc.Graph))
	dec.UseNumber()
	if err := dec.Decode(&inner); err != nil {
		return doc, fmt.Errorf("failed to parse wrapped node-link JSON: %w", err)
	}
	return inner, nil
}

// WriteNodeLink encodes g as a node-link JSON document readable by ReadNodeLink.
func WriteNodeLink(w io.Writer, g *Graph) error {
	doc := nodeLinkDoc{
		Directed:   g.directed,
		Multigraph: true,
		Nodes:      make([]map[string]any, 0, len(g.order)),
		Links:      make([]map[string]any, 0, len(g.edges)),
	}

	attrs, err := json.Marshal(g.Attrs)
	if err != nil {
		return err
	}
	doc.Graph = attrs

	for _, id := range g.order {
		n := g.nodes[id]
		raw := copyAttrs(n.Attrs)
		if raw == nil {
			raw = make(map[string]any, 3)
		}
		raw["id"] = int64(n.ID)
		raw["x"] = n.Lon
		raw["y"] = n.Lat
		doc.Nodes = append(doc.Nodes, raw)
	}
	for _, e := range g.edges {
		raw := copyAttrs(e.Attrs)
		if raw == nil {
			raw = make(map[string]any, 4)
		}
		raw["source"] = int64(e.From)
		raw["target"] = int64(e.To)
		raw["key"] = e.Key
		raw["length"] = e.Length
		doc.Links = append(doc.Links, raw)
	}

	return json.NewEncoder(w).Encode(doc)
}

func extraAttrs(raw map[string]any, reserved map[string]bool) map[string]any {
	var attrs map[string]any
	for k, v := range raw {
		if reserved[k] {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]any, len(raw))
		}
		attrs[k] = plain(v)
	}
	return attrs
}

// plain turns json.Number values into float64 or int64.
func plain(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}

func parseID(v any) (NodeID, error) {
	switch id := v.(type) {
	case json.Number:
		i, err := id.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid id %q", id)
		}
		return NodeID(i), nil
	case string:
		i, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid id %q", id)
		}
		return NodeID(i), nil
	case float64:
		return NodeID(id), nil
	case int64:
		return NodeID(id), nil
	case nil:
		return 0, fmt.Errorf("missing id")
	default:
		return 0, fmt.Errorf("unsupported id type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch f := v.(type) {
	case json.Number:
		return f.Float64()
	case float64:
		return f, nil
	case string:
		return strconv.ParseFloat(f, 64)
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
