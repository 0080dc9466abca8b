// Package provider fetches road graphs and POI features from OpenStreetMap
// services or from local files.
package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/woozymasta/roadmst/internal/geo"
	"github.com/woozymasta/roadmst/internal/poi"
	"github.com/woozymasta/roadmst/internal/roadgraph"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/rs/zerolog/log"
)

// Public endpoints used when Overpass fields are left empty.
const (
	DefaultEndpoint  = "https://overpass-api.de/api/interpreter"
	DefaultNominatim = "https://nominatim.openstreetmap.org/search"
	DefaultUserAgent = "roadmst"
)

// Overpass area ids are the OSM id shifted by a per-type offset.
const (
	relationAreaOffset = 3600000000
	wayAreaOffset      = 2400000000
)

// Way filters per network type, the same tag rules OSMnx uses.
var networkFilters = map[string]string{
	"drive": `["highway"]["area"!~"yes"]["access"!~"private"]` +
		`["highway"!~"abandoned|bridleway|bus_guideway|construction|corridor|cycleway|elevator|escalator|footway|no|path|pedestrian|planned|platform|proposed|raceway|razed|service|steps|track"]` +
		`["motor_vehicle"!~"no"]["motorcar"!~"no"]` +
		`["service"!~"alley|driveway|emergency_access|parking|parking_aisle|private"]`,
	"drive_service": `["highway"]["area"!~"yes"]["access"!~"private"]` +
		`["highway"!~"abandoned|bridleway|bus_guideway|construction|corridor|cycleway|elevator|escalator|footway|no|path|pedestrian|planned|platform|proposed|raceway|razed|steps|track"]` +
		`["motor_vehicle"!~"no"]["motorcar"!~"no"]` +
		`["service"!~"emergency_access|parking|parking_aisle|private"]`,
	"walk": `["highway"]["area"!~"yes"]["access"!~"private"]` +
		`["highway"!~"abandoned|bus_guideway|construction|cycleway|motor|no|planned|platform|proposed|raceway|razed"]` +
		`["foot"!~"no"]["service"!~"private"]`,
	"bike": `["highway"]["area"!~"yes"]["access"!~"private"]` +
		`["highway"!~"abandoned|bus_guideway|construction|corridor|elevator|escalator|footway|motor|no|planned|platform|proposed|raceway|razed|steps"]` +
		`["bicycle"!~"no"]["service"!~"private"]`,
	"all": `["highway"]["area"!~"yes"]["access"!~"private"]` +
		`["highway"!~"abandoned|construction|no|planned|platform|proposed|raceway|razed"]` +
		`["service"!~"private"]`,
}

// Networks returns the supported network types.
func Networks() []string {
	return []string{"drive", "drive_service", "walk", "bike", "all"}
}

// Overpass talks to Nominatim for geocoding and to the Overpass API for data.
type Overpass struct {
	HTTP      *http.Client
	areas     map[string]int64
	Endpoint  string
	Nominatim string
	UserAgent string
	Timeout   time.Duration // server side query timeout
}

// NewOverpass creates a client with default endpoints.
func NewOverpass(client *http.Client) *Overpass {
	return &Overpass{
		HTTP:      client,
		Endpoint:  DefaultEndpoint,
		Nominatim: DefaultNominatim,
		UserAgent: DefaultUserAgent,
		Timeout:   3 * time.Minute,
	}
}

// Internal structures for Nominatim JSON parsing
type nominatimResult struct {
	OSMType     string `json:"osm_type"`
	DisplayName string `json:"display_name"`
	OSMID       int64  `json:"osm_id"`
}

// Area geocodes place and returns its Overpass area id.
// Only the first Nominatim result that is a relation or a closed way is used.
func (o *Overpass) Area(place string) (int64, error) {
	if id, ok := o.areas[place]; ok {
		return id, nil
	}

	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "5")

	req, err := http.NewRequest(http.MethodGet, o.nominatim()+"?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	body, err := o.do(req)
	if err != nil {
		return 0, fmt.Errorf("geocode %q: %w", place, err)
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return 0, fmt.Errorf("geocode %q: %w", place, err)
	}

	for _, r := range results {
		var id int64
		switch r.OSMType {
		case "relation":
			id = relationAreaOffset + r.OSMID
		case "way":
			id = wayAreaOffset + r.OSMID
		default:
			continue
		}

		log.Debug().
			Str("place", place).
			Str("match", r.DisplayName).
			Int64("area", id).
			Msg("Place geocoded")

		if o.areas == nil {
			o.areas = make(map[string]int64)
		}
		o.areas[place] = id
		return id, nil
	}

	return 0, fmt.Errorf("geocode %q: no polygon result", place)
}

// RoadGraph downloads the road network of place as a directed multigraph.
func (o *Overpass) RoadGraph(place, network string) (*roadgraph.Graph, error) {
	filter, ok := networkFilters[network]
	if !ok {
		return nil, fmt.Errorf("unknown network type %q", network)
	}

	area, err := o.Area(place)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("[out:json][timeout:%d];area(%d)->.searchArea;(way%s(area.searchArea););(._;>;);out;",
		o.timeoutSeconds(), area, filter)

	doc, err := o.query(query)
	if err != nil {
		return nil, fmt.Errorf("road graph %q: %w", place, err)
	}

	g := BuildRoadGraph(doc, network != "walk")
	g.Attrs["place"] = place
	g.Attrs["network"] = network

	log.Info().
		Str("place", place).
		Str("network", network).
		Int("nodes", g.NodeCount()).
		Int("edges", g.EdgeCount()).
		Msg("Road graph downloaded")

	return g, nil
}

// Features downloads the nodes and ways tagged with c inside place.
func (o *Overpass) Features(place string, c poi.Category) ([]poi.Record, error) {
	area, err := o.Area(place)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("[out:json][timeout:%d];area(%d)->.searchArea;(nwr[%q=%q](area.searchArea););(._;>;);out;",
		o.timeoutSeconds(), area, c.Key, c.Value)

	doc, err := o.query(query)
	if err != nil {
		return nil, err
	}

	return BuildRecords(doc, c), nil
}

// BuildRoadGraph turns OSM ways into a directed multigraph.
// Every consecutive node pair of a way becomes an edge carrying its haversine
// length. With honorOneway false every segment is added in both directions.
func BuildRoadGraph(doc *osm.OSM, honorOneway bool) *roadgraph.Graph {
	g := roadgraph.New(true)
	g.Attrs["crs"] = "epsg:4326"

	coords := make(map[osm.NodeID]*osm.Node, len(doc.Nodes))
	for _, n := range doc.Nodes {
		coords[n.ID] = n
	}

	skipped := 0
	for _, w := range doc.Ways {
		dir := bothWays
		if honorOneway {
			dir = onewayDirection(w.Tags)
		}

		attrs := map[string]any{
			"osmid":   int64(w.ID),
			"highway": w.Tags.Find("highway"),
		}
		if name := w.Tags.Find("name"); name != "" {
			attrs["name"] = name
		}
		attrs["oneway"] = dir != bothWays

		for i := 1; i < len(w.Nodes); i++ {
			a, okA := coords[w.Nodes[i-1].ID]
			b, okB := coords[w.Nodes[i].ID]
			if !okA || !okB {
				skipped++
				continue
			}
			if a.ID == b.ID {
				continue
			}

			addOSMNode(g, a)
			addOSMNode(g, b)

			length := geo.Distance(a.Point(), b.Point())
			from, to := roadgraph.NodeID(a.ID), roadgraph.NodeID(b.ID)

			// Errors are impossible here: both nodes exist and length is finite.
			if dir != reverseOnly {
				_, _ = g.AddEdge(from, to, length, maps.Clone(attrs))
			}
			if dir != forwardOnly {
				_, _ = g.AddEdge(to, from, length, maps.Clone(attrs))
			}
		}
	}

	if skipped > 0 {
		log.Debug().Int("segments", skipped).Msg("Skipped segments with unknown nodes")
	}

	return g
}

// BuildRecords extracts the elements tagged with c.
// Nodes become points, closed ways polygons and open ways line strings.
func BuildRecords(doc *osm.OSM, c poi.Category) []poi.Record {
	coords := make(map[osm.NodeID]*osm.Node, len(doc.Nodes))
	for _, n := range doc.Nodes {
		coords[n.ID] = n
	}

	var records []poi.Record
	for _, n := range doc.Nodes {
		if n.Tags.Find(c.Key) != c.Value {
			continue
		}
		records = append(records, newRecord(n.Tags, n.Point(), c))
	}

	for _, w := range doc.Ways {
		if w.Tags.Find(c.Key) != c.Value {
			continue
		}

		line := make(orb.LineString, 0, len(w.Nodes))
		for _, wn := range w.Nodes {
			n, ok := coords[wn.ID]
			if !ok {
				continue
			}
			line = append(line, n.Point())
		}
		if len(line) == 0 {
			continue
		}

		var geom orb.Geometry = line
		if len(line) >= 4 && line[0] == line[len(line)-1] {
			geom = orb.Polygon{orb.Ring(line)}
		}
		records = append(records, newRecord(w.Tags, geom, c))
	}

	return records
}

func newRecord(tags osm.Tags, geom orb.Geometry, c poi.Category) poi.Record {
	return poi.Record{
		Name:     strings.TrimSpace(tags.Find("name")),
		Category: c,
		Tags:     tags.Map(),
		Geometry: geom,
	}
}

func addOSMNode(g *roadgraph.Graph, n *osm.Node) {
	id := roadgraph.NodeID(n.ID)
	if g.HasNode(id) {
		return
	}
	g.AddNode(roadgraph.Node{ID: id, Lat: n.Lat, Lon: n.Lon})
}

type direction int

const (
	bothWays direction = iota
	forwardOnly
	reverseOnly
)

func onewayDirection(tags osm.Tags) direction {
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		return forwardOnly
	case "-1", "reverse":
		return reverseOnly
	}
	if tags.Find("junction") == "roundabout" {
		return forwardOnly
	}
	return bothWays
}

// query posts an Overpass QL query and decodes the JSON answer.
func (o *Overpass) query(q string) (*osm.OSM, error) {
	form := url.Values{}
	form.Set("data", q)

	req, err := http.NewRequest(http.MethodPost, o.endpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	log.Trace().Str("query", q).Msg("Overpass query")

	body, err := o.do(req)
	if err != nil {
		return nil, err
	}

	doc := &osm.OSM{}
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	return doc, nil
}

func (o *Overpass) do(req *http.Request) ([]byte, error) {
	ua := o.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := o.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (o *Overpass) endpoint() string {
	if o.Endpoint == "" {
		return DefaultEndpoint
	}
	return o.Endpoint
}

func (o *Overpass) nominatim() string {
	if o.Nominatim == "" {
		return DefaultNominatim
	}
	return o.Nominatim
}

func (o *Overpass) timeoutSeconds() int {
	if o.Timeout <= 0 {
		return 180
	}
	return int(o.Timeout.Seconds())
}
