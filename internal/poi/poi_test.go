package poi

import (
	"errors"
	"math"
	"testing"

	"github.com/woozymasta/roadmst/internal/roadgraph"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pharmacy = Category{Key: "amenity", Value: "pharmacy", Label: "Pharmacy"}

// fakeLocator maps a point's rounded longitude to a node id.
type fakeLocator struct {
	byLon map[int]roadgraph.NodeID
	calls int
}

func (f *fakeLocator) Nearest(points []orb.Point) ([]roadgraph.NodeID, error) {
	f.calls++
	out := make([]roadgraph.NodeID, len(points))
	for i, p := range points {
		out[i] = f.byLon[int(math.Round(p.Lon()))]
	}
	return out, nil
}

func lineGraph() *roadgraph.Graph {
	g := roadgraph.New(false)
	for _, id := range []roadgraph.NodeID{1, 2, 3, 4} {
		g.AddNode(roadgraph.Node{ID: id, Lon: float64(id)})
	}
	return g
}

func rec(name string, lon float64) Record {
	return Record{Name: name, Category: pharmacy, Geometry: orb.Point{lon, 0}}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{name: "named", rec: Record{Name: "Drogasil", Category: pharmacy}, want: "Drogasil"},
		{name: "absent", rec: Record{Category: pharmacy}, want: "Pharmacy (unnamed)"},
		{name: "blank", rec: Record{Name: "  ", Category: pharmacy}, want: "Pharmacy (unnamed)"},
		{name: "no label", rec: Record{Category: Category{Key: "amenity", Value: "hospital"}}, want: "Hospital (unnamed)"},
		{name: "no category", rec: Record{}, want: "POI (unnamed)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.rec))
		})
	}
}

func TestResolveDeduplicatesFirstWins(t *testing.T) {
	loc := &fakeLocator{byLon: map[int]roadgraph.NodeID{10: 3, 11: 3, 12: 1}}
	records := []Record{rec("First", 10), rec("Second", 11), rec("Third", 12)}

	res, err := Resolve(lineGraph(), records, loc)
	require.NoError(t, err)

	assert.Equal(t, 1, loc.calls, "nearest nodes are queried in one batch")
	assert.Equal(t, []roadgraph.NodeID{3, 1}, res.Nodes)
	assert.Equal(t, "First", res.Details[3].Name)
	assert.Equal(t, 10.0, res.Details[3].Lon)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 2, res.Eligible)
}

func TestResolveSkipsPrunedNodes(t *testing.T) {
	loc := &fakeLocator{byLon: map[int]roadgraph.NodeID{10: 99, 11: 2, 12: 4}}
	records := []Record{rec("Pruned", 10), rec("B", 11), rec("D", 12)}

	res, err := Resolve(lineGraph(), records, loc)
	require.NoError(t, err)
	assert.Equal(t, []roadgraph.NodeID{2, 4}, res.Nodes)
	assert.NotContains(t, res.Details, roadgraph.NodeID(99))
}

func TestResolveInsufficient(t *testing.T) {
	loc := &fakeLocator{byLon: map[int]roadgraph.NodeID{10: 2, 11: 2, 12: 99}}
	records := []Record{rec("A", 10), rec("B", 11), rec("C", 12)}

	res, err := Resolve(lineGraph(), records, loc)
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrInsufficientPOIs)

	var ie *InsufficientPOIsError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 1, ie.Found)
	assert.Equal(t, 3, ie.Records)
	assert.Equal(t, MinResolved, ie.Required)
	assert.Contains(t, err.Error(), "1 of 3")
}

func TestResolveNoRecords(t *testing.T) {
	_, err := Resolve(lineGraph(), nil, &fakeLocator{})
	assert.ErrorIs(t, err, ErrInsufficientPOIs)
}

func TestResolveDeterministic(t *testing.T) {
	loc := &fakeLocator{byLon: map[int]roadgraph.NodeID{10: 4, 11: 1, 12: 4, 13: 2}}
	records := []Record{rec("A", 10), rec("", 11), rec("C", 12), rec("D", 13)}

	first, err := Resolve(lineGraph(), records, loc)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Resolve(lineGraph(), records, loc)
		require.NoError(t, err)
		assert.Equal(t, first.Nodes, again.Nodes)
		assert.Equal(t, first.Details, again.Details)
	}
	assert.Equal(t, "Pharmacy (unnamed)", first.Details[1].Name)
}

func TestResolvePolygonCentroid(t *testing.T) {
	loc := &fakeLocator{byLon: map[int]roadgraph.NodeID{11: 1, 20: 2}}
	records := []Record{
		{Name: "Mall pharmacy", Category: pharmacy, Geometry: orb.Polygon{{{10, 0}, {12, 0}, {12, 2}, {10, 2}, {10, 0}}}},
		rec("Other", 20),
		{Name: "No geometry", Category: pharmacy},
	}

	res, err := Resolve(lineGraph(), records, loc)
	require.NoError(t, err)
	assert.Equal(t, []roadgraph.NodeID{1, 2}, res.Nodes)
	assert.InDelta(t, 11.0, res.Details[1].Lon, 1e-9)
	assert.InDelta(t, 1.0, res.Details[1].Lat, 1e-9)
}

func TestResolutionLimit(t *testing.T) {
	loc := &fakeLocator{byLon: map[int]roadgraph.NodeID{10: 1, 11: 2, 12: 3, 13: 4}}
	records := []Record{rec("A", 10), rec("B", 11), rec("C", 12), rec("D", 13)}

	res, err := Resolve(lineGraph(), records, loc)
	require.NoError(t, err)

	capped := res.Limit(2)
	assert.Equal(t, []roadgraph.NodeID{1, 2}, capped.Nodes)
	assert.Len(t, capped.Details, 2)
	assert.Equal(t, 4, capped.Eligible)
	assert.Len(t, res.Nodes, 4, "limit does not modify the receiver")

	assert.Equal(t, res.Nodes, res.Limit(0).Nodes)
	assert.Equal(t, res.Nodes, res.Limit(10).Nodes)
}

func TestSnapKeepsDuplicatesWithOwnDetails(t *testing.T) {
	loc := &fakeLocator{byLon: map[int]roadgraph.NodeID{10: 99, 11: 2, 12: 2}}
	hospital := Category{Key: "amenity", Value: "hospital", Label: "Hospital"}
	records := []Record{
		{Name: "Out", Category: hospital, Geometry: orb.Point{10, 0}},
		{Name: "Walfredo", Category: hospital, Geometry: orb.Point{11, 0}},
		{Category: hospital, Geometry: orb.Point{12, 0}},
	}

	got, err := Snap(lineGraph(), records, loc)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Walfredo", got[0].Details.Name)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, "Hospital (unnamed)", got[1].Details.Name)
	assert.Equal(t, 2, got[1].Index)
}

type fakeSource map[string][]Record

func (f fakeSource) Features(_ string, c Category) ([]Record, error) {
	if c.Value == "broken" {
		return nil, errors.New("overpass unavailable")
	}
	return f[c.Value], nil
}

func TestFetchFallback(t *testing.T) {
	school := Category{Key: "amenity", Value: "school"}
	hospital := Category{Key: "amenity", Value: "hospital"}
	src := fakeSource{"school": {rec("Escola", 1)}}

	records, used, err := Fetch(src, "Natal", []Category{hospital, school})
	require.NoError(t, err)
	assert.Equal(t, school, used)
	assert.Len(t, records, 1)
}

func TestFetchEmptyResult(t *testing.T) {
	_, _, err := Fetch(fakeSource{}, "Natal", []Category{pharmacy})
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, _, err = Fetch(fakeSource{}, "Natal", nil)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestFetchSourceError(t *testing.T) {
	_, _, err := Fetch(fakeSource{}, "Natal", []Category{{Key: "amenity", Value: "broken"}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyResult)
	assert.Contains(t, err.Error(), "amenity=broken")
}
