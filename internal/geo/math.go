// Package geo handles geographic coordinates, distances and projections.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// EarthRadius in meters, shared with the haversine distance.
const EarthRadius = orb.EarthRadius

// Distance returns the great-circle distance in meters between two lon/lat points.
func Distance(a, b orb.Point) float64 {
	return orbgeo.DistanceHaversine(a, b)
}

// Representative returns the point used to locate a geometry on the map:
// the point itself, or the centroid for any other geometry.
// It reports false for nil or empty geometries.
func Representative(g orb.Geometry) (orb.Point, bool) {
	switch v := g.(type) {
	case nil:
		return orb.Point{}, false
	case orb.Point:
		return v, true
	}
	if g.Bound().IsEmpty() {
		return orb.Point{}, false
	}

	c, _ := planar.CentroidArea(g)
	if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return orb.Point{}, false
	}

	return c, true
}

// Projection is a local equirectangular projection from lon/lat degrees to meters.
// Distortion is negligible at city scale around the reference latitude.
type Projection struct {
	cosLat float64
}

// NewProjection builds a projection centred on the given latitude.
func NewProjection(refLat float64) Projection {
	return Projection{cosLat: math.Cos(refLat * math.Pi / 180)}
}

// Project converts a lon/lat point into planar meters (x east, y north).
func (p Projection) Project(pt orb.Point) (x, y float64) {
	x = EarthRadius * pt.Lon() * math.Pi / 180 * p.cosLat
	y = EarthRadius * pt.Lat() * math.Pi / 180
	return x, y
}
