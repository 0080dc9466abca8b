// Package poi resolves raw points of interest onto road graph nodes.
package poi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

var (
	// ErrEmptyResult means no features were found for any of the attempted categories.
	ErrEmptyResult = errors.New("poi: no features found")

	// ErrInsufficientPOIs means fewer than two distinct POI nodes resolved inside the road graph.
	ErrInsufficientPOIs = errors.New("poi: insufficient POIs")
)

// MinResolved is the minimum number of distinct nodes needed to build a spanning tree.
const MinResolved = 2

// InsufficientPOIsError reports how many distinct nodes resolved.
type InsufficientPOIsError struct {
	Records  int // raw records considered
	Found    int // distinct nodes inside the road graph
	Required int
}

func (e *InsufficientPOIsError) Error() string {
	return fmt.Sprintf("insufficient POIs for a spanning tree: %d of %d records resolved to distinct nodes in the connected road graph, need at least %d",
		e.Found, e.Records, e.Required)
}

// Is makes errors.Is(err, ErrInsufficientPOIs) match.
func (e *InsufficientPOIsError) Is(target error) bool {
	return target == ErrInsufficientPOIs
}

// Category is a tag filter such as amenity=pharmacy.
type Category struct {
	Key   string `yaml:"key"   json:"key"`
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label,omitempty"` // human label, e.g. "Pharmacy"
}

// String renders the category as key=value.
func (c Category) String() string {
	return c.Key + "=" + c.Value
}

// DisplayLabel returns Label, or the capitalized value when no label is set.
func (c Category) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	if c.Value == "" {
		return "POI"
	}
	return strings.ToUpper(c.Value[:1]) + c.Value[1:]
}

// Record is a raw POI feature.
// An empty Name means the source had no usable name.
type Record struct {
	Tags     map[string]string
	Geometry orb.Geometry
	Category Category
	Name     string
}

// Details is what gets attached to a resolved node.
type Details struct {
	Name     string
	Category Category
	Lat      float64
	Lon      float64
}

// DisplayName picks the label shown for a record:
//
//	name present  -> the name
//	name absent   -> "<Label> (unnamed)"
func DisplayName(r Record) string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return r.Category.DisplayLabel() + " (unnamed)"
}
