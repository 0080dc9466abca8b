package provider

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/woozymasta/roadmst/internal/poi"
	"github.com/woozymasta/roadmst/internal/roadgraph"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// File serves a road graph and POI features from local snapshots.
// Place and network arguments are ignored, the files already hold one place.
type File struct {
	RoadGraphPath string // node-link JSON
	FeaturesPath  string // GeoJSON FeatureCollection
}

// RoadGraph reads the node-link JSON road graph.
func (f File) RoadGraph(place, network string) (*roadgraph.Graph, error) {
	if f.RoadGraphPath == "" {
		return nil, fmt.Errorf("no road graph file configured")
	}

	r, err := os.Open(f.RoadGraphPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	g, err := roadgraph.ReadNodeLink(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.RoadGraphPath, err)
	}

	log.Debug().
		Str("path", f.RoadGraphPath).
		Int("nodes", g.NodeCount()).
		Int("edges", g.EdgeCount()).
		Msg("Road graph loaded from file")

	return g, nil
}

// Features reads the GeoJSON file and keeps the features matching c.
func (f File) Features(place string, c poi.Category) ([]poi.Record, error) {
	if f.FeaturesPath == "" {
		return nil, fmt.Errorf("no features file configured")
	}

	data, err := os.ReadFile(f.FeaturesPath)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.FeaturesPath, err)
	}

	return FilterFeatures(fc, c), nil
}

// FilterFeatures converts GeoJSON features into records of category c.
// A feature is dropped when it carries the category key with another value;
// features without the key are assumed to belong to the file's category.
func FilterFeatures(fc *geojson.FeatureCollection, c poi.Category) []poi.Record {
	records := make([]poi.Record, 0, len(fc.Features))
	for _, feat := range fc.Features {
		if feat.Geometry == nil {
			continue
		}
		if v, ok := feat.Properties[c.Key]; ok && v != nil && fmt.Sprint(v) != c.Value {
			continue
		}

		tags := make(map[string]string, len(feat.Properties))
		for k, v := range feat.Properties {
			if s := propString(v); s != "" {
				tags[k] = s
			}
		}

		records = append(records, poi.Record{
			Name:     propString(feat.Properties["name"]),
			Category: c,
			Tags:     tags,
			Geometry: feat.Geometry,
		})
	}
	return records
}

// propString flattens a property to text; null and "nan" become empty.
func propString(v any) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

// WriteFeatures encodes records as a GeoJSON FeatureCollection.
// Tags become properties; name and the category tag are always set.
func WriteFeatures(w io.Writer, records []poi.Record) error {
	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		if r.Geometry == nil {
			continue
		}

		feat := geojson.NewFeature(r.Geometry)
		for k, v := range r.Tags {
			feat.Properties[k] = v
		}
		if r.Name != "" {
			feat.Properties["name"] = r.Name
		}
		if r.Category.Key != "" {
			feat.Properties[r.Category.Key] = r.Category.Value
		}
		fc.Append(feat)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
