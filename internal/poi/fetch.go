package poi

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// FeatureSource returns the raw features of a category inside a place.
type FeatureSource interface {
	Features(place string, c Category) ([]Record, error)
}

// Fetch tries the categories in order and returns the first non-empty result
// together with the category that produced it.
// It fails with ErrEmptyResult when every category comes back empty.
func Fetch(src FeatureSource, place string, categories []Category) ([]Record, Category, error) {
	for i, c := range categories {
		records, err := src.Features(place, c)
		if err != nil {
			return nil, c, fmt.Errorf("fetch %s: %w", c, err)
		}
		if len(records) > 0 {
			log.Debug().
				Str("category", c.String()).
				Int("features", len(records)).
				Msg("POI features fetched")
			return records, c, nil
		}

		if i < len(categories)-1 {
			log.Warn().
				Str("category", c.String()).
				Str("fallback", categories[i+1].String()).
				Msg("No features found, trying fallback category")
		}
	}

	return nil, Category{}, fmt.Errorf("%w for categories %v in %q", ErrEmptyResult, categories, place)
}
