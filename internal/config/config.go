// Package config handles loading and validation of the run configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/woozymasta/roadmst/internal/poi"
	"github.com/woozymasta/roadmst/internal/provider"
	"github.com/woozymasta/roadmst/internal/render"

	"gopkg.in/yaml.v3"
)

// DefaultMaxPOIs caps the nodes fed into the router when pois.max is unset.
// An explicit pois.max of 0 lifts the cap.
const DefaultMaxPOIs = 60

// Config represents the root configuration file structure.
type Config struct {
	Place     string    `yaml:"place"`
	Network   string    `yaml:"network,omitempty"`
	RoadGraph string    `yaml:"road_graph,omitempty"` // node-link JSON, Overpass when empty
	POIs      POIs      `yaml:"pois"`
	Overlays  []Overlay `yaml:"overlays,omitempty"`
	Output    Output    `yaml:"output"`
	Overpass  Overpass  `yaml:"overpass"`
}

// POIs selects the points connected by the spanning tree.
type POIs struct {
	File       string         `yaml:"file,omitempty"` // GeoJSON, Overpass when empty
	Categories []poi.Category `yaml:"categories"`     // fallback order
	Max        *int           `yaml:"max,omitempty"`
}

// Cap returns the node cap, 0 when unlimited.
func (p POIs) Cap() int {
	if p.Max == nil {
		return DefaultMaxPOIs
	}
	return *p.Max
}

// Overlay is a marker-only POI layer.
type Overlay struct {
	poi.Category `yaml:",inline"`

	File  string `yaml:"file,omitempty"`
	Limit int    `yaml:"limit,omitempty"`
}

// Output describes the rendered figure.
type Output struct {
	Path   string `yaml:"path"`
	Width  int    `yaml:"width,omitempty"`
	Height int    `yaml:"height,omitempty"`
}

// Overpass holds the OSM service endpoints.
type Overpass struct {
	Endpoint  string        `yaml:"endpoint,omitempty"`
	Nominatim string        `yaml:"nominatim,omitempty"`
	UserAgent string        `yaml:"user_agent,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
// Defaults are applied but the result is not validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset optional field.
func (c *Config) ApplyDefaults() {
	if c.Network == "" {
		c.Network = "drive"
	}
	if c.POIs.Max == nil {
		limit := DefaultMaxPOIs
		c.POIs.Max = &limit
	}
	if len(c.POIs.Categories) == 0 {
		c.POIs.Categories = []poi.Category{{Key: "amenity", Value: "pharmacy", Label: "Pharmacy"}}
	}
	if c.Output.Path == "" {
		c.Output.Path = "mst.svg"
	}
	if c.Output.Width == 0 {
		c.Output.Width = render.DefaultWidth
	}
	if c.Output.Height == 0 {
		c.Output.Height = render.DefaultHeight
	}
	if c.Overpass.Endpoint == "" {
		c.Overpass.Endpoint = provider.DefaultEndpoint
	}
	if c.Overpass.Nominatim == "" {
		c.Overpass.Nominatim = provider.DefaultNominatim
	}
	if c.Overpass.UserAgent == "" {
		c.Overpass.UserAgent = provider.DefaultUserAgent
	}
	if c.Overpass.Timeout == 0 {
		c.Overpass.Timeout = 3 * time.Minute
	}
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Place == "" && (c.RoadGraph == "" || c.POIs.File == "") {
		errs = append(errs, errors.New("place is required unless road_graph and pois.file are set"))
	}
	if c.RoadGraph == "" && !slices.Contains(provider.Networks(), c.Network) {
		errs = append(errs, fmt.Errorf("network %q is not one of %v", c.Network, provider.Networks()))
	}
	if limit := c.POIs.Cap(); limit < 0 || (limit > 0 && limit < poi.MinResolved) {
		errs = append(errs, fmt.Errorf("pois.max must be 0 or at least %d, got %d", poi.MinResolved, limit))
	}
	for i, cat := range c.POIs.Categories {
		if cat.Key == "" || cat.Value == "" {
			errs = append(errs, fmt.Errorf("pois.categories[%d]: key and value are required", i))
		}
	}
	for i, o := range c.Overlays {
		if o.Key == "" || o.Value == "" {
			errs = append(errs, fmt.Errorf("overlays[%d]: key and value are required", i))
		}
		if o.Limit < 0 {
			errs = append(errs, fmt.Errorf("overlays[%d]: limit must not be negative", i))
		}
	}
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		errs = append(errs, fmt.Errorf("output size must be positive, got %dx%d", c.Output.Width, c.Output.Height))
	}

	return errors.Join(errs...)
}
