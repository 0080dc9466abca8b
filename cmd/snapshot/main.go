package main

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/woozymasta/roadmst/internal/config"
	"github.com/woozymasta/roadmst/internal/logger"
	"github.com/woozymasta/roadmst/internal/poi"
	"github.com/woozymasta/roadmst/internal/provider"
	"github.com/woozymasta/roadmst/internal/roadgraph"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

// Writes the files referenced by road_graph, pois.file and overlays[].file,
// so the same config later runs offline.
type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	RoadGraph  string `short:"r" long:"roads"  description:"Road graph output, defaults to road_graph from config"`
	POIs       string `short:"f" long:"pois"   description:"POI GeoJSON output, defaults to pois.file from config"`
	Force      bool   `long:"force"            description:"Force overwrite of existing files"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Place == "" {
		log.Fatal().Msg("Snapshot needs a place to geocode")
	}
	if opts.RoadGraph == "" {
		opts.RoadGraph = cfg.RoadGraph
	}
	if opts.POIs == "" {
		opts.POIs = cfg.POIs.File
	}

	osm := &provider.Overpass{
		HTTP:      &http.Client{Timeout: cfg.Overpass.Timeout + 30*time.Second},
		Endpoint:  cfg.Overpass.Endpoint,
		Nominatim: cfg.Overpass.Nominatim,
		UserAgent: cfg.Overpass.UserAgent,
		Timeout:   cfg.Overpass.Timeout,
	}

	if opts.RoadGraph != "" && shouldWrite(opts.RoadGraph, opts.Force) {
		g, err := osm.RoadGraph(cfg.Place, cfg.Network)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to fetch road graph")
		}
		if err := writeFile(opts.RoadGraph, func(f *os.File) error { return roadgraph.WriteNodeLink(f, g) }); err != nil {
			log.Fatal().Err(err).Str("path", opts.RoadGraph).Msg("Failed to write road graph")
		}
		log.Info().Str("path", opts.RoadGraph).Int("nodes", g.NodeCount()).Msg("Road graph saved")
	}

	if opts.POIs != "" && shouldWrite(opts.POIs, opts.Force) {
		records, c, err := poi.Fetch(osm, cfg.Place, cfg.POIs.Categories)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to fetch POIs")
		}
		saveFeatures(opts.POIs, records, c)
	}

	for _, o := range cfg.Overlays {
		if o.File == "" || !shouldWrite(o.File, opts.Force) {
			continue
		}
		records, err := osm.Features(cfg.Place, o.Category)
		if err != nil {
			log.Error().Err(err).Str("category", o.String()).Msg("Failed to fetch overlay")
			continue
		}
		saveFeatures(o.File, records, o.Category)
	}

	log.Info().Msg("Snapshot finished successfully")
}

func saveFeatures(path string, records []poi.Record, c poi.Category) {
	if err := writeFile(path, func(f *os.File) error { return provider.WriteFeatures(f, records) }); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write features")
	}
	log.Info().Str("path", path).Str("category", c.String()).Int("features", len(records)).Msg("Features saved")
}

func shouldWrite(path string, force bool) bool {
	if _, err := os.Stat(path); err == nil && !force {
		log.Info().Str("path", path).Msg("File exists, skipping")
		return false
	}
	return true
}

func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	return write(f)
}
