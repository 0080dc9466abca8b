package main

import (
	"errors"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/woozymasta/roadmst/internal/config"
	"github.com/woozymasta/roadmst/internal/logger"
	"github.com/woozymasta/roadmst/internal/pipeline"
	"github.com/woozymasta/roadmst/internal/poi"
	"github.com/woozymasta/roadmst/internal/provider"
	"github.com/woozymasta/roadmst/internal/render"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"   env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Place      string `short:"p" long:"place"    env:"PLACE"       description:"Override the place to geocode"`
	Output     string `short:"o" long:"output"   env:"OUTPUT"      description:"Override the figure path (.svg, .png, .webp)"`
	MaxPOIs    int    `short:"m" long:"max-pois" env:"MAX_POIS"    description:"Override the cap on POIs fed into the router (0 is unlimited, negative keeps the config value)" default:"-1"`
	Workers    int    `short:"w" long:"workers"  env:"WORKERS"     description:"Concurrent shortest-path searches (0 uses all CPUs)"`
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

	if opts.Place != "" {
		cfg.Place = opts.Place
	}
	if opts.Output != "" {
		cfg.Output.Path = opts.Output
	}
	if opts.MaxPOIs >= 0 {
		cfg.POIs.Max = &opts.MaxPOIs
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	client := &http.Client{Timeout: cfg.Overpass.Timeout + 30*time.Second}
	osm := &provider.Overpass{
		HTTP:      client,
		Endpoint:  cfg.Overpass.Endpoint,
		Nominatim: cfg.Overpass.Nominatim,
		UserAgent: cfg.Overpass.UserAgent,
		Timeout:   cfg.Overpass.Timeout,
	}

	p := &pipeline.Pipeline{Roads: osm, Features: osm}
	if cfg.RoadGraph != "" {
		p.Roads = provider.File{RoadGraphPath: cfg.RoadGraph}
	}
	if cfg.POIs.File != "" {
		p.Features = provider.File{FeaturesPath: cfg.POIs.File}
	}

	runOpts := pipeline.Options{
		Place:      cfg.Place,
		Network:    cfg.Network,
		Categories: cfg.POIs.Categories,
		MaxPOIs:    cfg.POIs.Cap(),
		Workers:    opts.Workers,
	}
	for _, o := range cfg.Overlays {
		overlay := pipeline.Overlay{Category: o.Category, Limit: o.Limit}
		if o.File != "" {
			overlay.Source = provider.File{FeaturesPath: o.File}
		}
		runOpts.Overlays = append(runOpts.Overlays, overlay)
	}

	log.Info().
		Str("place", cfg.Place).
		Str("network", cfg.Network).
		Int("max_pois", cfg.POIs.Cap()).
		Int("workers", opts.Workers).
		Msg("Starting roadmst")

	res, err := p.Run(runOpts)
	if err != nil {
		event := log.Fatal().Err(err)
		var se *pipeline.StageError
		if errors.As(err, &se) {
			event = event.Str("stage", string(se.Stage))
		}
		var ie *poi.InsufficientPOIsError
		if errors.As(err, &ie) {
			event = event.Int("records", ie.Records).Int("found", ie.Found).Int("required", ie.Required)
		}
		event.Msg("Pipeline failed")
	}

	pipeline.Report(res)

	scene := pipeline.Scene(res, cfg.Place)
	scene.Width, scene.Height = cfg.Output.Width, cfg.Output.Height
	if err := render.WriteFile(cfg.Output.Path, scene); err != nil {
		log.Fatal().Err(err).Str("path", cfg.Output.Path).Msg("Failed to write figure")
	}

	log.Info().Str("path", cfg.Output.Path).Msg("Figure saved")
}
