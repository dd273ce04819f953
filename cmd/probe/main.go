package main

import (
	"context"
	"os"

	"cadastre-gateway/internal/catastro"
	"cadastre-gateway/internal/config"
	"cadastre-gateway/internal/geo"
	"cadastre-gateway/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	BBox       string `short:"b" long:"bbox"   description:"Probe a single WGS84 bbox (minLon,minLat,maxLon,maxLat) instead of the builtin areas"`
	RefCat     string `short:"r" long:"refcat" description:"Probe the GetParcel stored query with a cadastral reference"`
	Zone       string `short:"z" long:"zone"   description:"Probe the GetZoning stored query with a zone code"`
	SkipCaps   bool   `short:"C" long:"skip-capabilities" description:"Skip the GetCapabilities check"`
}

// probeAreas are city-center boxes with known cadastral coverage.
var probeAreas = []struct {
	name string
	bbox geo.BBox
}{
	{"Madrid Center", geo.BBox{MinLon: -3.7038, MinLat: 40.4168, MaxLon: -3.7037, MaxLat: 40.4169}},
	{"Barcelona Center", geo.BBox{MinLon: 2.15, MinLat: 41.38, MaxLon: 2.16, MaxLat: 41.39}},
	{"Seville Center", geo.BBox{MinLon: -5.99, MinLat: 37.38, MaxLon: -5.98, MaxLat: 37.39}},
	{"Valencia Center", geo.BBox{MinLon: -0.38, MinLat: 39.47, MaxLon: -0.37, MaxLat: 39.48}},
	{"Bilbao Center", geo.BBox{MinLon: -2.93, MinLat: 43.26, MaxLon: -2.92, MaxLat: 43.27}},
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
		if !os.IsNotExist(err) {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		cfg = config.Default()
	}

	client := catastro.NewClient(cfg.Upstream)
	ctx := context.Background()

	log.Info().Str("upstream", cfg.Upstream.URL).Msg("Starting WFS probe")

	if !opts.SkipCaps {
		probeCapabilities(ctx, client)
	}

	switch {
	case opts.BBox != "":
		bbox, err := geo.ParseBBox(opts.BBox)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --bbox value")
		}
		probeBBox(ctx, client, "Custom", bbox)
	case opts.RefCat == "" && opts.Zone == "":
		for _, area := range probeAreas {
			probeBBox(ctx, client, area.name, area.bbox)
		}
	}

	if opts.RefCat != "" {
		probeStoredQuery(ctx, client, catastro.QueryParcel, "refcat", opts.RefCat)
		probeStoredQuery(ctx, client, catastro.QueryNeighbourParcel, "refcat", opts.RefCat)
	}

	if opts.Zone != "" {
		probeStoredQuery(ctx, client, catastro.QueryZoning, "cod_zona", opts.Zone)
		probeStoredQuery(ctx, client, catastro.QueryParcelsByZoning, "cod_zona", opts.Zone)
	}

	log.Info().Msg("Probe finished")
}

func probeCapabilities(ctx context.Context, client *catastro.Client) {
	caps, err := client.GetCapabilities(ctx)
	if err != nil {
		log.Error().Err(err).Msg("GetCapabilities failed")
		return
	}

	log.Info().Int("bytes", len(caps)).Msg("GetCapabilities succeeded")
}

func probeBBox(ctx context.Context, client *catastro.Client, name string, bbox geo.BBox) {
	gml, err := client.ParcelsByBBox(ctx, bbox)
	if err != nil {
		log.Error().Err(err).Str("area", name).Msg("BBox query failed")
		return
	}

	logConversion(name, gml)
}

func probeStoredQuery(ctx context.Context, client *catastro.Client, query, key, value string) {
	gml, err := client.StoredQuery(ctx, query, key, value)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Stored query failed")
		return
	}

	logConversion(query, gml)
}

func logConversion(name string, gml []byte) {
	fc, res := catastro.Convert(gml)

	evt := log.Info().
		Str("probe", name).
		Int("bytes", len(gml)).
		Int("parcels", res.ParcelsSeen).
		Int("features", len(fc.Features)).
		Int("skipped", res.Skipped)

	if res.ExceptionText != "" {
		evt = evt.Str("exception", res.ExceptionText)
	}

	evt.Msg("Probe result")
}
