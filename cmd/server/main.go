package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cadastre-gateway/internal/config"
	"cadastre-gateway/internal/logger"
	"cadastre-gateway/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	Addr       string `short:"a" long:"addr"   env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"   env:"PORT"           description:"Port to listen on"          default:"8000"`
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

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		log.Warn().Str("path", opts.ConfigFile).Msg("Config file not found, using defaults")
		cfg = config.Default()
	}

	if cfg.Upstream.Timeout <= 0 {
		cfg.Upstream.Timeout = config.DefaultTimeout
	}

	srvCtx := server.NewServerContext(cfg)

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/catastro-plots", srvCtx.HandlePlots)
	mux.HandleFunc("/api/catastro-parcel", srvCtx.HandleParcel)
	mux.HandleFunc("/api/catastro-zone", srvCtx.HandleZone)
	mux.HandleFunc("/api/catastro-parcels-by-zone", srvCtx.HandleParcelsByZone)
	mux.HandleFunc("/api/catastro-neighbors", srvCtx.HandleNeighbors)
	mux.HandleFunc("/health", srvCtx.HandleHealth)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.Origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	})

	handler := server.RequestLogger(corsMiddleware.Handler(mux))

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listenAddr).
		Str("upstream", cfg.Upstream.URL).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
