package server

import (
	"cadastre-gateway/internal/catastro"
	"cadastre-gateway/internal/config"

	"github.com/rs/zerolog/log"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config   *config.Config
	Catastro *catastro.Client
}

// NewServerContext initializes the context and the upstream WFS client.
func NewServerContext(cfg *config.Config) *ServerContext {
	log.Info().
		Str("upstream", cfg.Upstream.URL).
		Int("timeout_seconds", cfg.Upstream.Timeout).
		Bool("insecure_skip_verify", cfg.Upstream.InsecureSkipVerify).
		Msg("Initializing server context")

	return &ServerContext{
		Config:   cfg,
		Catastro: catastro.NewClient(cfg.Upstream),
	}
}
