// Package config handles configuration loading and shared data structures.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultTimeout is the upstream request timeout in seconds when the
// configuration does not set one. The WFS bounds every request.
const DefaultTimeout = 30

// Config represents the root configuration file structure.
type Config struct {
	Upstream Upstream `yaml:"upstream"`
	CORS     CORS     `yaml:"cors"`
}

// Upstream describes the Catastro WFS endpoint.
type Upstream struct {
	// URL of the INSPIRE cadastral parcels WFS.
	URL string `yaml:"url"`

	// Timeout in seconds for the whole request including the body read.
	Timeout int `yaml:"timeout,omitempty"`

	// TypeNames for plain GetFeature queries, lowercase with dots as the
	// service documents it.
	TypeNames string `yaml:"typenames,omitempty"`

	// InsecureSkipVerify disables TLS verification. The service's
	// certificate chain breaks from time to time; keep this off unless
	// requests actually fail.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify,omitempty"`
}

// CORS holds the allowed origins for browser clients.
type CORS struct {
	Origins []string `yaml:"origins,omitempty"`
}

// Default returns the built-in configuration for the public Catastro
// service.
func Default() *Config {
	return &Config{
		Upstream: Upstream{
			URL:       "https://ovc.catastro.meh.es/INSPIRE/wfsCP.aspx",
			Timeout:   DefaultTimeout,
			TypeNames: "cp.cadastralparcel",
		},
		CORS: CORS{
			Origins: []string{"*"},
		},
	}
}

// Load reads and parses the YAML configuration file from the specified path.
// Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
