package main

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alnah/go-trustedmarkup/internal/assets"
	"github.com/alnah/go-trustedmarkup/internal/config"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, asset loading, configuration and the metrics registry.
type Environment struct {
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	AssetLoader assets.AssetLoader
	Config      *config.Config // Used when --config is not given
	Registry    *prometheus.Registry
}

// DefaultEnv returns the production environment with embedded assets.
func DefaultEnv() *Environment {
	return &Environment{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		AssetLoader: assets.NewEmbeddedLoader(),
		Config:      config.DefaultConfig(),
		Registry:    prometheus.NewRegistry(),
	}
}
