package container

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Config contains configuration options for the container
type Config struct {
	// Name identifies the container in logs and child lookups
	Name string
	// EnableMetrics enables resolve metrics
	EnableMetrics bool
	// MetricsRegisterer receives the prometheus collectors (prometheus.DefaultRegisterer if nil)
	MetricsRegisterer prometheus.Registerer
	// Logger for container operations (uses slog.Default if nil)
	Logger *slog.Logger
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Name:              "root",
		EnableMetrics:     true,
		MetricsRegisterer: prometheus.DefaultRegisterer,
		Logger:            slog.Default(),
	}
}
