package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration. Flags override file values; file
// values override defaults.
type Config struct {
	// ListenAPI is the admin/registration HTTP address
	ListenAPI string `yaml:"listen_api"`

	// ListenRoute is the routing proxy address
	ListenRoute string `yaml:"listen_route"`

	// DataDir holds the coordinator directory database
	DataDir string `yaml:"data_dir"`

	// OfflineAfter is the silence threshold after which a worker derives as
	// offline
	OfflineAfter time.Duration `yaml:"offline_after"`

	// ReapAfter is the extended-absence threshold used by the administrative
	// reap. Reaping is never automatic.
	ReapAfter time.Duration `yaml:"reap_after"`

	// PersistInterval is the minimum gap between persisted coordinator
	// refreshes
	PersistInterval time.Duration `yaml:"persist_interval"`

	// WriteBudget caps persistent directory writes per day (0 = unlimited)
	WriteBudget int `yaml:"write_budget"`

	// RouteTimeout bounds a single forward attempt
	RouteTimeout time.Duration `yaml:"route_timeout"`

	// MetricsInterval is the gauge refresh cadence
	MetricsInterval time.Duration `yaml:"metrics_interval"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		ListenAPI:       ":8080",
		ListenRoute:     ":8000",
		DataDir:         "/var/lib/beacon",
		OfflineAfter:    120 * time.Second,
		ReapAfter:       24 * time.Hour,
		PersistInterval: 10 * time.Minute,
		WriteBudget:     900,
		RouteTimeout:    10 * time.Second,
		MetricsInterval: 15 * time.Second,
		LogLevel:        "info",
		LogJSON:         false,
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.OfflineAfter <= 0 {
		return fmt.Errorf("offline_after must be positive")
	}
	if c.ReapAfter < c.OfflineAfter {
		return fmt.Errorf("reap_after must not be shorter than offline_after")
	}
	if c.RouteTimeout <= 0 {
		return fmt.Errorf("route_timeout must be positive")
	}
	if c.WriteBudget < 0 {
		return fmt.Errorf("write_budget must not be negative")
	}
	return nil
}
