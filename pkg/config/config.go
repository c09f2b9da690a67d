// Package config loads the YAML configuration for the pacelink tooling.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the pacelink CLI/daemon configuration.
type Config struct {
	// DataDir holds the local bbolt database.
	DataDir string `yaml:"data_dir"`
	// RelationName names the relation served, e.g. "ha".
	RelationName string `yaml:"relation_name"`
	// BindInterface is the corosync bind interface published to the peer.
	BindInterface string `yaml:"bind_interface"`
	// McastPort is the corosync multicast port published to the peer.
	McastPort int `yaml:"mcast_port"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:      "/var/lib/pacelink",
		RelationName: "ha",
		McastPort:    4440,
		LogLevel:     "info",
	}
}

// Load reads a YAML configuration file, filling unset fields from the
// defaults. An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.McastPort < 0 || cfg.McastPort > 65535 {
		return nil, fmt.Errorf("invalid mcast_port: %d", cfg.McastPort)
	}
	return cfg, nil
}
