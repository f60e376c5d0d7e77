package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds preview server configuration.
type Config struct {
	// Network settings
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	MaxClients int    `yaml:"max_clients"`

	// Simulation settings
	TickRate      int    `yaml:"tick_rate"`      // frames per second
	SnapshotEvery int    `yaml:"snapshot_every"` // broadcast every N frames
	QualityTier   string `yaml:"quality_tier"`   // forced tier; empty probes defaults

	// Preview camera orbit
	CameraRadius float64 `yaml:"camera_radius"`
	CameraHeight float64 `yaml:"camera_height"`
	OrbitPeriod  float64 `yaml:"orbit_period"` // seconds per revolution

	// Shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the standard preview server configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            8080,
		MaxClients:      64,
		TickRate:        30,
		SnapshotEvery:   3,
		QualityTier:     "medium",
		CameraRadius:    40,
		CameraHeight:    12,
		OrbitPeriod:     45,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
	}
}

// LoadConfig reads a YAML config file, layering it over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err = yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %d", c.TickRate)
	}
	if c.SnapshotEvery <= 0 {
		return fmt.Errorf("snapshot_every must be positive, got %d", c.SnapshotEvery)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
