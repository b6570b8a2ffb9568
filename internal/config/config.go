// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all server configuration.
type Config struct {
	Server   ServerConfig
	Health   HealthConfig
	Store    StoreConfig
	Logging  LogConfig
	Pipeline PipelineConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port string `envconfig:"PORT" default:"8080"`
}

// HealthConfig tunes the health monitor.
type HealthConfig struct {
	Interval    time.Duration `envconfig:"HEALTH_INTERVAL" default:"10s"`
	MemoryLimit uint64        `envconfig:"HEALTH_MEMORY_LIMIT" default:"1073741824"`
}

// StoreConfig holds the run-history database location.
type StoreConfig struct {
	Path string `envconfig:"STORE_PATH" default:"reportstream.db"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// PipelineConfig overrides pipeline start defaults for API-started runs.
type PipelineConfig struct {
	ChunkSize      int `envconfig:"PIPELINE_CHUNK_SIZE" default:"1000"`
	MaxDemand      int `envconfig:"PIPELINE_MAX_DEMAND" default:"500"`
	PartitionCount int `envconfig:"PIPELINE_PARTITIONS" default:"1"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
