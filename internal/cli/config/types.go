// Package config provides configuration management for the insightql CLI.
//
// This package extends the shared configuration types from internal/config
// with CLI-specific fields and functionality. The shared types are
// re-exported here via type aliases for convenience.
package config

import (
	sharedcfg "github.com/leapstack-labs/insightql/internal/config"
)

// StoreConfig is an alias for the shared store configuration.
type StoreConfig = sharedcfg.StoreConfig

// IngestConfig is an alias for the shared ingestion configuration.
type IngestConfig = sharedcfg.IngestConfig

// ServerConfig is an alias for the shared server configuration.
type ServerConfig = sharedcfg.ServerConfig

// Config holds all CLI configuration options.
type Config struct {
	StatePath    string        `koanf:"state_path"`
	Verbose      bool          `koanf:"verbose"`
	LogLevel     string        `koanf:"log_level"`
	OutputFormat string        `koanf:"output"`
	Store        *StoreConfig  `koanf:"store"`
	Ingest       *IngestConfig `koanf:"ingest"`
	Server       *ServerConfig `koanf:"server"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values
const (
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel  = "warn"
)

// GetStore returns the store config with defaults applied for any unset values.
func (c *Config) GetStore() *StoreConfig {
	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	sharedcfg.ApplyStoreDefaults(c.Store)
	return c.Store
}

// GetIngest returns the ingestion config with defaults applied.
func (c *Config) GetIngest() *IngestConfig {
	if c.Ingest == nil {
		c.Ingest = &IngestConfig{}
	}
	sharedcfg.ApplyIngestDefaults(c.Ingest)
	return c.Ingest
}

// GetServer returns the server config with defaults applied.
func (c *Config) GetServer() *ServerConfig {
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	sharedcfg.ApplyServerDefaults(c.Server)
	return c.Server
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		StatePath:    DefaultStateFile,
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
	}
	cfg.GetStore()
	cfg.GetIngest()
	cfg.GetServer()
	return cfg
}
