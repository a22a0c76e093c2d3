// Package config provides shared configuration types for insightql.
// This package is decoupled from CLI concerns so the server and the
// CLI resolve stores, ingestion and serving settings the same way.
package config

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/insightql/internal/state"
)

// StoreConfig holds the durable dataset store settings.
type StoreConfig struct {
	Driver      string        `koanf:"driver"` // sqlite, postgres
	DSN         string        `koanf:"dsn"`    // postgres connection string
	BusyTimeout time.Duration `koanf:"busy_timeout"`
}

// Validate checks the store settings.
func (s *StoreConfig) Validate() error {
	driver, err := state.NormalizeDriver(s.Driver)
	if err != nil {
		return err
	}
	if driver == state.DriverPostgres && s.DSN == "" {
		return fmt.Errorf("store.dsn is required for the postgres driver")
	}
	return nil
}

// IngestConfig holds dataset ingestion settings.
type IngestConfig struct {
	// Workers bounds parallel file parsing and geolocation lookups.
	Workers int `koanf:"workers"`
	// GeolocationURL is the base URL of the address geolocation service.
	// Rooms datasets cannot be added without it.
	GeolocationURL     string        `koanf:"geolocation_url"`
	GeolocationTimeout time.Duration `koanf:"geolocation_timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// WatchDir, when set, is scanned for dropped dataset archives.
	WatchDir string `koanf:"watch_dir"`
}
