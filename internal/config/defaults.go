package config

import (
	"time"

	"github.com/leapstack-labs/insightql/internal/ingest"
	"github.com/leapstack-labs/insightql/internal/state"
)

// Default configuration values.
const (
	DefaultStateFile          = ".insightql/state.db"
	DefaultDriver             = state.DriverSQLite
	DefaultBusyTimeout        = 5 * time.Second
	DefaultIngestWorkers      = ingest.DefaultWorkers
	DefaultGeolocationTimeout = 10 * time.Second
	DefaultServerAddr         = "127.0.0.1:4321"
	DefaultMaxBodyBytes       = 128 << 20
	DefaultShutdownTimeout    = 5 * time.Second
)

// ApplyStoreDefaults applies default values to a StoreConfig.
func ApplyStoreDefaults(s *StoreConfig) {
	if s == nil {
		return
	}
	if s.Driver == "" {
		s.Driver = DefaultDriver
	}
	if s.BusyTimeout == 0 && s.Driver == state.DriverSQLite {
		s.BusyTimeout = DefaultBusyTimeout
	}
}

// ApplyIngestDefaults applies default values to an IngestConfig.
func ApplyIngestDefaults(c *IngestConfig) {
	if c == nil {
		return
	}
	if c.Workers <= 0 {
		c.Workers = DefaultIngestWorkers
	}
	if c.GeolocationTimeout == 0 {
		c.GeolocationTimeout = DefaultGeolocationTimeout
	}
}

// ApplyServerDefaults applies default values to a ServerConfig.
func ApplyServerDefaults(c *ServerConfig) {
	if c == nil {
		return
	}
	if c.Addr == "" {
		c.Addr = DefaultServerAddr
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}
