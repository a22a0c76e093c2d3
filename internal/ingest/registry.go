package ingest

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/insightql/pkg/core"
)

// Factory builds an ingestor for one dataset kind.
type Factory func(Config) core.Ingestor

var (
	registryMu sync.RWMutex
	registry   = make(map[core.DatasetKind]Factory)
)

// Register adds an ingestor factory to the registry.
// Called by ingestor implementations in their init() functions.
func Register(kind core.DatasetKind, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = factory
}

// Get retrieves an ingestor factory by kind.
func Get(kind core.DatasetKind) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[kind]
	return f, ok
}

// New creates the ingestor registered for kind.
func New(kind core.DatasetKind, cfg Config) (core.Ingestor, error) {
	factory, ok := Get(kind)
	if !ok {
		return nil, &UnknownKindError{Kind: kind, Available: Kinds()}
	}
	return factory(cfg.withDefaults()), nil
}

// Kinds returns all registered kinds (sorted).
func Kinds() []core.DatasetKind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]core.DatasetKind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// UnknownKindError is returned when no ingestor is registered for a kind.
// It unwraps to a validation error.
type UnknownKindError struct {
	Kind      core.DatasetKind
	Available []core.DatasetKind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown dataset kind %q\nAvailable kinds: %v", e.Kind, e.Available)
}

func (e *UnknownKindError) Unwrap() error {
	return core.NewValidationErrorf("unknown dataset kind %q", e.Kind)
}

// Config is shared by all ingestors.
type Config struct {
	// Geolocator resolves building addresses for rooms datasets.
	Geolocator Geolocator
	// Workers bounds parallel file parsing and geolocation lookups.
	Workers int
	Logger  *slog.Logger
}

// DefaultWorkers is used when Config.Workers is not positive.
const DefaultWorkers = 8

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Geolocator == nil {
		c.Geolocator = unavailableGeolocator{}
	}
	return c
}
