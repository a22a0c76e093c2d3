// Package engine is the query engine facade.
// It owns the durable dataset store and the in-memory registry, and runs
// queries and the canned insights report against them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/insightql/internal/dataset"
	"github.com/leapstack-labs/insightql/internal/ingest"
	"github.com/leapstack-labs/insightql/internal/state"
	"github.com/leapstack-labs/insightql/pkg/core"
)

// Engine runs dataset operations and queries.
type Engine struct {
	store    core.DatasetStore
	datasets *dataset.Registry
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Config holds engine configuration.
type Config struct {
	// Store is the durable layer. When nil, one is opened from the
	// connection settings below and closed by Close.
	Store core.DatasetStore

	// Driver is the state database driver: sqlite (default) or postgres.
	Driver string
	// StatePath is the path to the SQLite state database.
	StatePath string
	// DSN is the PostgreSQL connection string.
	DSN string
	// BusyTimeout is the SQLite busy timeout.
	BusyTimeout time.Duration

	// Ingest configures the dataset ingestion adapters.
	Ingest ingest.Config

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine. Datasets registered by an earlier engine over the
// same store are visible immediately and loaded on first use.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store := cfg.Store
	if store == nil {
		logger.Debug("opening state store", "driver", cfg.Driver, "path", cfg.StatePath)
		sqlStore, err := state.Open(ctx, state.Options{
			Driver:      cfg.Driver,
			Path:        cfg.StatePath,
			DSN:         cfg.DSN,
			BusyTimeout: cfg.BusyTimeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		store = sqlStore
	}

	ingestCfg := cfg.Ingest
	if ingestCfg.Logger == nil {
		ingestCfg.Logger = logger
	}

	return &Engine{
		store: store,
		datasets: dataset.New(dataset.Config{
			Store: store,
			Ingestors: func(kind core.DatasetKind) (core.Ingestor, error) {
				return ingest.New(kind, ingestCfg)
			},
			Logger: logger,
		}),
		logger: logger,
	}, nil
}

// Close releases all resources. It is safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.logger.Debug("closing engine")
		e.datasets.Close()
		if err := e.store.Close(); err != nil {
			e.closeErr = fmt.Errorf("errors closing engine: %w", err)
		}
	})
	return e.closeErr
}

// AddDataset ingests content as a dataset of the given kind and returns the
// ids of all registered datasets.
func (e *Engine) AddDataset(ctx context.Context, id string, content []byte, kind core.DatasetKind) ([]string, error) {
	return e.datasets.Add(ctx, id, content, kind)
}

// RemoveDataset unregisters a dataset and deletes its persisted copy.
func (e *Engine) RemoveDataset(ctx context.Context, id string) (string, error) {
	return e.datasets.Remove(ctx, id)
}

// ListDatasets returns every registered dataset.
func (e *Engine) ListDatasets(ctx context.Context) ([]core.DatasetInfo, error) {
	return e.datasets.List(ctx)
}

// dataset returns the records of a dataset a query refers to. An unknown
// id is a not-found error caused by an invalid query.
func (e *Engine) dataset(ctx context.Context, id string) ([]core.Record, error) {
	rows, err := e.datasets.Rows(ctx, id)
	if err == nil {
		return rows, nil
	}
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return nil, core.NewNotFoundError(id, core.NewValidationErrorf("query references unknown dataset %q", id))
	}
	return nil, err
}
