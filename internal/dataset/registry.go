// Package dataset owns the set of registered datasets.
//
// The Registry keeps resident datasets in memory and mirrors every add and
// remove to a core.DatasetStore, so a new Registry over the same store sees
// the registrations of an earlier one. Mutations and hydration of one id are
// serialized by a per-id lock; concurrent hydrations of the same id collapse
// into one store read.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/insightql/pkg/core"
)

// IngestorFunc resolves the ingestor for a dataset kind.
type IngestorFunc func(kind core.DatasetKind) (core.Ingestor, error)

// Config holds the collaborators of a Registry.
type Config struct {
	Store     core.DatasetStore
	Ingestors IngestorFunc
	Logger    *slog.Logger
}

// Registry is the in-memory view of the registered datasets.
type Registry struct {
	store     core.DatasetStore
	ingestors IngestorFunc
	logger    *slog.Logger

	mu       sync.RWMutex
	resident map[string]*core.Dataset

	locks   keyedMutex
	hydrate singleflight.Group
}

// New creates a registry over the store.
func New(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		store:     cfg.Store,
		ingestors: cfg.Ingestors,
		logger:    logger,
		resident:  make(map[string]*core.Dataset),
	}
}

// Add ingests content as a dataset of the given kind, persists it and makes
// it resident. It returns the ids of all registered datasets. On any failure
// the registry and the store are left unchanged.
func (r *Registry) Add(ctx context.Context, id string, content []byte, kind core.DatasetKind) ([]string, error) {
	if err := core.ValidateDatasetID(id); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, core.NewValidationErrorf("unknown dataset kind %q", kind)
	}
	if r.ingestors == nil {
		return nil, fmt.Errorf("no ingestors configured")
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	if exists, err := r.exists(ctx, id); err != nil {
		return nil, err
	} else if exists {
		return nil, core.NewValidationErrorf("dataset %q already exists", id)
	}

	ingestor, err := r.ingestors(kind)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	records, err := ingestor.Ingest(ctx, content)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, core.NewValidationErrorf("dataset %q has no valid %s records", id, kind)
	}

	persisted := &core.PersistedDataset{
		ID:       id,
		Kind:     kind,
		RowCount: len(records),
		Rows:     records,
	}
	if err := r.store.Save(ctx, persisted); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.resident[id] = persisted.Dataset()
	r.mu.Unlock()

	r.logger.Info("dataset added",
		slog.String("id", id),
		slog.String("kind", string(kind)),
		slog.Int("rows", len(records)),
		slog.Duration("elapsed", time.Since(start)))

	return r.ids(ctx)
}

// Remove deletes a dataset from memory and from the store. A malformed id
// is reported as not found, with the validation failure as its cause.
func (r *Registry) Remove(ctx context.Context, id string) (string, error) {
	if err := core.ValidateDatasetID(id); err != nil {
		return "", core.NewNotFoundError(id, err)
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	r.mu.RLock()
	_, resident := r.resident[id]
	r.mu.RUnlock()

	persisted, err := r.store.Exists(ctx, id)
	if err != nil {
		return "", err
	}
	if !resident && !persisted {
		return "", core.NewNotFoundError(id, nil)
	}

	// durable first: a failed delete leaves the dataset registered
	if persisted {
		if err := r.store.Delete(ctx, id); err != nil && !core.IsNotFound(err) {
			return "", err
		}
	}

	r.mu.Lock()
	delete(r.resident, id)
	r.mu.Unlock()

	r.logger.Info("dataset removed", slog.String("id", id))
	return id, nil
}

// List returns every registered dataset, read from the store.
func (r *Registry) List(ctx context.Context) ([]core.DatasetInfo, error) {
	return r.store.List(ctx)
}

// Get returns a dataset, hydrating it from the store when not resident.
// An id that is neither resident nor persisted is a not-found error.
func (r *Registry) Get(ctx context.Context, id string) (*core.Dataset, error) {
	if ds, ok := r.lookup(id); ok {
		return ds, nil
	}

	v, err, shared := r.hydrate.Do(id, func() (any, error) {
		unlock := r.locks.Lock(id)
		defer unlock()

		if ds, ok := r.lookup(id); ok {
			return ds, nil
		}

		start := time.Now()
		persisted, err := r.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		ds := persisted.Dataset()

		r.mu.Lock()
		r.resident[id] = ds
		r.mu.Unlock()

		r.logger.Debug("dataset hydrated",
			slog.String("id", id),
			slog.Int("rows", len(ds.Rows)),
			slog.Duration("elapsed", time.Since(start)))
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("dataset hydration shared", slog.String("id", id))
	}
	return v.(*core.Dataset), nil
}

// Rows returns the records of a dataset. See Get.
func (r *Registry) Rows(ctx context.Context, id string) ([]core.Record, error) {
	ds, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return ds.Rows, nil
}

// Resident reports whether the dataset is currently held in memory.
func (r *Registry) Resident(id string) bool {
	_, ok := r.lookup(id)
	return ok
}

// Evict drops a dataset from memory without touching the store.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	delete(r.resident, id)
	r.mu.Unlock()
}

// Close releases the resident datasets.
func (r *Registry) Close() {
	r.mu.Lock()
	r.resident = make(map[string]*core.Dataset)
	r.mu.Unlock()
}

func (r *Registry) lookup(id string) (*core.Dataset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.resident[id]
	return ds, ok
}

func (r *Registry) exists(ctx context.Context, id string) (bool, error) {
	if _, ok := r.lookup(id); ok {
		return true, nil
	}
	return r.store.Exists(ctx, id)
}

func (r *Registry) ids(ctx context.Context) ([]string, error) {
	infos, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	return ids, nil
}
