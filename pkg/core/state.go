package core

import (
	"context"
	"time"
)

// DatasetStore is the durable layer behind the dataset registry. Each dataset
// id maps to exactly one unit that is written, read and deleted atomically.
type DatasetStore interface {
	Close() error

	// Save persists a new dataset. Saving an id that already exists fails
	// with a ValidationError.
	Save(ctx context.Context, ds *PersistedDataset) error

	// Load reads a dataset back. A missing id yields a NotFoundError.
	Load(ctx context.Context, id string) (*PersistedDataset, error)

	// Delete removes a dataset. A missing id yields a NotFoundError.
	Delete(ctx context.Context, id string) error

	// Exists reports whether a unit for the id is persisted.
	Exists(ctx context.Context, id string) (bool, error)

	// List returns every persisted dataset ordered by id.
	List(ctx context.Context) ([]DatasetInfo, error)
}

// PersistedDataset is the durable unit of a dataset.
type PersistedDataset struct {
	ID        string
	Kind      DatasetKind
	RowCount  int
	Rows      []Record
	CreatedAt time.Time
}

// Dataset converts the persisted unit to its in-memory form.
func (p *PersistedDataset) Dataset() *Dataset {
	return &Dataset{ID: p.ID, Kind: p.Kind, Rows: p.Rows}
}

// Ingestor turns raw archive content into records for one dataset kind.
// Implementations return a ValidationError when the content holds no valid
// records.
type Ingestor interface {
	Kind() DatasetKind
	Ingest(ctx context.Context, content []byte) ([]Record, error)
}
