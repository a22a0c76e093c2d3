// Package state persists datasets in a SQL database.
//
// Each dataset id maps to exactly one row of the datasets table holding the
// kind, the row count and the records as a zstd-compressed JSON array, so a
// dataset is written, read and deleted atomically. SQLite (modernc.org/sqlite)
// is the default backend; PostgreSQL is reached through pgx.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/leapstack-labs/insightql/pkg/core"
)

// Options configures Open.
type Options struct {
	Driver      string        // sqlite (default) or postgres
	Path        string        // sqlite database file, or ":memory:"
	DSN         string        // postgres connection string
	BusyTimeout time.Duration // sqlite only
	Logger      *slog.Logger
}

// SQLStore implements core.DatasetStore on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
	now     func() time.Time
}

var _ core.DatasetStore = (*SQLStore)(nil)

// Open connects to the configured database and runs pending migrations.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := buildDSN(d, opts)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.Name, err)
	}
	if d.Name == DriverSQLite {
		// a single connection serializes writers and keeps ":memory:" one database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.Name, err)
	}

	s := NewWithDB(db, d.Name, opts.Logger)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Debug("state store opened", slog.String("driver", d.Name))
	return s, nil
}

// NewWithDB wraps an existing connection without running migrations.
// An unknown driver falls back to sqlite.
func NewWithDB(db *sql.DB, driver string, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d, err := dialectFor(driver)
	if err != nil {
		d = sqliteDialect
	}
	return &SQLStore{db: db, dialect: d, logger: logger, now: time.Now}
}

func buildDSN(d Dialect, opts Options) (string, error) {
	if d.Name == DriverPostgres {
		if opts.DSN == "" {
			return "", fmt.Errorf("store.dsn is required for the postgres driver")
		}
		return opts.DSN, nil
	}

	path := opts.Path
	if path == "" {
		return "", fmt.Errorf("state path is required for the sqlite driver")
	}
	timeout := opts.BusyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	if path == ":memory:" {
		return fmt.Sprintf(":memory:?_pragma=busy_timeout(%d)", timeout.Milliseconds()), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, timeout.Milliseconds()), nil
}

// Driver returns the name of the backing database driver.
func (s *SQLStore) Driver() string {
	return s.dialect.Name
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save persists a new dataset. It fails with a validation error when the id
// is already taken.
func (s *SQLStore) Save(ctx context.Context, ds *core.PersistedDataset) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	blob, err := encodeRows(ds.Rows)
	if err != nil {
		return err
	}
	createdAt := ds.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx, s.dialect.rebind(`SELECT 1 FROM datasets WHERE id = ?`), ds.ID).Scan(&one)
	switch {
	case err == nil:
		return core.NewValidationErrorf("dataset %q already exists", ds.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check dataset %q: %w", ds.ID, err)
	}

	_, err = tx.ExecContext(ctx,
		s.dialect.rebind(`INSERT INTO datasets (id, kind, row_count, rows, created_at) VALUES (?, ?, ?, ?, ?)`),
		ds.ID, string(ds.Kind), ds.RowCount, blob, createdAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save dataset %q: %w", ds.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset %q: %w", ds.ID, err)
	}

	s.logger.Debug("dataset saved",
		slog.String("id", ds.ID),
		slog.Int("rows", ds.RowCount),
		slog.Int("bytes", len(blob)))
	return nil
}

// Load reads a dataset back.
func (s *SQLStore) Load(ctx context.Context, id string) (*core.PersistedDataset, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var (
		kind      string
		rowCount  int
		blob      []byte
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT kind, row_count, rows, created_at FROM datasets WHERE id = ?`), id,
	).Scan(&kind, &rowCount, &blob, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError(id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %q: %w", id, err)
	}

	rows, err := decodeRows(blob)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", id, err)
	}

	return &core.PersistedDataset{
		ID:        id,
		Kind:      core.DatasetKind(kind),
		RowCount:  rowCount,
		Rows:      rows,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
	}, nil
}

// Delete removes a dataset.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM datasets WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete dataset %q: %w", id, err)
	}
	if n == 0 {
		return core.NewNotFoundError(id, nil)
	}

	s.logger.Debug("dataset deleted", slog.String("id", id))
	return nil
}

// Exists reports whether the dataset is persisted.
func (s *SQLStore) Exists(ctx context.Context, id string) (bool, error) {
	if s.db == nil {
		return false, fmt.Errorf("database not opened")
	}

	var one int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT 1 FROM datasets WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check dataset %q: %w", id, err)
	}
	return true, nil
}

// List returns every persisted dataset ordered by id.
func (s *SQLStore) List(ctx context.Context) ([]core.DatasetInfo, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, row_count FROM datasets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []core.DatasetInfo{}
	for rows.Next() {
		var info core.DatasetInfo
		var kind string
		if err := rows.Scan(&info.ID, &kind, &info.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		info.Kind = core.DatasetKind(kind)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datasets: %w", err)
	}
	return out, nil
}
