package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"chronolookup-api/internal/cache"
)

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	name   string
	schema []string
	upsert string
	load   string
	delete string
}

// SQLSnapshotRepository implements SnapshotRepository over database/sql.
type SQLSnapshotRepository struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time

	// mu serializes writers for backends that allow a single writer.
	mu     sync.RWMutex
	single bool
}

func newSQLSnapshotRepository(db *sql.DB, d dialect, singleWriter bool) (*SQLSnapshotRepository, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create %s snapshot table: %w", d.name, err)
		}
	}
	return &SQLSnapshotRepository{db: db, dialect: d, now: time.Now, single: singleWriter}, nil
}

func (r *SQLSnapshotRepository) lock() func() {
	if !r.single {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *SQLSnapshotRepository) rlock() func() {
	if !r.single {
		return func() {}
	}
	r.mu.RLock()
	return r.mu.RUnlock
}

// SaveSnapshot inserts or replaces the snapshot stored under name.
func (r *SQLSnapshotRepository) SaveSnapshot(ctx context.Context, name string, payload []byte) error {
	defer r.lock()()

	_, err := r.db.ExecContext(ctx, r.dialect.upsert, name, string(payload), r.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the snapshot stored under name.
func (r *SQLSnapshotRepository) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	defer r.rlock()()

	var payload string
	err := r.db.QueryRowContext(ctx, r.dialect.load, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cache.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return []byte(payload), nil
}

// DeleteSnapshot removes the snapshot stored under name.
func (r *SQLSnapshotRepository) DeleteSnapshot(ctx context.Context, name string) error {
	defer r.lock()()

	if _, err := r.db.ExecContext(ctx, r.dialect.delete, name); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// GetStats returns the snapshot count and payload size.
func (r *SQLSnapshotRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	defer r.rlock()()

	stats := map[string]interface{}{"backend": r.dialect.name}

	var count int64
	var size sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), SUM(LENGTH(payload)) FROM cache_snapshots").Scan(&count, &size)
	if err != nil {
		return nil, err
	}
	stats["snapshots"] = count
	stats["payload_bytes"] = size.Int64

	return stats, nil
}

// Close closes the database connection.
func (r *SQLSnapshotRepository) Close() error {
	return r.db.Close()
}

var _ SnapshotRepository = (*SQLSnapshotRepository)(nil)
