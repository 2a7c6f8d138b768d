package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{`
	CREATE TABLE IF NOT EXISTS cache_snapshots (
		name TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		saved_at DATETIME NOT NULL
	)`},
	upsert: `
		INSERT INTO cache_snapshots (name, payload, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			saved_at = excluded.saved_at`,
	load:   `SELECT payload FROM cache_snapshots WHERE name = ?`,
	delete: `DELETE FROM cache_snapshots WHERE name = ?`,
}

// NewSQLiteSnapshotRepository opens (or creates) a SQLite snapshot database.
// dbPath is the path to the database file (e.g., "./data/snapshots.db").
func NewSQLiteSnapshotRepository(dbPath string) (*SQLSnapshotRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	repo, err := newSQLSnapshotRepository(db, sqliteDialect, true)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}
