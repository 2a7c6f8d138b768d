package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{`
	CREATE TABLE IF NOT EXISTS cache_snapshots (
		name VARCHAR(64) NOT NULL PRIMARY KEY,
		payload LONGTEXT NOT NULL,
		saved_at DATETIME NOT NULL
	)`},
	upsert: `
		INSERT INTO cache_snapshots (name, payload, saved_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			payload = VALUES(payload),
			saved_at = VALUES(saved_at)`,
	load:   `SELECT payload FROM cache_snapshots WHERE name = ?`,
	delete: `DELETE FROM cache_snapshots WHERE name = ?`,
}

// NewMySQLSnapshotRepository connects to MySQL and prepares the snapshot table.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLSnapshotRepository(dsn string) (*SQLSnapshotRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	repo, err := newSQLSnapshotRepository(db, mysqlDialect, false)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}
