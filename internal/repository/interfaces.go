package repository

import (
	"context"

	"chronolookup-api/internal/cache"
)

// SnapshotRepository defines snapshot storage with backend diagnostics.
type SnapshotRepository interface {
	cache.SnapshotStore

	// GetStats returns statistics about the snapshot backend.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}
