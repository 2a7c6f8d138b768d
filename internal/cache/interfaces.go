package cache

import (
	"context"
)

// Namespace partitions a cache by the kind of payload it holds.
type Namespace string

const (
	NamespaceSearch   Namespace = "search"
	NamespaceDetail   Namespace = "detail"
	NamespaceIcon     Namespace = "icon"
	NamespaceCrossRef Namespace = "crossref"
)

// Namespaces lists every namespace a cache carries, in sweep order.
var Namespaces = []Namespace{NamespaceSearch, NamespaceDetail, NamespaceIcon, NamespaceCrossRef}

// Cache defines the response cache used by the lookup pipelines.
// Values are immutable once written; a new Set replaces the whole entry.
type Cache interface {
	// Get retrieves a value. Returns ErrCacheMiss if absent or expired;
	// an expired entry is removed as part of the check.
	Get(ctx context.Context, ns Namespace, key string) ([]byte, error)

	// Set stores a value stamped with the current time. Last writer wins.
	Set(ctx context.Context, ns Namespace, key string, value []byte) error

	// Delete removes a value.
	Delete(ctx context.Context, ns Namespace, key string) error

	// Sweep evicts every expired entry in every namespace and reports how many were removed.
	Sweep(ctx context.Context) int

	// Clear removes all entries from the cache.
	Clear(ctx context.Context) error

	// Stats reports entry counts per namespace.
	Stats() Stats
}

// Stats holds entry counts.
type Stats struct {
	Namespaces map[Namespace]int `json:"namespaces"`
	Total      int               `json:"total"`
}

// SnapshotStore persists serialized cache snapshots under a fixed name.
type SnapshotStore interface {
	// SaveSnapshot replaces the snapshot stored under name.
	SaveSnapshot(ctx context.Context, name string, payload []byte) error

	// LoadSnapshot returns ErrSnapshotNotFound when nothing is stored under name.
	LoadSnapshot(ctx context.Context, name string) ([]byte, error)

	// DeleteSnapshot removes the snapshot stored under name.
	DeleteSnapshot(ctx context.Context, name string) error
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"

	// ErrSnapshotNotFound indicates no snapshot has been persisted yet.
	ErrSnapshotNotFound CacheError = "snapshot not found"
)
