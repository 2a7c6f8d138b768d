package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"chronolookup-api/internal/metrics"

	"github.com/rs/zerolog"
)

// Snapshot is the persisted form of a MemoryCache. Freshness is judged on
// Timestamp as a whole, never per entry.
type Snapshot struct {
	Namespaces map[Namespace]map[string]SnapshotEntry `json:"namespaces"`
	Timestamp  int64                                  `json:"timestamp"` // unix milliseconds
}

// SnapshotEntry is one persisted cache entry. Data is stored base64 encoded
// so restored values are byte-identical to the cached ones.
type SnapshotEntry struct {
	Data      []byte `json:"data"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// Persister moves a MemoryCache to and from a SnapshotStore under a fixed name.
// A nil store turns Persist and Restore into no-ops.
type Persister struct {
	cache *MemoryCache
	store SnapshotStore
	name  string
	log   zerolog.Logger
}

// NewPersister creates a persister for cache, stored under name.
func NewPersister(cache *MemoryCache, store SnapshotStore, name string, log zerolog.Logger) *Persister {
	return &Persister{
		cache: cache,
		store: store,
		name:  name,
		log:   log.With().Str("component", "Persister").Str("snapshot", name).Logger(),
	}
}

// Name returns the snapshot name.
func (p *Persister) Name() string { return p.name }

// Cache returns the cache being persisted.
func (p *Persister) Cache() *MemoryCache { return p.cache }

// Persist serializes every namespace plus a snapshot timestamp and saves it.
// Failures are logged and returned; there is no retry.
func (p *Persister) Persist(ctx context.Context) error {
	if p.store == nil {
		return nil
	}

	snap := p.cache.Snapshot()
	snap.Timestamp = p.cache.Now().UnixMilli()

	payload, err := json.Marshal(snap)
	if err != nil {
		p.fail("persist", err, "failed to serialize cache snapshot")
		return fmt.Errorf("serialize snapshot %s: %w", p.name, err)
	}
	if err := p.store.SaveSnapshot(ctx, p.name, payload); err != nil {
		p.fail("persist", err, "failed to save cache snapshot")
		return fmt.Errorf("save snapshot %s: %w", p.name, err)
	}

	metrics.SnapshotOps.WithLabelValues(p.cache.Name(), "persist", "ok").Inc()
	p.log.Info().Int("bytes", len(payload)).Msg("cache snapshot saved")
	return nil
}

// Restore loads the stored snapshot into the cache. A snapshot whose age is at
// least the cache expiry is discarded whole and deleted from the store. On any
// failure the in-memory cache is left untouched.
func (p *Persister) Restore(ctx context.Context) (int, error) {
	if p.store == nil {
		return 0, nil
	}

	payload, err := p.store.LoadSnapshot(ctx, p.name)
	if errors.Is(err, ErrSnapshotNotFound) {
		return 0, nil
	}
	if err != nil {
		p.fail("restore", err, "failed to load cache snapshot")
		return 0, fmt.Errorf("load snapshot %s: %w", p.name, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		p.fail("restore", err, "failed to parse cache snapshot")
		return 0, fmt.Errorf("parse snapshot %s: %w", p.name, err)
	}

	age := p.cache.Now().Sub(time.UnixMilli(snap.Timestamp))
	if age >= p.cache.Expiry() {
		metrics.SnapshotOps.WithLabelValues(p.cache.Name(), "restore", "expired").Inc()
		p.log.Info().Dur("age", age).Msg("cache snapshot expired, discarding")
		if err := p.store.DeleteSnapshot(ctx, p.name); err != nil {
			p.log.Warn().Err(err).Msg("failed to delete expired snapshot")
		}
		return 0, nil
	}

	loaded := p.cache.Load(&snap)
	metrics.SnapshotOps.WithLabelValues(p.cache.Name(), "restore", "ok").Inc()
	p.log.Info().Int("entries", loaded).Msg("cache snapshot restored")
	return loaded, nil
}

// Export writes the current cache contents in snapshot form.
func (p *Persister) Export(w io.Writer) error {
	snap := p.cache.Snapshot()
	snap.Timestamp = p.cache.Now().UnixMilli()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("export snapshot %s: %w", p.name, err)
	}
	return nil
}

// Import merges an exported snapshot into the cache regardless of its age.
// Per-entry expiry still applies on lookup.
func (p *Persister) Import(r io.Reader) (int, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		p.log.Error().Err(err).Msg("failed to import cache data")
		return 0, fmt.Errorf("import snapshot %s: %w", p.name, err)
	}
	loaded := p.cache.Load(&snap)
	p.log.Info().Int("entries", loaded).Msg("cache data imported")
	return loaded, nil
}

func (p *Persister) fail(op string, err error, msg string) {
	metrics.SnapshotOps.WithLabelValues(p.cache.Name(), op, "error").Inc()
	p.log.Error().Stack().Err(err).Msg(msg)
}
