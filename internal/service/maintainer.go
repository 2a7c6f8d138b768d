package service

import (
	"context"
	"sync"
	"time"

	"chronolookup-api/internal/cache"

	"github.com/rs/zerolog"
)

// MaintainerConfig holds configuration for the cache maintainer.
type MaintainerConfig struct {
	// SweepInterval is how often expired entries are evicted.
	// Default: 1 hour
	SweepInterval time.Duration

	// IOTimeout bounds each persist or restore.
	// Default: 30 seconds
	IOTimeout time.Duration
}

// DefaultMaintainerConfig returns default maintainer configuration.
func DefaultMaintainerConfig() MaintainerConfig {
	return MaintainerConfig{
		SweepInterval: time.Hour,
		IOTimeout:     30 * time.Second,
	}
}

// CacheMaintainer owns the lifecycle of the response caches: restore at
// start, periodic sweeps, persist at stop, and resume after idling.
type CacheMaintainer struct {
	persisters []*cache.Persister
	sessions   *SessionRegistry
	config     MaintainerConfig
	log        zerolog.Logger

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewCacheMaintainer creates a maintainer for the given persisters. sessions may be nil.
func NewCacheMaintainer(persisters []*cache.Persister, sessions *SessionRegistry, config MaintainerConfig, log zerolog.Logger) *CacheMaintainer {
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Hour
	}
	if config.IOTimeout <= 0 {
		config.IOTimeout = 30 * time.Second
	}

	return &CacheMaintainer{
		persisters: persisters,
		sessions:   sessions,
		config:     config,
		log:        log.With().Str("component", "CacheMaintainer").Logger(),
		stopCh:     make(chan struct{}),
	}
}

// Persisters returns the managed persisters.
func (m *CacheMaintainer) Persisters() []*cache.Persister { return m.persisters }

// Start restores every snapshot and begins the sweep loop.
func (m *CacheMaintainer) Start() {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = true
	m.ticker = time.NewTicker(m.config.SweepInterval)
	m.mu.Unlock()

	m.RestoreAll()

	m.log.Info().Dur("interval", m.config.SweepInterval).Msg("started")
	go m.run()
}

func (m *CacheMaintainer) run() {
	for {
		select {
		case <-m.ticker.C:
			m.Sweep()
		case <-m.stopCh:
			m.log.Info().Msg("stopped")
			return
		}
	}
}

// Sweep evicts expired entries from every cache and idle sessions.
func (m *CacheMaintainer) Sweep() int {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.IOTimeout)
	defer cancel()

	removed := 0
	for _, p := range m.persisters {
		removed += p.Cache().Sweep(ctx)
	}
	if m.sessions != nil {
		if n := m.sessions.Sweep(); n > 0 {
			m.log.Debug().Int("sessions", n).Msg("evicted idle sessions")
		}
	}
	return removed
}

// PersistAll saves every cache. It returns the first error after trying all.
func (m *CacheMaintainer) PersistAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.IOTimeout)
	defer cancel()

	var first error
	for _, p := range m.persisters {
		if err := p.Persist(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RestoreAll loads every snapshot and reports how many entries were loaded.
// Failures are logged by the persisters and leave the caches untouched.
func (m *CacheMaintainer) RestoreAll() int {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.IOTimeout)
	defer cancel()

	loaded := 0
	for _, p := range m.persisters {
		n, _ := p.Restore(ctx)
		loaded += n
	}
	return loaded
}

// Resume is the return-from-idle hook: sweep, then restore.
func (m *CacheMaintainer) Resume() (swept, restored int) {
	swept = m.Sweep()
	restored = m.RestoreAll()
	return swept, restored
}

// ClearAll empties every cache.
func (m *CacheMaintainer) ClearAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.IOTimeout)
	defer cancel()

	for _, p := range m.persisters {
		if err := p.Cache().Clear(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stats reports entry counts per cache name.
func (m *CacheMaintainer) Stats() map[string]cache.Stats {
	out := make(map[string]cache.Stats, len(m.persisters))
	for _, p := range m.persisters {
		out[p.Cache().Name()] = p.Cache().Stats()
	}
	return out
}

// Stop ends the sweep loop and persists every cache.
func (m *CacheMaintainer) Stop() error {
	var err error
	m.stopOnce.Do(func() {
		m.mu.Lock()
		if m.ticker != nil {
			m.ticker.Stop()
		}
		close(m.stopCh)
		m.isRunning = false
		m.mu.Unlock()

		err = m.PersistAll()
	})
	return err
}
