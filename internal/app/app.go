// Package app wires configuration into the caches, pipelines and HTTP
// surface shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"chronolookup-api/internal/cache"
	"chronolookup-api/internal/config"
	"chronolookup-api/internal/handler"
	"chronolookup-api/internal/labels"
	"chronolookup-api/internal/middleware"
	"chronolookup-api/internal/model"
	"chronolookup-api/internal/repository"
	"chronolookup-api/internal/retry"
	"chronolookup-api/internal/router"
	"chronolookup-api/internal/service"
	"chronolookup-api/internal/upstream"
)

// App holds every long-lived component.
type App struct {
	Config *config.Config
	Log    zerolog.Logger

	API        *upstream.API
	Retry      *retry.Controller
	Sessions   *service.SessionRegistry
	Maintainer *service.CacheMaintainer
	Translator *service.Translator

	Persisters map[model.Kind]*cache.Persister
	Search     map[model.Kind]*service.SearchPipeline
	Detail     map[model.Kind]*service.DetailPipeline

	// Store is nil when snapshots are not persisted.
	Store     repository.SnapshotRepository
	StoreType string
}

// Build creates every component from cfg. A snapshot backend that cannot be
// reached is logged and the caches run without persistence.
func Build(cfg *config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Log:        log,
		Persisters: make(map[model.Kind]*cache.Persister, len(model.Kinds)),
		Search:     make(map[model.Kind]*service.SearchPipeline, len(model.Kinds)),
		Detail:     make(map[model.Kind]*service.DetailPipeline, len(model.Kinds)),
	}

	store, err := OpenSnapshotStore(cfg, log)
	if err != nil {
		log.Warn().Err(err).Str("store", cfg.Snapshot.Store).Msg("snapshot store unavailable, caches will not persist")
		store = nil
	}
	if store != nil {
		a.Store = store
		a.StoreType = cfg.Snapshot.Store
	}

	client := upstream.NewClient(upstream.Options{
		Timeout:    cfg.Upstream.Timeout,
		ProxyChain: cfg.Upstream.ProxyChain,
		UserAgent:  fmt.Sprintf("%s/%s", cfg.App.Name, cfg.App.Version),
	}, log)
	a.API = upstream.NewAPI(client, endpoints(cfg.Upstream))

	a.Retry = retry.NewController(retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
	}, retry.WithLogger(log))

	a.Sessions = service.NewSessionRegistry(cfg.Search.SessionIdleTTL, cfg.Search.DebounceDelay)
	tbl := labels.Default()

	persisters := make([]*cache.Persister, 0, len(model.Kinds))
	for _, kind := range model.Kinds {
		spec := service.SpecFor(kind)
		mc := cache.NewMemoryCache(kind.Plural(), cfg.Cache.Expiry, cache.WithLogger(log))

		var ss cache.SnapshotStore
		if a.Store != nil {
			ss = a.Store
		}
		p := cache.NewPersister(mc, ss, spec.SnapshotName, log)
		a.Persisters[kind] = p
		persisters = append(persisters, p)

		a.Search[kind] = service.NewSearchPipeline(spec, mc, a.API, a.Retry, log)
		a.Detail[kind] = service.NewDetailPipeline(kind, mc, a.API, tbl, log)
	}

	a.Translator = service.NewTranslator(a.API, log)
	a.Maintainer = service.NewCacheMaintainer(persisters, a.Sessions, service.MaintainerConfig{
		SweepInterval: cfg.Cache.SweepInterval,
		IOTimeout:     service.DefaultMaintainerConfig().IOTimeout,
	}, log)

	return a, nil
}

func endpoints(u config.UpstreamConfig) upstream.Endpoints {
	return upstream.Endpoints{
		Search:         u.SearchURL,
		ItemInfo:       u.ItemInfoURL,
		MobInfo:        u.MobInfoURL,
		MobSearch:      u.MobSearchURL,
		MobDrops:       u.MobDropsURL,
		SpriteBase:     u.SpriteBaseURL,
		IconBase:       u.IconBaseURL,
		RenderBase:     u.RenderBaseURL,
		LocaleTW:       u.LocaleTWBaseURL,
		LocaleEN:       u.LocaleENBaseURL,
		LocaleENLookup: u.LocaleENLookup,
	}
}

// OpenSnapshotStore opens the configured snapshot backend. It returns nil
// without error for "none".
func OpenSnapshotStore(cfg *config.Config, log zerolog.Logger) (repository.SnapshotRepository, error) {
	sc := cfg.Snapshot
	switch sc.Store {
	case "none":
		log.Info().Msg("snapshot persistence disabled")
		return nil, nil
	case "postgres", "postgresql":
		repo, err := repository.NewPostgresSnapshotRepository(sc.PostgresDSN())
		if err != nil {
			return nil, err
		}
		log.Info().Msg("PostgreSQL snapshot store initialized")
		return repo, nil
	case "mysql":
		repo, err := repository.NewMySQLSnapshotRepository(sc.MySQLDSN())
		if err != nil {
			return nil, err
		}
		log.Info().Msg("MySQL snapshot store initialized")
		return repo, nil
	case "redis":
		store, err := cache.NewRedisSnapshotStore(cache.RedisSnapshotConfig{
			Addr:      sc.RedisAddress(),
			Password:  sc.RedisPassword,
			DB:        sc.RedisDB,
			KeyPrefix: sc.RedisKeyPrefix,
			TTL:       cfg.Cache.Expiry,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("addr", sc.RedisAddress()).Msg("Redis snapshot store initialized")
		return store, nil
	default: // sqlite
		repo, err := repository.NewSQLiteSnapshotRepository(sc.Path)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", sc.Path).Msg("SQLite snapshot store initialized")
		return repo, nil
	}
}

// Pipelines returns the search and detail pipelines in kind order.
func (a *App) Pipelines() ([]*service.SearchPipeline, []*service.DetailPipeline) {
	search := make([]*service.SearchPipeline, 0, len(model.Kinds))
	detail := make([]*service.DetailPipeline, 0, len(model.Kinds))
	for _, kind := range model.Kinds {
		search = append(search, a.Search[kind])
		detail = append(detail, a.Detail[kind])
	}
	return search, detail
}

// ReadyChecks lists the dependencies /ready reports on.
func (a *App) ReadyChecks() []handler.ReadyCheck {
	if a.Store == nil {
		return nil
	}
	return []handler.ReadyCheck{{
		Name: "snapshot_store",
		Check: func(ctx context.Context) error {
			_, err := a.Store.GetStats(ctx)
			return err
		},
	}}
}

// Handler builds the HTTP router.
func (a *App) Handler() http.Handler {
	search, detail := a.Pipelines()

	var storeStats handler.StoreStats
	if a.Store != nil {
		storeStats = a.Store
	}

	return router.New(router.Config{
		Logger:            a.Log,
		Handler:           handler.New(a.Config.App.Name, a.Config.App.Version, a.Maintainer, a.Sessions, a.ReadyChecks()...),
		LookupHandler:     handler.NewLookupHandler(search, detail),
		TranslateHandler:  handler.NewTranslateHandler(a.Translator),
		AdminHandler:      handler.NewAdminHandler(a.Maintainer, a.Persisters, storeStats, a.StoreType),
		SessionMiddleware: middleware.NewSessionMiddleware(a.Sessions),
		AdminMiddleware:   middleware.NewAdminKey(a.Config.App.AdminKey),
	})
}

// Close releases the snapshot backend.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
