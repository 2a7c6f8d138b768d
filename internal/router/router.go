package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"chronolookup-api/internal/handler"
	"chronolookup-api/internal/middleware"
)

// Config holds the configuration for creating a router.
type Config struct {
	Logger            zerolog.Logger
	Handler           *handler.Handler
	LookupHandler     *handler.LookupHandler
	TranslateHandler  *handler.TranslateHandler
	AdminHandler      *handler.AdminHandler
	SessionMiddleware func(http.Handler) http.Handler
	AdminMiddleware   func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.NewRecovery(cfg.Logger))
	r.Use(middleware.NewRequestID(cfg.Logger))
	r.Use(middleware.NewLogging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", middleware.SessionHeader, middleware.AdminKeyHeader},
		ExposedHeaders:   []string{"X-Request-ID", middleware.SessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no session)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.SessionMiddleware != nil {
			r.Use(cfg.SessionMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			// Health check endpoints
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			// Cache maintenance endpoints
			if cfg.AdminHandler != nil {
				r.Route("/admin/cache", func(r chi.Router) {
					if cfg.AdminMiddleware != nil {
						r.Use(cfg.AdminMiddleware)
					}
					r.Get("/stats", cfg.AdminHandler.GetStats)
					r.Post("/sweep", cfg.AdminHandler.Sweep)
					r.Post("/persist", cfg.AdminHandler.Persist)
					r.Post("/restore", cfg.AdminHandler.Restore)
					r.Post("/resume", cfg.AdminHandler.Resume)
					r.Post("/clear", cfg.AdminHandler.Clear)
					r.Get("/{kind}/export", cfg.AdminHandler.Export)
					r.Post("/{kind}/import", cfg.AdminHandler.Import)
				})
			}

			// Name translation endpoints
			if cfg.TranslateHandler != nil {
				r.Route("/translate/{kind}", func(r chi.Router) {
					r.Get("/suggest", cfg.TranslateHandler.Suggest)
					r.Post("/select", cfg.TranslateHandler.Select)
					r.Post("/", cfg.TranslateHandler.Translate)
				})
			}

			// Lookup endpoints
			if cfg.LookupHandler != nil {
				r.Route("/{kind}", func(r chi.Router) {
					r.Get("/search", cfg.LookupHandler.Search)
					r.Post("/select", cfg.LookupHandler.Select)
					r.Post("/details", cfg.LookupHandler.Details)
					r.Get("/{id}", cfg.LookupHandler.Get)
				})
			}
		})
	})

	return r
}
