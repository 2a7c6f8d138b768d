package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chronolookup-api/internal/app"
	"chronolookup-api/internal/config"
	"chronolookup-api/internal/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.Log.Pretty || cfg.App.IsDevelopment())
	log.Info().Str("env", cfg.App.Environment).Str("version", cfg.App.Version).Msg("starting ChronoStory lookup API")

	a, err := app.Build(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}
	defer a.Close()

	// Restore snapshots, then begin the hourly sweep
	a.Maintainer.Start()

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      a.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Address()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	// Persist caches after in-flight requests finish
	if err := a.Maintainer.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to persist caches")
	}

	log.Info().Msg("server stopped")
}
