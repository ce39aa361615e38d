package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"tubelists/internal/platform"
	"tubelists/internal/propagate"
	"tubelists/internal/store"
	"tubelists/shared/go/config"
	"tubelists/shared/go/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("tubelists stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.SetGlobalLogger(logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}))

	ctx := context.Background()
	db, err := platform.OpenDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL database")

	dataStore := store.New(db)

	backend, err := platform.OpenSearch(ctx, cfg.Search, db)
	if err != nil {
		return err
	}
	defer backend.Close()

	propagator := propagate.New(dataStore, backend.Index, propagate.Options{
		Timeout:     cfg.Propagation.Timeout,
		Concurrency: cfg.Propagation.Concurrency,
		Async:       cfg.Propagation.Async,
	})
	defer propagator.Wait()

	handler, err := newHTTPHandler(cfg, dataStore, backend.Searcher, propagator)
	if err != nil {
		return err
	}

	if cfg.Bootstrap {
		if err := bootstrapDemoData(ctx, cfg, dataStore, propagator); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("search", cfg.Search.Backend).Msg("tubelists listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("tubelists exited")
	return nil
}
