package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hszk-dev/vidbrief/internal/api/handler"
	"github.com/hszk-dev/vidbrief/internal/api/middleware"
	"github.com/hszk-dev/vidbrief/internal/app"
	"github.com/hszk-dev/vidbrief/internal/config"
	"github.com/hszk-dev/vidbrief/internal/logging"
	"github.com/hszk-dev/vidbrief/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logOpts := logging.DefaultOptions()
	logOpts.Level = cfg.App.SlogLevel()
	logOpts.File = cfg.App.LogFile
	logger, logCloser, err := logging.New(logOpts)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer a.Close()

	registry := usecase.NewRunRegistry(a.Pipeline, usecase.DefaultRunHistory)

	r := setupRouter(logger, cfg.RateLimit, routes{
		runs:   handler.NewRunHandler(registry),
		cache:  handler.NewCacheHandler(a.Cache, a.Recent),
		health: handler.Health(a.Pipeline),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

type routes struct {
	runs   *handler.RunHandler
	cache  *handler.CacheHandler
	health http.HandlerFunc
}

func setupRouter(logger *slog.Logger, limit config.RateLimitConfig, h routes) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Metrics)

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if limit.Enabled {
			r.Use(middleware.RateLimit(limit.RequestsPerMinute, limit.Burst))
		}

		r.Post("/runs", h.runs.Create)
		r.Get("/runs/{id}", h.runs.Get)
		r.Get("/runs/{id}/result", h.runs.Result)
		r.Delete("/runs/{id}", h.runs.Cancel)

		r.Get("/cache", h.cache.Bundle)
		r.Get("/recent", h.cache.Recent)
	})

	return r
}
