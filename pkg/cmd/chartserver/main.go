package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/alignment-charts/pkg/api"
	"github.com/gilchrisn/alignment-charts/pkg/config"
	"github.com/gilchrisn/alignment-charts/pkg/render"
	"github.com/gilchrisn/alignment-charts/pkg/service"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().Msg("Starting alignment chart server")

	if err := run(); err != nil {
		log.Error().Err(err).Msg("Chart server stopped")
		os.Exit(1)
	}

	log.Info().Msg("Server shutdown complete")
}

// run serves until SIGINT/SIGTERM. Deferred cleanup runs on every return.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := cfg.CreateLogger("chartserver")
	log.Logger = logger

	cat, err := cfg.Catalog()
	if err != nil {
		return fmt.Errorf("failed to resolve experiment catalog: %w", err)
	}

	log.Info().
		Str("address", cfg.ServerAddress()).
		Str("catalog", cat.Name()).
		Int("experiments", cat.Len()).
		Str("work_dir", cfg.WorkDir()).
		Dur("result_ttl", cfg.ResultTTL()).
		Msg("Configuration loaded")

	renderer := render.NewRenderer(cfg.RenderOptions(), logger)
	renderService, err := service.NewRenderService(cat, renderer, service.Options{
		WorkDir:         cfg.WorkDir(),
		MaxConcurrent:   cfg.MaxConcurrentRenders(),
		ResultTTL:       cfg.ResultTTL(),
		CleanupInterval: cfg.CleanupInterval(),
		Pipeline:        cfg.PipelineOptions(),
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize render service: %w", err)
	}
	defer renderService.Close()

	handlers := api.NewHandlers(renderService, cfg.MaxUploadBytes())

	router := mux.NewRouter()
	api.SetupRoutes(router, handlers)
	router.Use(api.LoggingMiddleware)
	router.Use(api.RecoveryMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      c.Handler(router),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", cfg.ServerAddress()).
			Msg("HTTP server starting")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
