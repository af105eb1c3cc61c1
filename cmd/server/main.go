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

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.Logger(cfg, "pricelens-backend")
	logger.Info().
		Str("version", app.Version).
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache_type", cfg.Cache.Type).
		Dur("cache_ttl", cfg.Cache.TTL).
		Str("catalog", cfg.Catalog.Path).
		Str("artifacts", cfg.Artifacts.Dir).
		Msg("Starting PriceLens Backend")

	// Initialize infrastructure dependencies
	store := app.OpenCache(cfg, logger)
	defer store.Close()

	// Without a trained model the server still starts; price endpoints answer 503
	pricing, err := app.NewPricingService(cfg, store, logger)
	if err != nil {
		if !app.IsModelUnavailable(err) {
			logger.Fatal().Err(err).Msg("Failed to initialize pricing service")
		}
		logger.Warn().Err(err).Msg("Pricing model not available, run `pricectl train` to create it")
	}

	handler := httpDelivery.NewHandler(pricing, cfg.Display, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	waitForShutdown(srv, logger)
}

func waitForShutdown(srv *http.Server, logger zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info().Str("signal", sig.String()).Msg("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shut down")
	}
}
