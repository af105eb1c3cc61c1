// Package app turns configuration into wired services for the server and CLI.
package app

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/artifact"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/catalog"
	"github.com/pricelens/backend/internal/infrastructure/logging"
	"github.com/pricelens/backend/internal/usecase"
)

// Version is reported by the health endpoint and the CLI.
const Version = "1.0.0"

// Logger builds the process logger.
func Logger(cfg *config.Config, service string) zerolog.Logger {
	return logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: service,
	})
}

func similarity(s config.SimilarityConfig) usecase.SimilarityConfig {
	var weights usecase.SimilarityWeights
	copy(weights[:], s.Weights)
	return usecase.SimilarityConfig{
		Weights:   weights,
		Threshold: s.Threshold,
		Limit:     s.Limit,
	}
}

// TrainingConfig maps the training section onto the trainer.
func TrainingConfig(cfg *config.Config) usecase.TrainingConfig {
	t := cfg.Training
	return usecase.TrainingConfig{
		Architecture: usecase.RegressorArchitecture{
			Hidden:  append([]int(nil), t.HiddenLayers...),
			Dropout: t.Dropout,
		},
		Epochs:          t.Epochs,
		BatchSize:       t.BatchSize,
		LearningRate:    t.LearningRate,
		Patience:        t.Patience,
		ValidationSplit: t.ValidationSplit,
		Seed:            t.Seed,
	}
}

// PricingConfig maps the calibration, display and cache sections onto the pricing service.
func PricingConfig(cfg *config.Config) usecase.PricingServiceConfig {
	return usecase.PricingServiceConfig{
		Calibration: usecase.CalibratorConfig{
			Similarity: similarity(cfg.Calibration.SimilarityConfig),
			Epsilon:    cfg.Calibration.Epsilon,
			LowerRatio: cfg.Calibration.BandLower,
			UpperRatio: cfg.Calibration.BandUpper,
		},
		Display:  similarity(cfg.DisplaySimilarity),
		CacheTTL: cfg.Cache.TTL,
	}
}

// CacheConfig maps the cache section onto the cache factory.
func CacheConfig(cfg *config.Config) cache.Config {
	return cache.Config{
		Type:     cfg.Cache.Type,
		RedisURL: cfg.Cache.RedisURL,
		Prefix:   cfg.Cache.Prefix,
	}
}

// OpenCache opens the configured cache. An unreachable Redis falls back to
// the in-memory cache so the service keeps answering.
func OpenCache(cfg *config.Config, logger zerolog.Logger) cache.Store {
	store, err := cache.New(CacheConfig(cfg))
	if err == nil {
		return store
	}
	logger.Warn().Err(err).Str("type", cfg.Cache.Type).Msg("Cache unavailable, using in-memory cache")
	return cache.NewMemoryCache(0)
}

// LoadCatalog reads the configured catalog file.
func LoadCatalog(cfg *config.Config, logger zerolog.Logger) (*catalog.Catalog, catalog.LoadStats, error) {
	return catalog.LoadFile(cfg.Catalog.Path, logger)
}

// NewPricingService loads the catalog and trained artifacts and builds the
// pricing service. Errors are ModelUnavailable when the artifacts are absent
// or do not match the catalog.
func NewPricingService(cfg *config.Config, store domain.CacheRepository, logger zerolog.Logger) (*usecase.PricingService, error) {
	cat, stats, err := LoadCatalog(cfg, logger)
	if err != nil {
		return nil, domain.NewPredictionError(domain.KindModelUnavailable, "load catalog", err)
	}

	artifacts, brandMeans, err := artifact.NewStore(cfg.Artifacts.Dir).Load()
	if err != nil {
		return nil, err
	}

	for _, brand := range cat.Brands() {
		if !artifacts.Encoder.Known(brand) {
			logger.Warn().Str("brand", brand).Msg("Catalog brand unknown to the trained model, retrain to include it")
		}
	}

	logger.Info().
		Int("catalog_rows", stats.Loaded).
		Int("skipped_rows", stats.Skipped).
		Int("brands", artifacts.Encoder.Width()).
		Time("trained_at", artifacts.TrainedAt).
		Float64("validation_mae_usd", artifacts.Metrics.MAE).
		Msg("Pricing model loaded")

	return usecase.NewPricingService(cat, artifacts, brandMeans, store, PricingConfig(cfg), logger)
}

// IsModelUnavailable reports whether err means no usable model is present.
func IsModelUnavailable(err error) bool {
	return errors.Is(err, domain.ErrModelUnavailable)
}

