package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
)

// PricingServiceConfig holds configuration for the pricing service
type PricingServiceConfig struct {
	Calibration CalibratorConfig
	Display     SimilarityConfig
	CacheTTL    time.Duration
}

// PricingService owns the loaded catalog and trained artifacts and answers
// price requests. Everything it holds is read-only after construction.
type PricingService struct {
	catalog    domain.CatalogRepository
	artifacts  *TrainedArtifacts
	brandMeans map[string]float64
	summaries  []domain.BrandSummary
	byBrand    map[string]domain.BrandSummary
	cache      domain.CacheRepository
	calibrator *Calibrator
	display    SimilarityConfig
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

// NewPricingService creates the service. brandMeans is the persisted stats
// bundle; when nil it is computed from the catalog. cache may be nil.
func NewPricingService(
	catalog domain.CatalogRepository,
	artifacts *TrainedArtifacts,
	brandMeans map[string]float64,
	cache domain.CacheRepository,
	config PricingServiceConfig,
	logger zerolog.Logger,
) (*PricingService, error) {
	if catalog == nil || len(catalog.All()) == 0 {
		return nil, domain.NewPredictionError(domain.KindModelUnavailable, "load catalog", domain.ErrEmptyCatalog)
	}
	if err := artifacts.Validate(); err != nil {
		return nil, err
	}

	display := config.Display
	if display.Limit <= 0 || display.Threshold <= 0 {
		display = DisplaySimilarity
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}

	if brandMeans == nil {
		brandMeans = BrandMeans(catalog.All())
	}

	summaries := MarketSummaries(catalog.All())
	byBrand := make(map[string]domain.BrandSummary, len(summaries))
	for _, s := range summaries {
		byBrand[domain.BrandKey(s.Brand)] = s
	}

	return &PricingService{
		catalog:    catalog,
		artifacts:  artifacts,
		brandMeans: brandMeans,
		summaries:  summaries,
		byBrand:    byBrand,
		cache:      cache,
		calibrator: NewCalibrator(config.Calibration),
		display:    display,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}, nil
}

// Predict estimates the price of one phone.
// Flow: validate -> cache -> encode/scale -> regress -> calibrate -> comparables -> cache
func (s *PricingService) Predict(ctx context.Context, request *domain.PredictRequest) (*domain.PredictionResult, error) {
	if err := validateRequest(request); err != nil {
		return nil, err
	}

	brand := strings.TrimSpace(request.Brand)
	specs := request.Specs()
	cacheKey := generateCacheKey(brand, specs)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		return cached, nil
	}

	raw, err := s.artifacts.PredictRaw(brand, specs)
	if err != nil {
		return nil, domain.NewPredictionError(domain.KindModelUnavailable, "predict", err)
	}

	calibration, err := s.calibrator.Calibrate(raw, brand, specs, s.catalog)
	if err != nil {
		return nil, err
	}

	comparables := FindSimilar(s.catalog.ByBrand(brand), specs, s.display)

	result := &domain.PredictionResult{
		ID:              uuid.NewString(),
		Brand:           brand,
		Specs:           specs,
		Labels:          specs.Labels(),
		RawModelPrice:   raw,
		CalibratedPrice: calibration.Price,
		Anchor:          calibration.Anchor,
		AnchorSource:    calibration.Source,
		Band:            calibration.Band,
		Comparables:     comparables,
		BrandMean:       s.brandMeans[domain.BrandKey(brand)],
		KnownBrand:      s.artifacts.Encoder.Known(brand),
		CreatedAt:       time.Now().UTC(),
	}
	if summary, ok := s.byBrand[domain.BrandKey(brand)]; ok {
		result.BrandStats = &summary
	}

	s.logger.Debug().
		Str("prediction_id", result.ID).
		Str("brand", brand).
		Float64("raw_usd", raw).
		Float64("calibrated_usd", result.CalibratedPrice).
		Str("anchor_source", string(result.AnchorSource)).
		Int("comparables", len(comparables)).
		Msg("Price predicted")

	if err := s.setInCache(ctx, cacheKey, result); err != nil {
		s.logger.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache prediction")
	}

	return result, nil
}

// validateRequest rejects requests without a brand or with values that are
// not finite and non-negative. Battery and screen must be positive.
func validateRequest(request *domain.PredictRequest) error {
	if request == nil {
		return domain.NewPredictionError(domain.KindInvalidInput, "validate", errors.New("request is empty"))
	}
	if strings.TrimSpace(request.Brand) == "" {
		return domain.NewPredictionError(domain.KindInvalidInput, "validate", errors.New("brand is required"))
	}

	values := request.Specs().Vector()
	for i, v := range values {
		if !isFinite(v) || v < 0 {
			return domain.NewPredictionError(domain.KindInvalidInput, "validate",
				fmt.Errorf("%s must be a finite non-negative number, got %v", domain.NumericFeatureNames[i], v))
		}
	}
	if request.Battery <= 0 {
		return domain.NewPredictionError(domain.KindInvalidInput, "validate", errors.New("battery must be positive"))
	}
	if request.Screen <= 0 {
		return domain.NewPredictionError(domain.KindInvalidInput, "validate", errors.New("screen must be positive"))
	}
	return nil
}

// generateCacheKey builds a normalized key.
// Format: "prediction:{brand_key}:{ram}:{front}:{back}:{battery}:{screen}"
func generateCacheKey(brand string, specs domain.PhoneSpecs) string {
	parts := []string{"prediction", domain.BrandKey(brand)}
	for _, v := range specs.Vector() {
		parts = append(parts, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return strings.Join(parts, ":")
}

func (s *PricingService) getFromCache(ctx context.Context, key string) (*domain.PredictionResult, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return nil, err
	}

	var result domain.PredictionResult
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return nil, domain.ErrCacheMiss
	}
	return &result, nil
}

func (s *PricingService) setInCache(ctx context.Context, key string, result *domain.PredictionResult) error {
	if s.cache == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}

// BrandPhones is the catalog rows of one brand
type BrandPhones struct {
	Brand  string               `json:"brand"`
	Phones []domain.PhoneRecord `json:"phones"`
}

// Phones lists the catalog grouped by brand, brands sorted by name.
func (s *PricingService) Phones() []BrandPhones {
	brands := s.catalog.Brands()
	out := make([]BrandPhones, 0, len(brands))
	for _, b := range brands {
		out = append(out, BrandPhones{Brand: b, Phones: s.catalog.ByBrand(b)})
	}
	return out
}

// Brands returns the brands the model was trained on, in vocabulary order,
// spelled as in the catalog. Brands absent from the catalog keep their key.
func (s *PricingService) Brands() []string {
	names := make(map[string]string, len(s.byBrand))
	for _, b := range s.catalog.Brands() {
		names[domain.BrandKey(b)] = b
	}

	out := make([]string, len(s.artifacts.Encoder.Vocabulary))
	for i, key := range s.artifacts.Encoder.Vocabulary {
		if name, ok := names[key]; ok {
			out[i] = name
		} else {
			out[i] = key
		}
	}
	return out
}

// MarketStats returns outlier-trimmed per-brand statistics, cheapest first.
func (s *PricingService) MarketStats() []domain.BrandSummary {
	return append([]domain.BrandSummary(nil), s.summaries...)
}

// MarketChart returns the market overview chart.
func (s *PricingService) MarketChart() domain.Chart {
	return MarketChart(s.summaries)
}

// PredictionChart places a prediction against brand medians.
func (s *PricingService) PredictionChart(result *domain.PredictionResult) domain.Chart {
	return PredictionChart(s.catalog.All(), result.Brand, result.CalibratedPrice)
}

// Metrics returns the holdout metrics recorded at training time.
func (s *PricingService) Metrics() domain.TrainingMetrics {
	return s.artifacts.Metrics
}
