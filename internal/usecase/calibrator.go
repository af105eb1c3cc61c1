package usecase

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"github.com/pricelens/backend/internal/domain"
)

// CalibratorConfig holds the comparable search and band settings
type CalibratorConfig struct {
	Similarity SimilarityConfig
	Epsilon    float64 // added to distances before inverting
	LowerRatio float64 // band lower bound as a fraction of the anchor
	UpperRatio float64 // band upper bound as a fraction of the anchor
}

// Calibrator clamps raw model prices into a band around market comparables
type Calibrator struct {
	similarity SimilarityConfig
	epsilon    float64
	lowerRatio float64
	upperRatio float64
}

// NewCalibrator creates a calibrator, filling zero fields with the defaults
// (calibration similarity, epsilon 0.1, band 0.98-1.05).
func NewCalibrator(config CalibratorConfig) *Calibrator {
	c := &Calibrator{
		similarity: config.Similarity,
		epsilon:    config.Epsilon,
		lowerRatio: config.LowerRatio,
		upperRatio: config.UpperRatio,
	}
	if c.similarity.Limit <= 0 || c.similarity.Threshold <= 0 {
		c.similarity = CalibrationSimilarity
	}
	if c.epsilon <= 0 {
		c.epsilon = 0.1
	}
	if c.lowerRatio <= 0 {
		c.lowerRatio = 0.98
	}
	if c.upperRatio <= 0 {
		c.upperRatio = 1.05
	}
	return c
}

// Band returns the acceptance interval around anchor.
func (c *Calibrator) Band(anchor float64) domain.PriceBand {
	return domain.PriceBand{Lower: anchor * c.lowerRatio, Upper: anchor * c.upperRatio}
}

// Anchor returns the inverse-distance weighted price of the closest same-brand
// comparables. Without comparables it falls back to the brand mean, and to the
// catalog mean when the brand has no catalog rows.
func (c *Calibrator) Anchor(brand string, specs domain.PhoneSpecs, catalog domain.CatalogRepository) (float64, domain.AnchorSource, []domain.ComparablePhone, error) {
	records := catalog.ByBrand(brand)
	if len(records) == 0 {
		all := catalog.All()
		if len(all) == 0 {
			return 0, "", nil, domain.NewPredictionError(domain.KindModelUnavailable, "calibrate", domain.ErrEmptyCatalog)
		}
		return meanPrice(all), domain.AnchorGlobalMean, nil, nil
	}

	comparables := FindSimilar(records, specs, c.similarity)
	if len(comparables) == 0 {
		return meanPrice(records), domain.AnchorBrandMean, nil, nil
	}

	var weighted, total float64
	for _, cp := range comparables {
		w := 1 / (cp.Distance + c.epsilon)
		weighted += cp.PriceUSD * w
		total += w
	}
	return weighted / total, domain.AnchorComparables, comparables, nil
}

// Calibrate clamps raw into the band around the anchor for brand and specs.
func (c *Calibrator) Calibrate(raw float64, brand string, specs domain.PhoneSpecs, catalog domain.CatalogRepository) (domain.Calibration, error) {
	if catalog == nil {
		return domain.Calibration{}, domain.NewPredictionError(domain.KindModelUnavailable, "calibrate", errors.New("no catalog loaded"))
	}
	anchor, source, comparables, err := c.Anchor(brand, specs, catalog)
	if err != nil {
		return domain.Calibration{}, err
	}

	band := c.Band(anchor)
	return domain.Calibration{
		Price:       band.Clamp(raw),
		Anchor:      anchor,
		Source:      source,
		Band:        band,
		Comparables: comparables,
	}, nil
}

func meanPrice(records []domain.PhoneRecord) float64 {
	prices := make([]float64, len(records))
	for i, r := range records {
		prices[i] = r.PriceUSD
	}
	return stat.Mean(prices, nil)
}
