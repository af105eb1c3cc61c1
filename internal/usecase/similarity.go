package usecase

import (
	"errors"
	"math"
	"sort"

	"github.com/pricelens/backend/internal/domain"
)

// batteryUnit rescales battery capacity so 1000 mAh weighs like 1 GB of RAM
const batteryUnit = 1000.0

// SimilarityWeights holds one weight per spec: RAM, front camera, back camera, battery, screen.
type SimilarityWeights [domain.NumericFeatureCount]float64

// SimilarityConfig parameterizes FindSimilar
type SimilarityConfig struct {
	Weights   SimilarityWeights
	Threshold float64 // candidates need distance strictly below this
	Limit     int     // maximum number of comparables returned
}

// Two configurations preserve the two observable behaviours: the calibration
// anchor and the similar-phones listing.
var (
	CalibrationSimilarity = SimilarityConfig{
		Weights:   SimilarityWeights{0.25, 0.15, 0.20, 0.20, 0.20},
		Threshold: 3,
		Limit:     3,
	}
	DisplaySimilarity = SimilarityConfig{
		Weights:   SimilarityWeights{0.20, 0.15, 0.15, 0.25, 0.25},
		Threshold: 5,
		Limit:     5,
	}
)

// Validate checks the config is usable.
func (c SimilarityConfig) Validate() error {
	if c.Threshold <= 0 {
		return errors.New("similarity threshold must be positive")
	}
	if c.Limit <= 0 {
		return errors.New("similarity limit must be positive")
	}
	for _, w := range c.Weights {
		if w < 0 || !isFinite(w) {
			return errors.New("similarity weights must be finite and non-negative")
		}
	}
	return nil
}

// SpecDistance is the weighted sum of absolute spec differences, battery in thousands of mAh.
func SpecDistance(a, b domain.PhoneSpecs, w SimilarityWeights) float64 {
	return w[0]*math.Abs(a.RAM-b.RAM) +
		w[1]*math.Abs(a.FrontCamera-b.FrontCamera) +
		w[2]*math.Abs(a.BackCamera-b.BackCamera) +
		w[3]*math.Abs(a.Battery-b.Battery)/batteryUnit +
		w[4]*math.Abs(a.Screen-b.Screen)
}

// SimilarityScore maps a distance to a 0-100 score rounded to one decimal.
func SimilarityScore(distance float64) float64 {
	score := math.Round((100-distance*20)*10) / 10
	return math.Max(score, 0)
}

// FindSimilar returns up to cfg.Limit records closer than cfg.Threshold to the
// query, nearest first. Callers restrict records to the query brand.
func FindSimilar(records []domain.PhoneRecord, query domain.PhoneSpecs, cfg SimilarityConfig) []domain.ComparablePhone {
	matches := make([]domain.ComparablePhone, 0, cfg.Limit)
	for _, rec := range records {
		d := SpecDistance(query, rec.Specs, cfg.Weights)
		if d >= cfg.Threshold {
			continue
		}
		matches = append(matches, domain.ComparablePhone{
			Model:           rec.Model,
			Raw:             rec.Raw,
			PriceUSD:        rec.PriceUSD,
			Distance:        d,
			SimilarityScore: SimilarityScore(d),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > cfg.Limit {
		matches = matches[:cfg.Limit]
	}
	return matches
}
