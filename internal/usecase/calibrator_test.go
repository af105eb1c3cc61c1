package usecase

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
)

func TestSpecDistance(t *testing.T) {
	a := domain.PhoneSpecs{RAM: 8, FrontCamera: 12, BackCamera: 50, Battery: 5000, Screen: 6.5}

	t.Run("identical specs have zero distance and full score", func(t *testing.T) {
		for _, cfg := range []SimilarityConfig{CalibrationSimilarity, DisplaySimilarity} {
			d := SpecDistance(a, a, cfg.Weights)
			assert.Equal(t, 0.0, d)
			assert.Equal(t, 100.0, SimilarityScore(d))
		}
	})

	t.Run("battery counts per thousand mAh", func(t *testing.T) {
		b := a
		b.Battery = 6000
		assert.InDelta(t, 0.20, SpecDistance(a, b, CalibrationSimilarity.Weights), 1e-12)
		assert.InDelta(t, 0.25, SpecDistance(a, b, DisplaySimilarity.Weights), 1e-12)
	})

	t.Run("is symmetric", func(t *testing.T) {
		b := domain.PhoneSpecs{RAM: 4, FrontCamera: 8, BackCamera: 48, Battery: 4000, Screen: 6.1}
		assert.Equal(t, SpecDistance(a, b, DisplaySimilarity.Weights), SpecDistance(b, a, DisplaySimilarity.Weights))
	})
}

func TestSimilarityScore(t *testing.T) {
	testCases := []struct {
		distance float64
		want     float64
	}{
		{0, 100},
		{0.5, 90},
		{1.234, 75.3},
		{4.99, 0.2},
		{6, 0},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, SimilarityScore(tc.distance), "distance %v", tc.distance)
	}
}

func TestFindSimilar(t *testing.T) {
	query := domain.PhoneSpecs{RAM: 8, FrontCamera: 12, BackCamera: 50, Battery: 5000, Screen: 6.5}
	records := []domain.PhoneRecord{
		phone("Acme", "far", domain.PhoneSpecs{RAM: 16, FrontCamera: 32, BackCamera: 200, Battery: 6000, Screen: 7}, 900),
		phone("Acme", "near", domain.PhoneSpecs{RAM: 8, FrontCamera: 12, BackCamera: 48, Battery: 5000, Screen: 6.5}, 400),
		phone("Acme", "exact", query, 420),
		phone("Acme", "mid", domain.PhoneSpecs{RAM: 6, FrontCamera: 12, BackCamera: 50, Battery: 5000, Screen: 6.5}, 350),
	}

	t.Run("orders by distance and drops far records", func(t *testing.T) {
		got := FindSimilar(records, query, DisplaySimilarity)
		require.Len(t, got, 3)
		assert.Equal(t, "exact", got[0].Model)
		assert.Equal(t, 100.0, got[0].SimilarityScore)
		assert.Equal(t, "near", got[1].Model)
		assert.Equal(t, "mid", got[2].Model)
	})

	t.Run("respects the limit", func(t *testing.T) {
		cfg := DisplaySimilarity
		cfg.Limit = 2
		assert.Len(t, FindSimilar(records, query, cfg), 2)
	})

	t.Run("threshold is strict", func(t *testing.T) {
		cfg := SimilarityConfig{Weights: SimilarityWeights{1, 0, 0, 0, 0}, Threshold: 2, Limit: 5}
		got := FindSimilar(records, query, cfg)
		for _, c := range got {
			assert.Less(t, c.Distance, 2.0)
		}
		assert.NotContains(t, modelNames(got), "mid")
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, FindSimilar(nil, query, CalibrationSimilarity))
	})
}

func modelNames(cs []domain.ComparablePhone) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Model
	}
	return out
}

func TestSimilarityConfigValidate(t *testing.T) {
	assert.NoError(t, CalibrationSimilarity.Validate())
	assert.NoError(t, DisplaySimilarity.Validate())
	assert.Error(t, SimilarityConfig{Threshold: 0, Limit: 3}.Validate())
	assert.Error(t, SimilarityConfig{Threshold: 1, Limit: 0}.Validate())
	assert.Error(t, SimilarityConfig{Weights: SimilarityWeights{-1}, Threshold: 1, Limit: 1}.Validate())
}

func TestNewCalibrator(t *testing.T) {
	c := NewCalibrator(CalibratorConfig{})
	assert.Equal(t, CalibrationSimilarity, c.similarity)
	assert.Equal(t, 0.1, c.epsilon)
	assert.Equal(t, 0.98, c.lowerRatio)
	assert.Equal(t, 1.05, c.upperRatio)
}

func TestCalibrate(t *testing.T) {
	catalog := &memCatalog{records: toyCatalog()}
	c := NewCalibrator(CalibratorConfig{})

	t.Run("exact match anchors on the row price", func(t *testing.T) {
		row := catalog.records[4] // Samsung 2
		cal, err := c.Calibrate(10_000, row.Brand, row.Specs, catalog)
		require.NoError(t, err)
		assert.Equal(t, domain.AnchorComparables, cal.Source)
		assert.InDelta(t, row.PriceUSD, cal.Anchor, 1e-9)
		assert.InDelta(t, row.PriceUSD*1.05, cal.Price, 1e-9)
		require.Len(t, cal.Comparables, 1)
		assert.Equal(t, row.Model, cal.Comparables[0].Model)
	})

	t.Run("band holds for any raw price", func(t *testing.T) {
		row := catalog.records[0]
		for _, raw := range []float64{-500, 0, 1, 598, 599, 620, 629, 10_000, math.MaxFloat64} {
			cal, err := c.Calibrate(raw, row.Brand, row.Specs, catalog)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, cal.Price, cal.Anchor*0.98)
			assert.LessOrEqual(t, cal.Price, cal.Anchor*1.05)
			assert.True(t, cal.Band.Contains(cal.Price))
		}
	})

	t.Run("raw price inside band is kept", func(t *testing.T) {
		row := catalog.records[0]
		cal, err := c.Calibrate(row.PriceUSD*1.01, row.Brand, row.Specs, catalog)
		require.NoError(t, err)
		assert.InDelta(t, row.PriceUSD*1.01, cal.Price, 1e-9)
	})

	t.Run("inverse distance weighting", func(t *testing.T) {
		base := domain.PhoneSpecs{RAM: 8, FrontCamera: 12, BackCamera: 50, Battery: 5000, Screen: 6.5}
		other := base
		other.RAM = 12 // distance 1.0 under calibration weights
		cat := &memCatalog{records: []domain.PhoneRecord{
			phone("Acme", "a", base, 100),
			phone("Acme", "b", other, 200),
		}}
		cal, err := c.Calibrate(150, "acme", base, cat)
		require.NoError(t, err)
		want := (100/0.1 + 200/1.1) / (1/0.1 + 1/1.1)
		assert.InDelta(t, want, cal.Anchor, 1e-9)
		assert.Len(t, cal.Comparables, 2)
	})

	t.Run("no comparables falls back to brand mean", func(t *testing.T) {
		far := domain.PhoneSpecs{RAM: 64, FrontCamera: 64, BackCamera: 400, Battery: 9000, Screen: 9}
		cal, err := c.Calibrate(500, "Xiaomi", far, catalog)
		require.NoError(t, err)
		assert.Equal(t, domain.AnchorBrandMean, cal.Source)
		assert.InDelta(t, (179.0+349+699)/3, cal.Anchor, 1e-9)
		assert.Empty(t, cal.Comparables)
	})

	t.Run("unknown brand falls back to catalog mean", func(t *testing.T) {
		cal, err := c.Calibrate(500, "Nokia", catalog.records[0].Specs, catalog)
		require.NoError(t, err)
		assert.Equal(t, domain.AnchorGlobalMean, cal.Source)
		// 15 toy prices summing to 8985
		assert.InDelta(t, 599.0, cal.Anchor, 1e-9)
	})

	t.Run("empty catalog is model unavailable", func(t *testing.T) {
		_, err := c.Calibrate(500, "Nokia", domain.PhoneSpecs{}, &memCatalog{})
		assert.True(t, errors.Is(err, domain.ErrModelUnavailable))
		assert.True(t, errors.Is(err, domain.ErrEmptyCatalog))
	})
}
