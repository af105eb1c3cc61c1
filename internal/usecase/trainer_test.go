package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/ann"
)

// trainToy trains on the toy catalog with a short schedule.
func trainToy(t *testing.T) *TrainedArtifacts {
	t.Helper()
	trainer := NewTrainer(TrainingConfig{Epochs: 60, LearningRate: 0.01, Patience: 60}, zerolog.Nop())
	artifacts, err := trainer.Train(context.Background(), toyCatalog(), nil)
	require.NoError(t, err)
	return artifacts
}

func TestNewTrainer(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		tr := NewTrainer(TrainingConfig{}, zerolog.Nop())
		assert.Equal(t, 100, tr.config.Epochs)
		assert.Equal(t, 32, tr.config.BatchSize)
		assert.Equal(t, 0.001, tr.config.LearningRate)
		assert.Equal(t, 10, tr.config.Patience)
		assert.Equal(t, 0.2, tr.config.ValidationSplit)
		assert.Equal(t, int64(42), tr.config.Seed)
		assert.Equal(t, []int{64, 32, 16}, tr.config.Architecture.Hidden)
	})

	t.Run("rejects out of range split", func(t *testing.T) {
		tr := NewTrainer(TrainingConfig{ValidationSplit: 1.5}, zerolog.Nop())
		assert.Equal(t, 0.2, tr.config.ValidationSplit)
	})
}

func TestDefaultArchitectureLayers(t *testing.T) {
	layers := DefaultArchitecture.layers()
	require.Len(t, layers, 4)
	assert.Equal(t, ann.LayerSpec{Units: 64, Activation: ann.ReLU, Dropout: 0.2}, layers[0])
	assert.Equal(t, ann.LayerSpec{Units: 32, Activation: ann.ReLU, Dropout: 0.2}, layers[1])
	assert.Equal(t, ann.LayerSpec{Units: 16, Activation: ann.ReLU}, layers[2])
	assert.Equal(t, ann.LayerSpec{Units: 1, Activation: ann.Linear}, layers[3])
}

func TestSplitIndices(t *testing.T) {
	train, val := splitIndices(15, 0.2, newSeededRand(42))
	assert.Len(t, val, 3)
	assert.Len(t, train, 12)

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), val...) {
		assert.False(t, seen[i], "index %d appears twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 15)
}

func TestTrain(t *testing.T) {
	ctx := context.Background()

	t.Run("produces consistent artifacts", func(t *testing.T) {
		epochs := 0
		trainer := NewTrainer(TrainingConfig{Epochs: 20, Patience: 20}, zerolog.Nop())
		artifacts, err := trainer.Train(ctx, toyCatalog(), func(ann.EpochStats) { epochs++ })
		require.NoError(t, err)

		require.NoError(t, artifacts.Validate())
		assert.Equal(t, 5, artifacts.Encoder.Width())
		assert.Equal(t, 10, artifacts.Regressor.InputWidth())
		assert.Equal(t, 20, epochs)
		assert.Equal(t, 20, artifacts.Metrics.Epochs)
		assert.Equal(t, 12, artifacts.Metrics.TrainRows)
		assert.Equal(t, 3, artifacts.Metrics.ValidationRows)
		assert.Equal(t, 15, artifacts.CatalogRows)
		assert.GreaterOrEqual(t, artifacts.Metrics.MAE, 0.0)
		assert.GreaterOrEqual(t, artifacts.Metrics.RMSE, artifacts.Metrics.MAE)
	})

	t.Run("is reproducible with the same seed", func(t *testing.T) {
		a := trainToy(t)
		b := trainToy(t)
		assert.Equal(t, a.Regressor.Network.Layers[0].Weights, b.Regressor.Network.Layers[0].Weights)
	})

	t.Run("empty catalog", func(t *testing.T) {
		_, err := NewTrainer(TrainingConfig{}, zerolog.Nop()).Train(ctx, nil, nil)
		assert.True(t, errors.Is(err, domain.ErrEmptyCatalog))
	})

	t.Run("degenerate feature aborts", func(t *testing.T) {
		records := toyCatalog()
		for i := range records {
			records[i].Specs.Screen = 6.5
		}
		_, err := NewTrainer(TrainingConfig{}, zerolog.Nop()).Train(ctx, records, nil)
		assert.True(t, errors.Is(err, domain.ErrDegenerateFeature))
		assert.Contains(t, err.Error(), "screen")
	})

	t.Run("non-finite price aborts", func(t *testing.T) {
		records := toyCatalog()
		records[0].PriceUSD = posInf()
		_, err := NewTrainer(TrainingConfig{}, zerolog.Nop()).Train(ctx, records, nil)
		assert.True(t, errors.Is(err, domain.ErrTrainingFailed))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewTrainer(TrainingConfig{}, zerolog.Nop()).Train(cctx, toyCatalog(), nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestTrainedArtifactsValidate(t *testing.T) {
	artifacts := trainToy(t)

	t.Run("encoder drift is model unavailable", func(t *testing.T) {
		drifted := *artifacts
		drifted.Encoder = NewBrandEncoder(append(artifacts.Encoder.Vocabulary, "nokia"))
		err := drifted.Validate()
		assert.True(t, errors.Is(err, domain.ErrModelUnavailable))
	})

	t.Run("missing regressor is model unavailable", func(t *testing.T) {
		broken := *artifacts
		broken.Regressor = nil
		assert.True(t, errors.Is(broken.Validate(), domain.ErrModelUnavailable))
	})

	t.Run("nil artifacts", func(t *testing.T) {
		var a *TrainedArtifacts
		assert.True(t, errors.Is(a.Validate(), domain.ErrModelUnavailable))
	})
}

// identityRegressor predicts its single input unchanged.
func identityRegressor() *PriceRegressor {
	return &PriceRegressor{
		Network: &ann.Network{Layers: []*ann.Layer{{
			Inputs: 1, Outputs: 1, Weights: []float64{1}, Biases: []float64{0}, Activation: ann.Linear,
		}}},
		InputScaler: &Scaler{Mean: []float64{0}, Std: []float64{1}},
		TargetMean:  0,
		TargetStd:   1,
	}
}

func TestEvaluate(t *testing.T) {
	xs := [][]float64{{1}, {2}, {3}}

	t.Run("holdout errors in USD", func(t *testing.T) {
		m, err := evaluate(identityRegressor(), xs, []float64{1, 2, 5})
		require.NoError(t, err)
		assert.InDelta(t, 2.0/3, m.MAE, 1e-12)
		assert.InDelta(t, math.Sqrt(4.0/3), m.RMSE, 1e-12)
		// total sum of squares around the mean 8/3 is 78/9
		assert.InDelta(t, 1-4/(78.0/9), m.R2, 1e-12)
	})

	t.Run("constant prices leave R2 at zero", func(t *testing.T) {
		m, err := evaluate(identityRegressor(), xs, []float64{2, 2, 2})
		require.NoError(t, err)
		assert.InDelta(t, 2.0/3, m.MAE, 1e-12)
		assert.Zero(t, m.R2)
	})
}
