package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/ann"
)

// TrainingConfig holds the training job settings
type TrainingConfig struct {
	Architecture    RegressorArchitecture
	Epochs          int
	BatchSize       int
	LearningRate    float64
	Patience        int
	ValidationSplit float64 // fraction of rows held out for validation
	Seed            int64
}

// Trainer fits the encoder, scaler and regressor from a catalog
type Trainer struct {
	config TrainingConfig
	logger zerolog.Logger
}

// NewTrainer creates a trainer, filling zero fields with defaults
// (100 epochs, batch 32, lr 0.001, patience 10, 20% validation, seed 42).
func NewTrainer(config TrainingConfig, logger zerolog.Logger) *Trainer {
	if len(config.Architecture.Hidden) == 0 {
		config.Architecture = DefaultArchitecture
	}
	if config.Epochs <= 0 {
		config.Epochs = 100
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 32
	}
	if config.LearningRate <= 0 {
		config.LearningRate = 0.001
	}
	if config.Patience <= 0 {
		config.Patience = 10
	}
	if config.ValidationSplit <= 0 || config.ValidationSplit >= 1 {
		config.ValidationSplit = 0.2
	}
	if config.Seed == 0 {
		config.Seed = 42
	}
	return &Trainer{config: config, logger: logger}
}

// Train runs the one-shot training job. onEpoch, if not nil, receives
// progress after every epoch. Numeric failures abort with ErrDegenerateFeature
// or ErrTrainingFailed rather than producing a NaN model.
func (t *Trainer) Train(ctx context.Context, records []domain.PhoneRecord, onEpoch func(ann.EpochStats)) (*TrainedArtifacts, error) {
	if len(records) == 0 {
		return nil, domain.ErrEmptyCatalog
	}

	brands := make([]string, len(records))
	numeric := make([][]float64, len(records))
	prices := make([]float64, len(records))
	for i, r := range records {
		brands[i] = r.Brand
		numeric[i] = r.Specs.Vector()
		prices[i] = r.PriceUSD
		if !isFinite(r.PriceUSD) {
			return nil, fmt.Errorf("%w: %s has a non-finite price", domain.ErrTrainingFailed, r)
		}
	}

	encoder := FitBrandEncoder(brands)
	scaler, err := FitScaler(numeric, domain.NumericFeatureNames[:])
	if err != nil {
		return nil, err
	}

	features := make([][]float64, len(records))
	for i, r := range records {
		fv, err := (&TrainedArtifacts{Encoder: encoder, Scaler: scaler}).Features(r.Brand, r.Specs)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTrainingFailed, err)
		}
		features[i] = fv.Values()
	}

	rng := rand.New(rand.NewSource(t.config.Seed))
	trainIdx, valIdx := splitIndices(len(records), t.config.ValidationSplit, rng)
	if len(trainIdx) == 0 || len(valIdx) == 0 {
		return nil, fmt.Errorf("%w: %d rows cannot be split into training and validation sets", domain.ErrTrainingFailed, len(records))
	}

	trainX, trainPrices := gather(features, prices, trainIdx)
	valX, valPrices := gather(features, prices, valIdx)

	inputScaler, err := FitLenientScaler(trainX)
	if err != nil {
		return nil, err
	}
	targetMean, targetStd := targetStats(trainPrices)

	scaledTrain := scaleRows(inputScaler, trainX)
	scaledVal := scaleRows(inputScaler, valX)
	trainY := standardize(trainPrices, targetMean, targetStd)
	valY := standardize(valPrices, targetMean, targetStd)

	network, err := ann.New(len(features[0]), t.config.Architecture.layers(), rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTrainingFailed, err)
	}

	t.logger.Info().
		Int("rows", len(records)).
		Int("train_rows", len(trainIdx)).
		Int("validation_rows", len(valIdx)).
		Int("brands", encoder.Width()).
		Int("input_width", network.InputWidth()).
		Msg("Training price regressor")

	hist, err := network.Fit(ctx, scaledTrain, trainY, scaledVal, valY, ann.TrainConfig{
		Epochs:       t.config.Epochs,
		BatchSize:    t.config.BatchSize,
		LearningRate: t.config.LearningRate,
		Patience:     t.config.Patience,
		Seed:         t.config.Seed,
		OnEpoch:      onEpoch,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTrainingFailed, err)
	}

	regressor := &PriceRegressor{
		Network:     network,
		InputScaler: inputScaler,
		TargetMean:  targetMean,
		TargetStd:   targetStd,
	}

	metrics, err := evaluate(regressor, valX, valPrices)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTrainingFailed, err)
	}
	metrics.Epochs = len(hist.Epochs)
	metrics.BestEpoch = hist.BestEpoch
	metrics.StoppedEarly = hist.StoppedEarly
	metrics.ValidationLoss = hist.BestValLoss
	metrics.TrainLoss = hist.Epochs[hist.BestEpoch-1].TrainLoss
	metrics.TrainRows = len(trainIdx)
	metrics.ValidationRows = len(valIdx)

	t.logger.Info().
		Int("epochs", metrics.Epochs).
		Int("best_epoch", metrics.BestEpoch).
		Bool("stopped_early", metrics.StoppedEarly).
		Float64("mae_usd", metrics.MAE).
		Float64("rmse_usd", metrics.RMSE).
		Float64("r2", metrics.R2).
		Msg("Training complete")

	artifacts := &TrainedArtifacts{
		Encoder:     encoder,
		Scaler:      scaler,
		Regressor:   regressor,
		Metrics:     metrics,
		TrainedAt:   time.Now().UTC(),
		CatalogRows: len(records),
	}
	if err := artifacts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTrainingFailed, err)
	}
	return artifacts, nil
}

// splitIndices shuffles row indices and holds out ceil(n*fraction) of them.
func splitIndices(n int, fraction float64, rng *rand.Rand) (train, validation []int) {
	idx := rng.Perm(n)
	nVal := int(math.Ceil(float64(n) * fraction))
	if nVal > n {
		nVal = n
	}
	return idx[nVal:], idx[:nVal]
}

func gather(features [][]float64, prices []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = features[j]
		ys[i] = prices[j]
	}
	return xs, ys
}

func scaleRows(s *Scaler, rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		// widths were checked when the scaler was fitted
		out[i], _ = s.Transform(row)
	}
	return out
}

func standardize(ys []float64, mean, std float64) []float64 {
	out := make([]float64, len(ys))
	for i, y := range ys {
		out[i] = (y - mean) / std
	}
	return out
}

// evaluate computes MAE, RMSE and R² in USD on a holdout set.
func evaluate(r *PriceRegressor, xs [][]float64, prices []float64) (domain.TrainingMetrics, error) {
	var m domain.TrainingMetrics
	preds := make([]float64, len(xs))
	absErr := make([]float64, len(xs))
	sqErr := make([]float64, len(xs))
	for i, x := range xs {
		pred, err := r.Predict(x)
		if err != nil {
			return m, err
		}
		diff := pred - prices[i]
		preds[i] = pred
		absErr[i] = math.Abs(diff)
		sqErr[i] = diff * diff
	}

	m.MAE = stat.Mean(absErr, nil)
	m.RMSE = math.Sqrt(stat.Mean(sqErr, nil))
	if stat.PopVariance(prices, nil) > 0 {
		m.R2 = stat.RSquaredFrom(preds, prices, nil)
	}
	return m, nil
}
