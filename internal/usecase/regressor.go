package usecase

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/ann"
)

// RegressorArchitecture describes the hidden layers of the price network
type RegressorArchitecture struct {
	Hidden  []int   // hidden layer widths, input side first
	Dropout float64 // dropout after every hidden layer except the last
}

// DefaultArchitecture is 64 -> 32 -> 16 ReLU units with 0.2 dropout and a linear output.
var DefaultArchitecture = RegressorArchitecture{Hidden: []int{64, 32, 16}, Dropout: 0.2}

// layers expands the architecture into network layer specs.
func (a RegressorArchitecture) layers() []ann.LayerSpec {
	specs := make([]ann.LayerSpec, 0, len(a.Hidden)+1)
	for i, units := range a.Hidden {
		spec := ann.LayerSpec{Units: units, Activation: ann.ReLU}
		if i < len(a.Hidden)-1 {
			spec.Dropout = a.Dropout
		}
		specs = append(specs, spec)
	}
	return append(specs, ann.LayerSpec{Units: 1, Activation: ann.Linear})
}

// PriceRegressor wraps the trained network together with the scaler over its
// full input vector and the target standardization. Predictions are in USD.
type PriceRegressor struct {
	Network     *ann.Network `json:"network"`
	InputScaler *Scaler      `json:"input_scaler"`
	TargetMean  float64      `json:"target_mean"`
	TargetStd   float64      `json:"target_std"`
}

// InputWidth is the feature vector width the regressor was trained on.
func (r *PriceRegressor) InputWidth() int {
	if r == nil || r.Network == nil {
		return 0
	}
	return r.Network.InputWidth()
}

// Predict returns the raw model price for one encoded+scaled feature vector.
func (r *PriceRegressor) Predict(features []float64) (float64, error) {
	if len(features) != r.InputWidth() {
		return 0, fmt.Errorf("%w: got %d features, want %d", ann.ErrShape, len(features), r.InputWidth())
	}
	x, err := r.InputScaler.Transform(features)
	if err != nil {
		return 0, err
	}
	z, err := r.Network.Predict(x)
	if err != nil {
		return 0, err
	}
	price := z*r.TargetStd + r.TargetMean
	if !isFinite(price) {
		return 0, errors.New("regressor produced a non-finite price")
	}
	return price, nil
}

// Validate checks that the network and its scalers agree on shape.
func (r *PriceRegressor) Validate() error {
	if r == nil || r.Network == nil || r.InputScaler == nil {
		return errors.New("regressor is incomplete")
	}
	if err := r.Network.Validate(); err != nil {
		return err
	}
	if err := r.InputScaler.Validate(); err != nil {
		return err
	}
	if r.InputScaler.Width() != r.Network.InputWidth() {
		return fmt.Errorf("input scaler has %d columns, network expects %d", r.InputScaler.Width(), r.Network.InputWidth())
	}
	if !isFinite(r.TargetMean) || !isFinite(r.TargetStd) || r.TargetStd <= 0 {
		return errors.New("regressor target statistics are invalid")
	}
	return nil
}

// TrainedArtifacts is the fitted encoder, scaler and regressor. Created once by
// training and read-only afterwards.
type TrainedArtifacts struct {
	Encoder     *BrandEncoder          `json:"brand_encoder"`
	Scaler      *Scaler                `json:"scaler"`
	Regressor   *PriceRegressor        `json:"regressor"`
	Metrics     domain.TrainingMetrics `json:"metrics"`
	TrainedAt   time.Time              `json:"trained_at"`
	CatalogRows int                    `json:"catalog_rows"`
	SkippedRows int                    `json:"skipped_rows"`
}

// Validate rejects artifacts whose parts were not trained together.
func (a *TrainedArtifacts) Validate() error {
	if a == nil || a.Encoder == nil || a.Scaler == nil || a.Regressor == nil {
		return domain.NewPredictionError(domain.KindModelUnavailable, "validate artifacts", errors.New("artifacts are incomplete"))
	}
	if err := a.Scaler.Validate(); err != nil {
		return domain.NewPredictionError(domain.KindModelUnavailable, "validate artifacts", err)
	}
	if a.Scaler.Width() != domain.NumericFeatureCount {
		return domain.NewPredictionError(domain.KindModelUnavailable, "validate artifacts",
			fmt.Errorf("scaler has %d columns, want %d", a.Scaler.Width(), domain.NumericFeatureCount))
	}
	if err := a.Regressor.Validate(); err != nil {
		return domain.NewPredictionError(domain.KindModelUnavailable, "validate artifacts", err)
	}
	if want := a.Encoder.Width() + domain.NumericFeatureCount; a.Regressor.InputWidth() != want {
		return domain.NewPredictionError(domain.KindModelUnavailable, "validate artifacts",
			fmt.Errorf("regressor expects %d features, encoder and scaler produce %d", a.Regressor.InputWidth(), want))
	}
	return nil
}

// Features encodes brand and scales specs into the regressor input.
func (a *TrainedArtifacts) Features(brand string, specs domain.PhoneSpecs) (domain.FeatureVector, error) {
	numeric, err := a.Scaler.Transform(specs.Vector())
	if err != nil {
		return domain.FeatureVector{}, err
	}
	return domain.FeatureVector{Brand: a.Encoder.Transform(brand), Numeric: numeric}, nil
}

// PredictRaw runs the regressor on one phone.
func (a *TrainedArtifacts) PredictRaw(brand string, specs domain.PhoneSpecs) (float64, error) {
	fv, err := a.Features(brand, specs)
	if err != nil {
		return 0, err
	}
	return a.Regressor.Predict(fv.Values())
}

func targetStats(ys []float64) (mean, std float64) {
	mean, std = stat.PopMeanStdDev(ys, nil)
	if std < DefaultScalerEpsilon {
		std = 1
	}
	return mean, std
}
