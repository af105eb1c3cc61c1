package domain

import "time"

// PredictRequest is the serving request contract
type PredictRequest struct {
	Brand       string  `json:"brand" form:"brand" binding:"required"`
	RAM         float64 `json:"ram" form:"ram"`
	FrontCamera float64 `json:"front_camera" form:"front_camera"`
	BackCamera  float64 `json:"back_camera" form:"back_camera"`
	Battery     float64 `json:"battery" form:"battery"`
	Screen      float64 `json:"screen" form:"screen"`
}

// Specs returns the numeric part of the request.
func (r *PredictRequest) Specs() PhoneSpecs {
	return PhoneSpecs{
		RAM:         r.RAM,
		FrontCamera: r.FrontCamera,
		BackCamera:  r.BackCamera,
		Battery:     r.Battery,
		Screen:      r.Screen,
	}
}

// AnchorSource tells where the calibration anchor price came from
type AnchorSource string

const (
	AnchorComparables AnchorSource = "comparables" // inverse-distance weighted comparables
	AnchorBrandMean   AnchorSource = "brand_mean"  // no comparable under threshold
	AnchorGlobalMean  AnchorSource = "global_mean" // brand absent from catalog
)

// PriceBand is the acceptance interval around the anchor
type PriceBand struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies in the closed interval.
func (b PriceBand) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// Clamp bounds v into the band.
func (b PriceBand) Clamp(v float64) float64 {
	return max(min(v, b.Upper), b.Lower)
}

// ComparablePhone is a same-brand catalog entry close to the query specs
type ComparablePhone struct {
	Model           string     `json:"model"`
	Raw             SpecLabels `json:"specs"`
	PriceUSD        float64    `json:"price_usd"`
	Distance        float64    `json:"distance"`
	SimilarityScore float64    `json:"similarity_score"` // 0-100
}

// Calibration is the outcome of clamping a raw model price against comparables
type Calibration struct {
	Price       float64           `json:"price"`
	Anchor      float64           `json:"anchor"`
	Source      AnchorSource      `json:"source"`
	Band        PriceBand         `json:"band"`
	Comparables []ComparablePhone `json:"comparables,omitempty"`
}

// BrandSummary holds outlier-trimmed price statistics for one brand
type BrandSummary struct {
	Brand   string  `json:"brand"`
	Mean    float64 `json:"mean"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
	Trimmed bool    `json:"trimmed"` // false when every price was an outlier and raw stats are reported
}

// PredictionResult is built per request and never persisted
type PredictionResult struct {
	ID              string            `json:"id"`
	Brand           string            `json:"brand"`
	Specs           PhoneSpecs        `json:"specs"`
	Labels          SpecLabels        `json:"spec_labels"`
	RawModelPrice   float64           `json:"raw_model_price_usd"`
	CalibratedPrice float64           `json:"calibrated_price_usd"`
	Anchor          float64           `json:"anchor_price_usd"`
	AnchorSource    AnchorSource      `json:"anchor_source"`
	Band            PriceBand         `json:"band"`
	Comparables     []ComparablePhone `json:"comparable_phones"`
	BrandStats      *BrandSummary     `json:"brand_stats,omitempty"`
	BrandMean       float64           `json:"brand_mean_usd,omitempty"`
	KnownBrand      bool              `json:"known_brand"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ChartSeries is one named line or bar series keyed by brand
type ChartSeries struct {
	Name   string    `json:"name"`
	Kind   string    `json:"kind"` // bar, line, marker or annotation
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Chart is a renderer-agnostic chart description
type Chart struct {
	Title     string        `json:"title"`
	XTitle    string        `json:"x_title"`
	YTitle    string        `json:"y_title"`
	YMax      float64       `json:"y_max"`
	Series    []ChartSeries `json:"series"`
	Highlight string        `json:"highlight,omitempty"`
	Notes     []string      `json:"notes,omitempty"`
}

// TrainingMetrics summarizes holdout performance, in USD
type TrainingMetrics struct {
	Epochs         int     `json:"epochs" yaml:"epochs"`
	BestEpoch      int     `json:"best_epoch" yaml:"best_epoch"`
	StoppedEarly   bool    `json:"stopped_early" yaml:"stopped_early"`
	TrainLoss      float64 `json:"train_loss" yaml:"train_loss"`
	ValidationLoss float64 `json:"validation_loss" yaml:"validation_loss"`
	MAE            float64 `json:"mae" yaml:"mae"`
	RMSE           float64 `json:"rmse" yaml:"rmse"`
	R2             float64 `json:"r2" yaml:"r2"`
	TrainRows      int     `json:"train_rows" yaml:"train_rows"`
	ValidationRows int     `json:"validation_rows" yaml:"validation_rows"`
}
