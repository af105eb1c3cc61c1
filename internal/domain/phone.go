package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// NumericFeatureCount is the number of numeric features in PhoneSpecs.
const NumericFeatureCount = 5

// NumericFeatureNames lists the numeric features in vector order.
var NumericFeatureNames = [NumericFeatureCount]string{"ram", "front_camera", "back_camera", "battery", "screen"}

// PhoneSpecs holds the parsed hardware specification of a phone
type PhoneSpecs struct {
	RAM         float64 `json:"ram"`          // GB
	FrontCamera float64 `json:"front_camera"` // MP
	BackCamera  float64 `json:"back_camera"`  // MP
	Battery     float64 `json:"battery"`      // mAh
	Screen      float64 `json:"screen"`       // inches
}

// Vector returns the specs in the fixed feature order used by the scaler and regressor.
func (s PhoneSpecs) Vector() []float64 {
	return []float64{s.RAM, s.FrontCamera, s.BackCamera, s.Battery, s.Screen}
}

// Labels renders the specs with their units, e.g. "8GB" or "6.5 inches".
func (s PhoneSpecs) Labels() SpecLabels {
	return SpecLabels{
		RAM:         formatNumber(s.RAM) + "GB",
		FrontCamera: formatNumber(s.FrontCamera) + "MP",
		BackCamera:  formatNumber(s.BackCamera) + "MP",
		Battery:     formatNumber(s.Battery) + "mAh",
		Screen:      formatNumber(s.Screen) + " inches",
	}
}

// SpecLabels holds human-readable spec strings as they appear in the catalog
type SpecLabels struct {
	RAM         string `json:"ram"`
	FrontCamera string `json:"front_camera"`
	BackCamera  string `json:"back_camera"`
	Battery     string `json:"battery"`
	Screen      string `json:"screen"`
}

func (l SpecLabels) String() string {
	return strings.Join([]string{l.RAM, l.FrontCamera + " front", l.BackCamera + " back", l.Battery, l.Screen}, ", ")
}

// PhoneRecord is one catalog row. Immutable once loaded.
type PhoneRecord struct {
	Brand     string     `json:"brand"`
	Model     string     `json:"model"`
	Raw       SpecLabels `json:"raw"`
	RawPrice  string     `json:"raw_price"`
	Specs     PhoneSpecs `json:"specs"`
	PriceUSD  float64    `json:"price_usd"`
	SourceRow int        `json:"-"`
}

// FeatureVector is the encoded brand segment followed by the scaled numeric features.
type FeatureVector struct {
	Brand   []float64
	Numeric []float64
}

// Values returns brand and numeric segments concatenated.
func (f FeatureVector) Values() []float64 {
	out := make([]float64, 0, len(f.Brand)+len(f.Numeric))
	out = append(out, f.Brand...)
	return append(out, f.Numeric...)
}

// Width returns the total feature count.
func (f FeatureVector) Width() int {
	return len(f.Brand) + len(f.Numeric)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (r PhoneRecord) String() string {
	return fmt.Sprintf("%s %s", r.Brand, r.Model)
}

// BrandKey normalizes a brand name for lookups: "  Apple " and "apple" share a key.
func BrandKey(brand string) string {
	return strings.ToLower(strings.TrimSpace(brand))
}
