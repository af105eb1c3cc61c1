package usecase

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/pricelens/backend/internal/domain"
)

// DefaultScalerEpsilon is the standard deviation floor below which a column is degenerate.
const DefaultScalerEpsilon = 1e-9

// Scaler standardizes columns to zero mean and unit variance using statistics fixed at fit time.
type Scaler struct {
	Mean    []float64 `json:"mean"`
	Std     []float64 `json:"std"`
	Epsilon float64   `json:"epsilon"`
}

// FitScaler computes per-column mean and population standard deviation.
// names labels the columns in the degenerate-feature error and may be nil.
func FitScaler(rows [][]float64, names []string) (*Scaler, error) {
	return fitScaler(rows, names, true)
}

// FitLenientScaler is FitScaler for columns that may legitimately be constant,
// such as one-hot brand indicators. Constant columns get a unit std.
func FitLenientScaler(rows [][]float64) (*Scaler, error) {
	return fitScaler(rows, nil, false)
}

func fitScaler(rows [][]float64, names []string, strict bool) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows to fit scaler", domain.ErrTrainingFailed)
	}
	width := len(rows[0])
	s := &Scaler{
		Mean:    make([]float64, width),
		Std:     make([]float64, width),
		Epsilon: DefaultScalerEpsilon,
	}

	col := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i, row := range rows {
			if len(row) != width {
				return nil, fmt.Errorf("%w: row %d has %d columns, want %d", domain.ErrTrainingFailed, i, len(row), width)
			}
			col[i] = row[j]
		}
		s.Mean[j], s.Std[j] = stat.PopMeanStdDev(col, nil)
		if math.IsNaN(s.Mean[j]) || math.IsNaN(s.Std[j]) {
			return nil, fmt.Errorf("%w: column %d is not finite", domain.ErrTrainingFailed, j)
		}
		if s.Std[j] < s.Epsilon {
			if !strict {
				s.Std[j] = 1
				continue
			}
			name := fmt.Sprintf("column %d", j)
			if j < len(names) {
				name = names[j]
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrDegenerateFeature, name)
		}
	}
	return s, nil
}

// Width is the number of columns.
func (s *Scaler) Width() int {
	return len(s.Mean)
}

func (s *Scaler) std(j int) float64 {
	eps := s.Epsilon
	if eps <= 0 {
		eps = DefaultScalerEpsilon
	}
	return math.Max(s.Std[j], eps)
}

// Transform returns (x - mean) / std elementwise.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != s.Width() {
		return nil, fmt.Errorf("scaler: got %d values, want %d", len(x), s.Width())
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.std(j)
	}
	return out, nil
}

// Inverse undoes Transform.
func (s *Scaler) Inverse(z []float64) ([]float64, error) {
	if len(z) != s.Width() {
		return nil, fmt.Errorf("scaler: got %d values, want %d", len(z), s.Width())
	}
	out := make([]float64, len(z))
	for j, v := range z {
		out[j] = v*s.std(j) + s.Mean[j]
	}
	return out, nil
}

// Validate checks that the statistics are complete and finite.
func (s *Scaler) Validate() error {
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Std) {
		return fmt.Errorf("scaler: mean has %d columns, std has %d", len(s.Mean), len(s.Std))
	}
	for j := range s.Mean {
		if !isFinite(s.Mean[j]) || !isFinite(s.Std[j]) {
			return fmt.Errorf("scaler: column %d has non-finite statistics", j)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
