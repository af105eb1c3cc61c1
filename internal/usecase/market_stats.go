package usecase

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pricelens/backend/internal/domain"
)

// iqrFactor scales the interquartile range into outlier fences
const iqrFactor = 1.5

// Quantile returns the q-th quantile of ascending-sorted values using linear
// interpolation between closest ranks (Hyndman-Fan type 7).
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// SummarizePrices reports mean/min/max/count of the prices inside the IQR
// fences, or of all prices when every one of them is an outlier.
func SummarizePrices(brand string, prices []float64) domain.BrandSummary {
	if len(prices) == 0 {
		return domain.BrandSummary{Brand: brand}
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	lower, upper := q1-iqrFactor*iqr, q3+iqrFactor*iqr

	inliers := make([]float64, 0, len(sorted))
	for _, p := range sorted {
		if p >= lower && p <= upper {
			inliers = append(inliers, p)
		}
	}

	summary := domain.BrandSummary{Brand: brand, Trimmed: true}
	if len(inliers) == 0 {
		inliers = sorted
		summary.Trimmed = false
	}
	summary.Mean = stat.Mean(inliers, nil)
	summary.Min = floats.Min(inliers)
	summary.Max = floats.Max(inliers)
	summary.Count = len(inliers)
	return summary
}

// brandGroup is the catalog rows of one brand under its display name
type brandGroup struct {
	name   string
	prices []float64
}

// groupByBrand groups prices by brand key, sorted by key. The display name is
// the first spelling seen in the catalog.
func groupByBrand(records []domain.PhoneRecord) []brandGroup {
	byKey := make(map[string]*brandGroup)
	keys := make([]string, 0)
	for _, r := range records {
		key := domain.BrandKey(r.Brand)
		g, ok := byKey[key]
		if !ok {
			g = &brandGroup{name: r.Brand}
			byKey[key] = g
			keys = append(keys, key)
		}
		g.prices = append(g.prices, r.PriceUSD)
	}
	sort.Strings(keys)

	groups := make([]brandGroup, len(keys))
	for i, k := range keys {
		groups[i] = *byKey[k]
	}
	return groups
}

// MarketSummaries returns outlier-trimmed statistics per brand, cheapest mean first.
func MarketSummaries(records []domain.PhoneRecord) []domain.BrandSummary {
	groups := groupByBrand(records)
	out := make([]domain.BrandSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, SummarizePrices(g.name, g.prices))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mean < out[j].Mean })
	return out
}

// BrandMeans returns the untrimmed mean price per brand key.
func BrandMeans(records []domain.PhoneRecord) map[string]float64 {
	means := make(map[string]float64)
	for _, g := range groupByBrand(records) {
		means[domain.BrandKey(g.name)] = stat.Mean(g.prices, nil)
	}
	return means
}

// BrandMedians returns brand display names and median prices, ordered by brand key.
func BrandMedians(records []domain.PhoneRecord) ([]string, []float64) {
	groups := groupByBrand(records)
	labels := make([]string, len(groups))
	medians := make([]float64, len(groups))
	for i, g := range groups {
		sorted := append([]float64(nil), g.prices...)
		sort.Float64s(sorted)
		labels[i] = g.name
		medians[i] = Quantile(sorted, 0.5)
	}
	return labels, medians
}

// MarketChart describes average, minimum and maximum trimmed prices per brand.
func MarketChart(summaries []domain.BrandSummary) domain.Chart {
	labels := make([]string, len(summaries))
	means := make([]float64, len(summaries))
	mins := make([]float64, len(summaries))
	maxes := make([]float64, len(summaries))
	counts := make([]float64, len(summaries))
	notes := make([]string, len(summaries))
	for i, s := range summaries {
		labels[i] = s.Brand
		means[i] = s.Mean
		mins[i] = s.Min
		maxes[i] = s.Max
		counts[i] = float64(s.Count)
		notes[i] = fmt.Sprintf("%s: %d phones", s.Brand, s.Count)
	}

	var yMax float64
	if len(maxes) > 0 {
		sorted := append([]float64(nil), maxes...)
		sort.Float64s(sorted)
		yMax = 2 * Quantile(sorted, 0.5)
	}

	return domain.Chart{
		Title:  "Phone prices by brand (outliers removed)",
		XTitle: "Brand",
		YTitle: "Price",
		YMax:   yMax,
		Series: []domain.ChartSeries{
			{Name: "Average Price", Kind: "bar", Labels: labels, Values: means},
			{Name: "Min Price", Kind: "line", Labels: labels, Values: mins},
			{Name: "Max Price", Kind: "line", Labels: labels, Values: maxes},
			{Name: "Count", Kind: "annotation", Labels: labels, Values: counts},
		},
		Notes: notes,
	}
}

// PredictionChart places a predicted price against the median price of every brand.
func PredictionChart(records []domain.PhoneRecord, brand string, predicted float64) domain.Chart {
	labels, medians := BrandMedians(records)

	highlight := brand
	for _, l := range labels {
		if domain.BrandKey(l) == domain.BrandKey(brand) {
			highlight = l
			break
		}
	}

	yMax := predicted
	if len(medians) > 0 {
		yMax = math.Max(yMax, floats.Max(medians))
	}

	return domain.Chart{
		Title:  "Predicted price against brand medians",
		XTitle: "Brand",
		YTitle: "Price",
		YMax:   yMax * 1.2,
		Series: []domain.ChartSeries{
			{Name: "Median Price", Kind: "bar", Labels: labels, Values: medians},
			{Name: "Predicted Price", Kind: "marker", Labels: []string{highlight}, Values: []float64{predicted}},
		},
		Highlight: highlight,
	}
}

// ScaleChart returns a copy of chart with every value multiplied by factor,
// used for display currency conversion.
func ScaleChart(chart domain.Chart, factor float64) domain.Chart {
	out := chart
	out.YMax = chart.YMax * factor
	out.Series = make([]domain.ChartSeries, len(chart.Series))
	for i, s := range chart.Series {
		scaled := s
		scaled.Values = append([]float64(nil), s.Values...)
		if s.Kind != "annotation" {
			floats.Scale(factor, scaled.Values)
		}
		out.Series[i] = scaled
	}
	return out
}
