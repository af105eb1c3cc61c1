package usecase

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/pricelens/backend/internal/domain"
)

// memCatalog is a CatalogRepository over a fixed slice
type memCatalog struct {
	records []domain.PhoneRecord
}

func (c *memCatalog) All() []domain.PhoneRecord { return c.records }

func (c *memCatalog) ByBrand(brand string) []domain.PhoneRecord {
	var out []domain.PhoneRecord
	for _, r := range c.records {
		if domain.BrandKey(r.Brand) == domain.BrandKey(brand) {
			out = append(out, r)
		}
	}
	return out
}

func (c *memCatalog) Brands() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range c.records {
		if !seen[r.Brand] {
			seen[r.Brand] = true
			out = append(out, r.Brand)
		}
	}
	sort.Strings(out)
	return out
}

func phone(brand, model string, specs domain.PhoneSpecs, price float64) domain.PhoneRecord {
	return domain.PhoneRecord{
		Brand:    brand,
		Model:    model,
		Raw:      specs.Labels(),
		RawPrice: fmt.Sprintf("USD %.2f", price),
		Specs:    specs,
		PriceUSD: price,
	}
}

// toyCatalog has 5 brands with 3 models each. Models of one brand differ by
// at least 6 GB RAM and 38 MP back camera, so no two are calibration neighbours.
func toyCatalog() []domain.PhoneRecord {
	tiers := []domain.PhoneSpecs{
		{RAM: 4, FrontCamera: 8, BackCamera: 12, Battery: 4000, Screen: 6.1},
		{RAM: 8, FrontCamera: 16, BackCamera: 50, Battery: 4500, Screen: 6.5},
		{RAM: 16, FrontCamera: 32, BackCamera: 108, Battery: 5000, Screen: 6.8},
	}
	brands := []struct {
		name   string
		prices [3]float64
	}{
		{"Apple", [3]float64{599, 899, 1399}},
		{"Samsung", [3]float64{299, 649, 1199}},
		{"Xiaomi", [3]float64{179, 349, 699}},
		{"Oppo", [3]float64{199, 399, 799}},
		{"Vivo", [3]float64{189, 379, 749}},
	}

	var out []domain.PhoneRecord
	for b, brand := range brands {
		for i, tier := range tiers {
			specs := tier
			// offset so no two brands share an identical spec row
			specs.Screen += float64(b) * 0.01
			out = append(out, phone(brand.name, fmt.Sprintf("%s %d", brand.name, i+1), specs, brand.prices[i]))
		}
	}
	return out
}

func newSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func posInf() float64 {
	return math.Inf(1)
}
