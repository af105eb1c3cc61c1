// Package catalog loads the tab-separated phone catalog and serves it read-only.
package catalog

import (
	"sort"

	"github.com/pricelens/backend/internal/domain"
)

// Catalog is an immutable in-memory CatalogRepository
type Catalog struct {
	records []domain.PhoneRecord
	byBrand map[string][]domain.PhoneRecord
	brands  []string
}

// New indexes records by brand key. The first spelling of a brand is its display name.
func New(records []domain.PhoneRecord) *Catalog {
	c := &Catalog{
		records: records,
		byBrand: make(map[string][]domain.PhoneRecord),
	}
	names := make(map[string]string)
	for _, r := range records {
		key := domain.BrandKey(r.Brand)
		if _, ok := names[key]; !ok {
			names[key] = r.Brand
		}
		c.byBrand[key] = append(c.byBrand[key], r)
	}

	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.brands = append(c.brands, names[k])
	}
	return c
}

// All returns every record in file order.
func (c *Catalog) All() []domain.PhoneRecord {
	return c.records
}

// ByBrand returns the records of brand, matched case-insensitively.
func (c *Catalog) ByBrand(brand string) []domain.PhoneRecord {
	return c.byBrand[domain.BrandKey(brand)]
}

// Brands returns brand display names sorted by key.
func (c *Catalog) Brands() []string {
	return c.brands
}

// Len is the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}
