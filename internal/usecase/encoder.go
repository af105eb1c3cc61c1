package usecase

import (
	"sort"

	"github.com/pricelens/backend/internal/domain"
)

// BrandEncoder maps a brand to a one-hot vector over the brands seen at fit time.
// Unknown brands encode to the zero vector.
type BrandEncoder struct {
	Vocabulary []string `json:"vocabulary"` // brand keys in index order

	index map[string]int
}

// FitBrandEncoder builds an encoder over the distinct brands, sorted by key.
func FitBrandEncoder(brands []string) *BrandEncoder {
	seen := make(map[string]bool, len(brands))
	vocab := make([]string, 0, len(brands))
	for _, b := range brands {
		key := domain.BrandKey(b)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		vocab = append(vocab, key)
	}
	sort.Strings(vocab)
	return NewBrandEncoder(vocab)
}

// NewBrandEncoder restores an encoder from a persisted vocabulary.
func NewBrandEncoder(vocabulary []string) *BrandEncoder {
	e := &BrandEncoder{Vocabulary: vocabulary}
	e.buildIndex()
	return e
}

func (e *BrandEncoder) buildIndex() {
	e.index = make(map[string]int, len(e.Vocabulary))
	for i, key := range e.Vocabulary {
		e.index[key] = i
	}
}

// Width is the vocabulary size.
func (e *BrandEncoder) Width() int {
	return len(e.Vocabulary)
}

// Index returns the position of brand in the vocabulary.
func (e *BrandEncoder) Index(brand string) (int, bool) {
	key := domain.BrandKey(brand)
	if e.index == nil {
		for i, v := range e.Vocabulary {
			if v == key {
				return i, true
			}
		}
		return 0, false
	}
	i, ok := e.index[key]
	return i, ok
}

// Known reports whether brand was seen at fit time.
func (e *BrandEncoder) Known(brand string) bool {
	_, ok := e.Index(brand)
	return ok
}

// Transform returns the indicator vector for brand.
func (e *BrandEncoder) Transform(brand string) []float64 {
	out := make([]float64, e.Width())
	if i, ok := e.Index(brand); ok {
		out[i] = 1
	}
	return out
}
