package usecase

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// Compiled patterns for spec and price parsing
var (
	// Leading number of a spec string, thousands separators allowed: "5,000mAh", "6.5 inches"
	leadingNumberPattern = regexp.MustCompile(`^\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)

	// Currency code or symbol in front of a price: "USD 1,234.00", "$799"
	currencyPrefixPattern = regexp.MustCompile(`^\s*(?:[A-Za-z]{3}\s*|\$\s*)`)
)

// Catalog column names, also used as field names in MalformedRecordError
const (
	FieldBrand       = "Company Name"
	FieldModel       = "Model Name"
	FieldRAM         = "RAM"
	FieldFrontCamera = "Front Camera"
	FieldBackCamera  = "Back Camera"
	FieldBattery     = "Battery Capacity"
	FieldScreen      = "Screen Size"
	FieldPrice       = "Launched Price (USA)"
)

// ParseSpec extracts the leading numeric token of a spec string and drops the unit suffix.
func ParseSpec(field, text string) (float64, error) {
	m := leadingNumberPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, &domain.MalformedRecordError{Field: field, Value: text}
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, &domain.MalformedRecordError{Field: field, Value: text}
	}
	return v, nil
}

// ParsePrice parses a currency-prefixed price such as "USD 1,234.00".
func ParsePrice(text string) (float64, error) {
	v, err := ParseSpec(FieldPrice, currencyPrefixPattern.ReplaceAllString(text, ""))
	if err != nil {
		return 0, &domain.MalformedRecordError{Field: FieldPrice, Value: text}
	}
	return v, nil
}

// RawPhone is a catalog row before parsing
type RawPhone struct {
	Brand    string
	Model    string
	Specs    domain.SpecLabels
	RawPrice string
}

// NormalizeRecord parses every numeric field of a raw row. row is the 1-based
// data row used in error messages; pass 0 when the input is not from a file.
func NormalizeRecord(raw RawPhone, row int) (domain.PhoneRecord, error) {
	rec := domain.PhoneRecord{
		Brand:     strings.TrimSpace(raw.Brand),
		Model:     strings.TrimSpace(raw.Model),
		Raw:       raw.Specs,
		RawPrice:  raw.RawPrice,
		SourceRow: row,
	}
	if rec.Brand == "" {
		return domain.PhoneRecord{}, &domain.MalformedRecordError{Row: row, Field: FieldBrand, Value: raw.Brand}
	}

	fields := []struct {
		name string
		text string
		dst  *float64
	}{
		{FieldRAM, raw.Specs.RAM, &rec.Specs.RAM},
		{FieldFrontCamera, raw.Specs.FrontCamera, &rec.Specs.FrontCamera},
		{FieldBackCamera, raw.Specs.BackCamera, &rec.Specs.BackCamera},
		{FieldBattery, raw.Specs.Battery, &rec.Specs.Battery},
		{FieldScreen, raw.Specs.Screen, &rec.Specs.Screen},
	}
	for _, f := range fields {
		v, err := ParseSpec(f.name, f.text)
		if err != nil {
			return domain.PhoneRecord{}, withRow(err, row)
		}
		*f.dst = v
	}

	price, err := ParsePrice(raw.RawPrice)
	if err != nil {
		return domain.PhoneRecord{}, withRow(err, row)
	}
	rec.PriceUSD = price

	return rec, nil
}

func withRow(err error, row int) error {
	if mre, ok := err.(*domain.MalformedRecordError); ok {
		mre.Row = row
		return mre
	}
	return fmt.Errorf("row %d: %w", row, err)
}
