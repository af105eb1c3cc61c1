package usecase

import (
	"errors"
	"testing"

	"github.com/pricelens/backend/internal/domain"
)

func TestParseSpec(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want float64
	}{
		{name: "ram in GB", text: "8GB", want: 8},
		{name: "camera in MP", text: "108MP", want: 108},
		{name: "battery in mAh", text: "5000mAh", want: 5000},
		{name: "battery with thousands separator", text: "5,000mAh", want: 5000},
		{name: "screen in inches", text: "6.5 inches", want: 6.5},
		{name: "leading whitespace", text: "  12MP", want: 12},
		{name: "dual camera keeps first value", text: "50MP + 12MP", want: 50},
		{name: "bare number", text: "4", want: 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSpec(FieldRAM, tc.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ParseSpec(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestParseSpec_Malformed(t *testing.T) {
	for _, text := range []string{"", "GB", "n/a", "approx. 6 inches", "-5MP"} {
		t.Run(text, func(t *testing.T) {
			_, err := ParseSpec(FieldScreen, text)
			if !errors.Is(err, domain.ErrMalformedRecord) {
				t.Fatalf("error = %v, want ErrMalformedRecord", err)
			}
			var mre *domain.MalformedRecordError
			if !errors.As(err, &mre) {
				t.Fatalf("error %T is not *MalformedRecordError", err)
			}
			if mre.Field != FieldScreen || mre.Value != text {
				t.Errorf("got field %q value %q", mre.Field, mre.Value)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		text string
		want float64
	}{
		{"USD 1,234.00", 1234},
		{"USD 799", 799},
		{"$ 499.99", 499.99},
		{"1,099", 1099},
	}
	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			got, err := ParsePrice(tc.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ParsePrice(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}

	t.Run("rejects price without digits", func(t *testing.T) {
		_, err := ParsePrice("USD n/a")
		var mre *domain.MalformedRecordError
		if !errors.As(err, &mre) || mre.Field != FieldPrice || mre.Value != "USD n/a" {
			t.Errorf("error = %v, want MalformedRecordError for price", err)
		}
	})
}

func TestNormalizeRecord(t *testing.T) {
	raw := RawPhone{
		Brand: " Samsung ",
		Model: "Galaxy S24",
		Specs: domain.SpecLabels{
			RAM:         "8GB",
			FrontCamera: "12MP",
			BackCamera:  "50MP",
			Battery:     "4,000mAh",
			Screen:      "6.2 inches",
		},
		RawPrice: "USD 799",
	}

	t.Run("parses all fields", func(t *testing.T) {
		rec, err := NormalizeRecord(raw, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := domain.PhoneSpecs{RAM: 8, FrontCamera: 12, BackCamera: 50, Battery: 4000, Screen: 6.2}
		if rec.Specs != want {
			t.Errorf("Specs = %+v, want %+v", rec.Specs, want)
		}
		if rec.PriceUSD != 799 {
			t.Errorf("PriceUSD = %v, want 799", rec.PriceUSD)
		}
		if rec.Brand != "Samsung" {
			t.Errorf("Brand = %q, want trimmed", rec.Brand)
		}
		if rec.SourceRow != 3 {
			t.Errorf("SourceRow = %d, want 3", rec.SourceRow)
		}
	})

	t.Run("reports row of malformed field", func(t *testing.T) {
		bad := raw
		bad.Specs.Battery = "unknown"
		_, err := NormalizeRecord(bad, 7)
		var mre *domain.MalformedRecordError
		if !errors.As(err, &mre) {
			t.Fatalf("error = %v, want MalformedRecordError", err)
		}
		if mre.Row != 7 || mre.Field != FieldBattery {
			t.Errorf("got row %d field %q, want row 7 field %q", mre.Row, mre.Field, FieldBattery)
		}
	})

	t.Run("rejects empty brand", func(t *testing.T) {
		bad := raw
		bad.Brand = "  "
		_, err := NormalizeRecord(bad, 1)
		if !errors.Is(err, domain.ErrMalformedRecord) {
			t.Errorf("error = %v, want ErrMalformedRecord", err)
		}
	})
}
