package pricing

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"rupee lakh grouping", "₹1,23,456", 123456},
		{"no symbol", "1,23,456", 123456},
		{"western grouping", "$123,456", 123456},
		{"decimal part", "₹79,999.00", 79999},
		{"fractional", "1,299.50", 1299.5},
		{"rs prefix with dot", "Rs. 1,299", 1299},
		{"surrounding whitespace", "  ₹ 999\n", 999},
		{"trailing dot", "1,23,456.", 123456},
		{"inr word", "INR 2,499", 2499},
		{"non-breaking space", "₹ 5,499", 5499},
		{"zero", "₹0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("Normalize(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalize_SymbolIndependent(t *testing.T) {
	inputs := []string{"₹1,23,456", "1,23,456", "Rs.1,23,456", "INR 1,23,456"}
	for _, raw := range inputs {
		got, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%q) error = %v", raw, err)
		}
		if got != 123456.0 {
			t.Errorf("Normalize(%q) = %v, want 123456", raw, got)
		}
	}
}

func TestNormalize_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"no digits", "Price not found"},
		{"symbol only", "₹"},
		{"negative", "-₹1,000"},
		{"negative number", "-500"},
		{"promo badge", "Save 20% ₹1,999"},
		{"price range", "₹1,299 - ₹1,499"},
		{"trailing label", "₹64,900 M.R.P."},
		{"digits around text", "12abc34"},
		{"two decimal points", "1.299.00"},
		{"separator first", ",999"},
		{"out of float range", "₹" + strings.Repeat("9", 400)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if err == nil {
				t.Fatalf("Normalize(%q) = %v, want error", tt.raw, got)
			}
			if !errors.Is(err, ErrNormalization) {
				t.Errorf("error %v does not wrap ErrNormalization", err)
			}
			var nerr *NormalizationError
			if !errors.As(err, &nerr) {
				t.Fatalf("error %T is not *NormalizationError", err)
			}
			if nerr.Raw != tt.raw {
				t.Errorf("NormalizationError.Raw = %q, want %q", nerr.Raw, tt.raw)
			}
		})
	}
}

func TestNormalizeSplit(t *testing.T) {
	tests := []struct {
		name     string
		whole    string
		fraction string
		want     float64
		wantErr  bool
	}{
		{"amazon trailing dot", "1,23,456.", "00", 123456, false},
		{"amazon with paise", "1,299.", "50", 1299.5, false},
		{"no dot in whole", "999", "99", 999.99, false},
		{"empty fraction", "₹2,499", "", 2499, false},
		{"non-numeric fraction", "2,499", "--", 2499, false},
		{"empty whole", "", "99", 0, true},
		{"both empty", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSplit(tt.whole, tt.fraction)
			if tt.wantErr {
				if !errors.Is(err, ErrNormalization) {
					t.Fatalf("NormalizeSplit(%q, %q) error = %v, want ErrNormalization", tt.whole, tt.fraction, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeSplit(%q, %q) error = %v", tt.whole, tt.fraction, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeSplit(%q, %q) = %v, want %v", tt.whole, tt.fraction, got, tt.want)
			}
		})
	}
}

func TestRound(t *testing.T) {
	if got := Round(-10.004, 2); got != -10 {
		t.Errorf("Round(-10.004, 2) = %v, want -10", got)
	}
	if got := Round(12.345, 2); got != 12.35 {
		t.Errorf("Round(12.345, 2) = %v, want 12.35", got)
	}
}
