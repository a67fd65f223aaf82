// Package pricing turns scraped currency strings into numeric prices.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ErrNormalization is returned for any raw price that cannot be turned into a number
var ErrNormalization = errors.New("price normalization failed")

// NormalizationError carries the raw input that failed to parse
type NormalizationError struct {
	Raw    string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize price %q: %s", e.Raw, e.Reason)
}

func (e *NormalizationError) Unwrap() error {
	return ErrNormalization
}

// amount is what must remain once the currency marker is removed: digits
// with optional thousands separators (western or lakh grouping) and an
// optional fractional part.
var amount = regexp.MustCompile(`^[0-9][0-9,]*(?:\.[0-9]*)?$`)

// currencyWords are textual markers accepted in front of the amount
var currencyWords = []string{"rs.", "rs", "inr"}

// Normalize converts a locale-formatted currency string such as "₹1,23,456.00"
// or "Rs. 1,299" to a number in the same currency unit. Anything besides a
// leading currency marker and a single amount is rejected.
func Normalize(raw string) (float64, error) {
	rest := strings.TrimSpace(raw)
	if rest == "" {
		return 0, &NormalizationError{Raw: raw, Reason: "empty input"}
	}

	negative := false
	if strings.HasPrefix(rest, "-") {
		negative = true
		rest = strings.TrimSpace(rest[1:])
	}
	rest = trimCurrency(rest)
	if strings.HasPrefix(rest, "-") {
		negative = true
		rest = strings.TrimSpace(rest[1:])
	}
	if rest == "" {
		return 0, &NormalizationError{Raw: raw, Reason: "no digits"}
	}
	if !amount.MatchString(rest) {
		return 0, &NormalizationError{Raw: raw, Reason: "not a single amount"}
	}
	if negative {
		return 0, &NormalizationError{Raw: raw, Reason: "negative price"}
	}

	d, err := decimal.NewFromString(strings.TrimSuffix(strings.ReplaceAll(rest, ",", ""), "."))
	if err != nil {
		return 0, &NormalizationError{Raw: raw, Reason: err.Error()}
	}

	v := d.InexactFloat64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &NormalizationError{Raw: raw, Reason: "amount out of range"}
	}
	return v, nil
}

// trimCurrency strips leading currency symbols and words along with the
// whitespace around them
func trimCurrency(s string) string {
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		r, size := utf8.DecodeRuneInString(s)
		if size > 0 && unicode.Is(unicode.Sc, r) {
			s = s[size:]
			continue
		}
		trimmed := false
		for _, w := range currencyWords {
			if len(s) >= len(w) && strings.EqualFold(s[:len(w)], w) {
				s = s[len(w):]
				trimmed = true
				break
			}
		}
		if !trimmed {
			return s
		}
	}
}

// NormalizeSplit joins a whole part and a separately rendered fractional part
// (for example "1,23,456." and "00") and normalizes the result.
func NormalizeSplit(whole, fraction string) (float64, error) {
	whole = strings.TrimSpace(whole)
	fraction = strings.TrimSpace(fraction)
	if fraction == "" {
		return Normalize(whole)
	}
	if whole == "" {
		return 0, &NormalizationError{Raw: fraction, Reason: "fraction without whole part"}
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, fraction)
	if digits == "" {
		return Normalize(whole)
	}

	return Normalize(strings.TrimRight(whole, ".") + "." + digits)
}

// Round rounds v to the given number of decimal places using decimal arithmetic
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
