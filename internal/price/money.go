// Package price turns noisy listing text into money values and an
// (original, sale, discount) reading.
package price

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// numericToken finds maximal runs of digits joined by separators.
	numericToken = regexp.MustCompile(`\d+(?:[.,\x{00a0}\x{202f}]\d+)*`)

	// priceShape accepts 1-3 digits with grouped thousands, or a plain integer
	// part, followed by exactly two fractional digits.
	priceShape = regexp.MustCompile(`^(?:\d{1,3}(?:[.,\x{00a0}\x{202f}]\d{3})+|\d+)[.,]\d{2}$`)
)

// ParseMoney returns the first price-shaped value in text.
// "1.234,56", "1,234.56" and "107,99" are all understood; whichever of ',' and
// '.' occurs last is the decimal separator.
func ParseMoney(text string) (decimal.Decimal, bool) {
	for _, tok := range numericToken.FindAllString(text, -1) {
		if v, ok := parseToken(tok); ok {
			return v, true
		}
	}
	return decimal.Decimal{}, false
}

// parseAll returns every price-shaped value in text in order of appearance
func parseAll(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, tok := range numericToken.FindAllString(text, -1) {
		if v, ok := parseToken(tok); ok {
			out = append(out, v)
		}
	}
	return out
}

func parseToken(tok string) (decimal.Decimal, bool) {
	if !priceShape.MatchString(tok) {
		return decimal.Decimal{}, false
	}

	sep := strings.LastIndexAny(tok, ".,")
	intPart := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, tok[:sep])
	cleaned := intPart + "." + tok[sep+1:]

	v, err := decimal.NewFromString(cleaned)
	if err != nil || v.IsNegative() {
		return decimal.Decimal{}, false
	}
	return v.Round(2), true
}
