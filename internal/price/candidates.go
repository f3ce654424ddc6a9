package price

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const currencyMarkers = `€|£|\$|zł|Kč|\bEUR\b|\bCHF\b|\bUSD\b|\bGBP\b|\bPLN\b|\bkr\b`

var (
	currencyMarker = regexp.MustCompile(`(?i)(?:` + currencyMarkers + `)`)

	// "0,40 €/kg", "€ / 100 g"
	markerBesideDivider = regexp.MustCompile(`(?i)(?:` + currencyMarkers + `)\s*/|/\s*(?:` + currencyMarkers + `)`)

	// a measure unit attached to a quantity, a divider or a "per" word
	unitToken = regexp.MustCompile(`(?i)(?:\d\s*|/\s*|\b(?:per|pro|je|par)\s+)(?:m²|(?:ml|cl|dl|l|mg|g|kg|stk|st|pcs)\b)`)
)

// IsUnitPriceLine reports whether a line is a price-per-measure annotation
// such as "€0,29 / 100 g" or "1 kg = 4,99 €".
func IsUnitPriceLine(line string) bool {
	if !currencyMarker.MatchString(line) {
		return false
	}
	return markerBesideDivider.MatchString(line) || unitToken.MatchString(line)
}

// ExtractCandidatePrices collects every distinct price from the lines of raw
// that carry a currency marker and are not unit-price annotations.
// The result is sorted ascending.
func ExtractCandidatePrices(raw string) []decimal.Decimal {
	seen := make(map[string]struct{})
	var out []decimal.Decimal

	for _, line := range strings.Split(raw, "\n") {
		if !currencyMarker.MatchString(line) || IsUnitPriceLine(line) {
			continue
		}
		for _, v := range parseAll(line) {
			key := v.StringFixed(2)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out
}

// Pair is the resolved price reading of one listing entry
type Pair struct {
	Original decimal.NullDecimal
	Sale     decimal.NullDecimal

	// Discarded holds the intermediate candidates that were neither minimum nor maximum.
	Discarded []decimal.Decimal
}

// Disambiguate picks the sale and original price from ascending candidates.
// The minimum is the sale price and the maximum the original price; anything
// in between (installments, member prices) is dropped.
func Disambiguate(candidates []decimal.Decimal) Pair {
	switch len(candidates) {
	case 0:
		return Pair{}
	case 1:
		return Pair{Sale: decimal.NewNullDecimal(candidates[0])}
	}

	sorted := make([]decimal.Decimal, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	pair := Pair{
		Sale:     decimal.NewNullDecimal(sorted[0]),
		Original: decimal.NewNullDecimal(sorted[len(sorted)-1]),
	}
	if len(sorted) > 2 {
		pair.Discarded = sorted[1 : len(sorted)-1]
	}
	return pair
}

var hundred = decimal.NewFromInt(100)

// ComputeDiscount returns round(100 * (original - sale) / original) clamped to
// [0, 100]. It is 0 when either price is missing or not positive.
func ComputeDiscount(original, sale decimal.NullDecimal) int {
	if !original.Valid || !sale.Valid {
		return 0
	}
	if !original.Decimal.IsPositive() || !sale.Decimal.IsPositive() {
		return 0
	}

	pct := original.Decimal.Sub(sale.Decimal).Mul(hundred).Div(original.Decimal).Round(0)
	switch {
	case pct.IsNegative():
		return 0
	case pct.GreaterThan(hundred):
		return 100
	}
	return int(pct.IntPart())
}
