package core

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

func init() {
	// Persisted collections carry amounts as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// leadingNumber matches the numeric prefix of a normalized amount.
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)

// ParseMonetaryValue reads a statement amount as a non-negative decimal.
//
// "1.234,56" and "1234,56" use a comma decimal separator, "1234.56" a dot.
// The currency symbol and whitespace are ignored, and so is anything after the
// leading number, such as the sign suffix in "150,00-". Unparseable input yields zero.
func ParseMonetaryValue(raw string) decimal.Decimal {
	s := strings.ReplaceAll(raw, "R$", "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	hasComma := strings.Contains(s, ",")
	switch {
	case hasComma && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	}

	num := strings.TrimSuffix(leadingNumber.FindString(s), ".")
	if num == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	return v.Abs()
}

// RoundCents rounds to two decimal places.
func RoundCents(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Percent returns part/total*100, or zero when total is zero.
func Percent(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(decimal.NewFromInt(100))
}
