package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency matches a dollar amount with optional thousands separators and exactly two decimals.
var Currency = regexp.MustCompile(`\$\s*((?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2})\b`)

// number matches a bare amount, as found in price widgets that drop the symbol.
var number = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)

// FindCurrency returns the first currency amount in s.
func FindCurrency(s string) (decimal.Decimal, bool) {
	m := Currency.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, false
	}
	return parseNumber(m[1])
}

// FindAllCurrency returns every currency amount in s with its byte offsets.
func FindAllCurrency(s string) []Match {
	var matches []Match
	for _, loc := range Currency.FindAllStringSubmatchIndex(s, -1) {
		v, ok := parseNumber(s[loc[2]:loc[3]])
		if !ok {
			continue
		}
		matches = append(matches, Match{Value: v, Start: loc[0], End: loc[1]})
	}
	return matches
}

// Match is an amount found in a text.
type Match struct {
	Value      decimal.Decimal
	Start, End int
}

// ParseAmount reads an amount from a price label such as "$1,234.56" or "24.99".
// A currency formatted amount is preferred, otherwise the first number is used.
func ParseAmount(s string) (decimal.Decimal, bool) {
	if v, ok := FindCurrency(s); ok {
		return v, true
	}
	m := number.FindString(s)
	if m == "" {
		return decimal.Zero, false
	}
	return parseNumber(m)
}

func parseNumber(s string) (decimal.Decimal, bool) {
	v, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
