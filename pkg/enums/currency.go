package enums

import (
	"fmt"
	"slices"
	"strings"
)

// Currency is the ISO 4217 code a deployment prices quotes in. One
// deployment uses one currency; there is no conversion.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyPLN Currency = "PLN"
	CurrencyGBP Currency = "GBP"
)

// SupportedCurrencies lists the codes the formatter has been checked against.
var SupportedCurrencies = []Currency{CurrencyUSD, CurrencyEUR, CurrencyPLN, CurrencyGBP}

func (c Currency) String() string {
	return string(c)
}

func (c Currency) IsValid() bool {
	return slices.Contains(SupportedCurrencies, c)
}

// ParseCurrency accepts any casing and surrounding whitespace.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", value)
	}
	return c, nil
}
