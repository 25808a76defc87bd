package enums

import (
	"fmt"
	"strings"
)

// Currency is the ISO 4217 code wallet balances and order totals are held in.
// The storefront is single-currency; every amount is USD.
type Currency string

const CurrencyUSD Currency = "USD"

// DefaultCurrency is stamped on orders and wallet views.
const DefaultCurrency = CurrencyUSD

var minorUnits = map[Currency]int32{
	CurrencyUSD: 2,
}

func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether c is a supported currency.
func (c Currency) IsValid() bool {
	_, ok := minorUnits[c]
	return ok
}

// MinorUnits is the number of decimal places amounts are rounded to.
func (c Currency) MinorUnits() int32 {
	return minorUnits[c]
}

// ParseCurrency accepts a code in any case.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return c, nil
}
