package enums

import "fmt"

// Currency enumerates the settlement currencies accepted per territory.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyJMD Currency = "JMD"
	CurrencyTTD Currency = "TTD"
	CurrencyBBD Currency = "BBD"
	CurrencyXCD Currency = "XCD"
)

var validCurrencies = []Currency{
	CurrencyUSD,
	CurrencyJMD,
	CurrencyTTD,
	CurrencyBBD,
	CurrencyXCD,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Currency.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts raw input into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
