// Package currency converts and formats account amounts using a fixed rate table.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Base is the currency every rate in a RateTable is quoted against.
const Base = "USD"

// Converter converts an amount between two currency codes.
type Converter interface {
	Convert(amount float64, from, to string) float64
	// Has reports whether code has a known rate.
	Has(code string) bool
}

// RateTable maps a currency code to units of that currency per one USD.
type RateTable map[string]float64

// DefaultRates returns the built-in conversion table.
func DefaultRates() RateTable {
	return RateTable{
		"USD": 1,
		"INR": 83.25,
		"EUR": 0.92,
		"GBP": 0.79,
		"JPY": 149.50,
	}
}

// Merge returns a copy of the table with overrides applied. Non-positive
// override rates are ignored.
func (r RateTable) Merge(overrides map[string]float64) RateTable {
	out := make(RateTable, len(r)+len(overrides))
	for code, rate := range r {
		out[normalize(code)] = rate
	}
	for code, rate := range overrides {
		if rate > 0 {
			out[normalize(code)] = rate
		}
	}
	return out
}

// Has reports whether the code has a rate.
func (r RateTable) Has(code string) bool {
	_, ok := r.rate(code)
	return ok || normalize(code) == Base
}

// Convert moves amount from one currency to another through USD.
// Codes missing from the table convert at rate 1.
func (r RateTable) Convert(amount float64, from, to string) float64 {
	from, to = normalize(from), normalize(to)
	if from == to {
		return amount
	}

	usd := amount
	if from != Base {
		if rate, ok := r.rate(from); ok && rate != 0 {
			usd = amount / rate
		}
	}

	if to == Base {
		return usd
	}
	if rate, ok := r.rate(to); ok {
		return usd * rate
	}
	return usd
}

func (r RateTable) rate(code string) (float64, bool) {
	code = normalize(code)
	if rate, ok := r[code]; ok {
		return rate, true
	}
	// tolerate tables loaded with lowercase keys
	for k, rate := range r {
		if normalize(k) == code {
			return rate, true
		}
	}
	return 0, false
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// round rounds half away from zero to the given number of places.
func round(amount float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(places)
}
