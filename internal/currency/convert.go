package currency

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Resolve looks up the rate for a basis key and fiscal year. A year missing
// from the table resolves to the latest defined year. An unknown basis key
// resolves to rate 1 with the key itself as label, so an unexpected selector
// value degrades to "no conversion" rather than an error.
func Resolve(basisKey string, year int) Rate {
	yearTable, ok := rateTable[year]
	if !ok {
		yearTable = rateTable[latestYear()]
	}
	rate, ok := yearTable[basisKey]
	if !ok {
		return Rate{Multiplier: decimal.NewFromInt(1), Label: basisKey}
	}
	return rate
}

// Convert applies the rate for (basisKey, year) to a home-currency amount and
// rounds half-up to cents. The home basis is the identity: the amount passes
// through untouched, so repeated display on the no-conversion path cannot
// accumulate rounding drift.
func Convert(amount float64, basisKey string, year int) float64 {
	if basisKey == HomeBasis {
		return amount
	}
	rate := Resolve(basisKey, year)
	converted := decimal.NewFromFloat(amount).Mul(rate.Multiplier)
	f, _ := converted.Round(2).Float64()
	return f
}

// Label returns the display label for a basis key and year.
func Label(basisKey string, year int) string {
	return Resolve(basisKey, year).Label
}

// Format renders a converted amount with the currency symbol for the given
// ISO code, e.g. Format(1234.5, "EUR") -> "€1,234.50".
func Format(amount float64, code string) string {
	units := decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
	return money.New(units, code).Display()
}
