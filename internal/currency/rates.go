// Package currency converts stored home-currency amounts into the rate basis
// selected for display. Rates are defined per fiscal year; the table is
// static and the conversion is a pure function of its inputs.
package currency

import "github.com/shopspring/decimal"

// Basis keys understood by the rate table. HomeBasis is the "no conversion"
// path and always carries a rate of exactly 1.
const (
	HomeBasis     = "home"
	ApprovalBasis = "approval"
	BUBasis       = "bu"
	AverageBasis  = "average"
)

// Rate is one entry of the per-year rate table: a multiplier applied to a
// home-currency amount plus the label shown next to converted figures.
type Rate struct {
	Multiplier decimal.Decimal
	Label      string
}

// rateTable maps fiscal year -> basis key -> rate. Figures come from the
// annual treasury circular; the home basis is pinned to 1 in every year.
var rateTable = map[int]map[string]Rate{
	2023: {
		HomeBasis:     {Multiplier: decimal.NewFromInt(1), Label: "EUR"},
		ApprovalBasis: {Multiplier: decimal.RequireFromString("1.0845"), Label: "USD (approval)"},
		BUBasis:       {Multiplier: decimal.RequireFromString("1.0710"), Label: "USD (BU)"},
		AverageBasis:  {Multiplier: decimal.RequireFromString("1.0813"), Label: "USD (avg)"},
	},
	2024: {
		HomeBasis:     {Multiplier: decimal.NewFromInt(1), Label: "EUR"},
		ApprovalBasis: {Multiplier: decimal.RequireFromString("1.0926"), Label: "USD (approval)"},
		BUBasis:       {Multiplier: decimal.RequireFromString("1.0820"), Label: "USD (BU)"},
		AverageBasis:  {Multiplier: decimal.RequireFromString("1.0875"), Label: "USD (avg)"},
	},
	2025: {
		HomeBasis:     {Multiplier: decimal.NewFromInt(1), Label: "EUR"},
		ApprovalBasis: {Multiplier: decimal.RequireFromString("1.1030"), Label: "USD (approval)"},
		BUBasis:       {Multiplier: decimal.RequireFromString("1.0955"), Label: "USD (BU)"},
		AverageBasis:  {Multiplier: decimal.RequireFromString("1.0990"), Label: "USD (avg)"},
	},
}

// latestYear returns the most recent year defined in the table. Unknown
// years fall back to this table instead of failing: the display layer must
// keep working when a selector lands on a year the circular has not covered.
func latestYear() int {
	latest := 0
	for y := range rateTable {
		if y > latest {
			latest = y
		}
	}
	return latest
}
