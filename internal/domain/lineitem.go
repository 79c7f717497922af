package domain

import "time"

// Provenance records where a committed-budget row came from. Rows integrated
// from an upstream system are read-only here; the only remedy for a wrong
// integrated figure is fixing the upstream source.
type Provenance string

const (
	ProvenanceManual     Provenance = "manual"
	ProvenanceIntegrated Provenance = "integrated"
)

// MonthsPerYear is the length of the per-month amount vector on a line item.
const MonthsPerYear = 12

// LineItemVersion is one row of the versioned committed-budget ledger. An
// edit never mutates a row: it deactivates the active version and inserts a
// successor with version+1. The full set of versions per SAP id is the audit
// trail; nothing is deleted.
type LineItemVersion struct {
	ID          string
	SAPID       string // stable business key identifying the logical line
	Category    string
	ProjectName string
	Months      [MonthsPerYear]float64
	Total       float64
	Version     int
	IsActive    bool
	Provenance  Provenance
	UpdatedAt   time.Time
}

// SumMonths returns the sum of the twelve month amounts.
func (v *LineItemVersion) SumMonths() float64 {
	var total float64
	for _, m := range v.Months {
		total += m
	}
	return total
}
