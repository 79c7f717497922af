package store

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/avolkov/pmo-budget/internal/domain"
)

// ProjectRow maps the projects table. Monetary columns are NUMERIC.
type ProjectRow struct {
	ProjectID         string              `bigquery:"project_id"` // REQUIRED
	Name              string              `bigquery:"name"`
	SAPID             string              `bigquery:"sap_id"`
	HomeCurrency      string              `bigquery:"home_currency"`
	Budget            *big.Rat            `bigquery:"budget"`
	Committed         *big.Rat            `bigquery:"committed"`
	Realized          *big.Rat            `bigquery:"realized"`
	StartDate         bigquery.NullDate   `bigquery:"start_date"` // NULLABLE
	Deadline          bigquery.NullDate   `bigquery:"deadline"`   // NULLABLE
	CurrentBaselineID bigquery.NullString `bigquery:"current_baseline_id"`
	CreatedTS         time.Time           `bigquery:"created_ts"`
}

// TransactionRow maps the transactions table.
type TransactionRow struct {
	TransactionID   string     `bigquery:"transaction_id"` // REQUIRED
	ProjectID       string     `bigquery:"project_id"`
	Amount          *big.Rat   `bigquery:"amount"`
	Category        string     `bigquery:"category"`
	TransactionType string     `bigquery:"transaction_type"`
	TransactionDate civil.Date `bigquery:"transaction_date"`
	CreatedTS       time.Time  `bigquery:"created_ts"`
}

// BaselineRow maps the baselines table. Rows are insert-only.
type BaselineRow struct {
	BaselineID  string    `bigquery:"baseline_id"` // REQUIRED
	ProjectID   string    `bigquery:"project_id"`
	Version     string    `bigquery:"version"`
	Budget      *big.Rat  `bigquery:"budget"`
	Description string    `bigquery:"description"`
	Author      string    `bigquery:"author"`
	CreatedTS   time.Time `bigquery:"created_ts"`
}

// LineItemRow maps the line_items table. One row per version; is_active
// marks the head of each version chain.
type LineItemRow struct {
	LineItemID  string    `bigquery:"line_item_id"` // REQUIRED
	SAPID       string    `bigquery:"sap_id"`
	Category    string    `bigquery:"category"`
	ProjectName string    `bigquery:"project_name"`
	Months      []float64 `bigquery:"months"` // REPEATED, always 12 entries
	Total       *big.Rat  `bigquery:"total"`
	Version     int64     `bigquery:"version"`
	IsActive    bool      `bigquery:"is_active"`
	Provenance  string    `bigquery:"provenance"`
	UpdatedTS   time.Time `bigquery:"updated_ts"`
}

// ratFromFloat converts a float64 amount into the NUMERIC wire type.
func ratFromFloat(v float64) *big.Rat {
	return new(big.Rat).SetFloat64(v)
}

// floatFromRat converts a NUMERIC column back to float64, treating NULL as 0.
func floatFromRat(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}

func (r *ProjectRow) toDomain() *domain.Project {
	p := &domain.Project{
		ID:           r.ProjectID,
		Name:         r.Name,
		SAPID:        r.SAPID,
		HomeCurrency: r.HomeCurrency,
		Budget:       floatFromRat(r.Budget),
		Committed:    floatFromRat(r.Committed),
		Realized:     floatFromRat(r.Realized),
	}
	if r.StartDate.Valid {
		t := r.StartDate.Date.In(time.UTC)
		p.StartDate = &t
	}
	if r.Deadline.Valid {
		t := r.Deadline.Date.In(time.UTC)
		p.Deadline = &t
	}
	return p
}

func (r *TransactionRow) toDomain() *domain.Transaction {
	return &domain.Transaction{
		ID:        r.TransactionID,
		ProjectID: r.ProjectID,
		Amount:    floatFromRat(r.Amount),
		Category:  r.Category,
		Type:      domain.TransactionType(r.TransactionType),
		Date:      r.TransactionDate.In(time.UTC),
	}
}

func (r *BaselineRow) toDomain() *domain.Baseline {
	return &domain.Baseline{
		ID:          r.BaselineID,
		ProjectID:   r.ProjectID,
		Version:     r.Version,
		Budget:      floatFromRat(r.Budget),
		Description: r.Description,
		Author:      r.Author,
		CreatedAt:   r.CreatedTS,
	}
}

func (r *LineItemRow) toDomain() *domain.LineItemVersion {
	v := &domain.LineItemVersion{
		ID:          r.LineItemID,
		SAPID:       r.SAPID,
		Category:    r.Category,
		ProjectName: r.ProjectName,
		Total:       floatFromRat(r.Total),
		Version:     int(r.Version),
		IsActive:    r.IsActive,
		Provenance:  domain.Provenance(r.Provenance),
		UpdatedAt:   r.UpdatedTS,
	}
	for i := 0; i < domain.MonthsPerYear && i < len(r.Months); i++ {
		v.Months[i] = r.Months[i]
	}
	return v
}

func lineItemRowFromDomain(v *domain.LineItemVersion) *LineItemRow {
	months := make([]float64, domain.MonthsPerYear)
	copy(months, v.Months[:])
	return &LineItemRow{
		LineItemID:  v.ID,
		SAPID:       v.SAPID,
		Category:    v.Category,
		ProjectName: v.ProjectName,
		Months:      months,
		Total:       ratFromFloat(v.Total),
		Version:     int64(v.Version),
		IsActive:    v.IsActive,
		Provenance:  string(v.Provenance),
		UpdatedTS:   v.UpdatedAt,
	}
}
