package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Project represents one project tracked by the regional office.
// Monetary fields are kept in the project's home currency; conversion for
// display happens in the currency package.
type Project struct {
	ID           string
	Name         string
	SAPID        string // business key, e.g. "LAT-4711"
	HomeCurrency string // ISO code, e.g. "EUR"
	Budget       float64
	Committed    float64
	Realized     float64
	StartDate    *time.Time
	Deadline     *time.Time
}

// sapIDPattern matches the SAP-style project identifiers used across the
// office: 2-5 uppercase letters, a dash, and at least three digits.
var sapIDPattern = regexp.MustCompile(`^[A-Z]{2,5}-\d{3,}$`)

// Validate checks the fields required before a project may be persisted.
// Violations block the operation and never reach the record store.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("Validate: project name is required")
	}
	if !sapIDPattern.MatchString(p.SAPID) {
		return fmt.Errorf("Validate: malformed SAP id %q", p.SAPID)
	}
	if p.Budget <= 0 {
		return fmt.Errorf("Validate: budget must be positive, got %.2f", p.Budget)
	}
	if p.StartDate != nil && p.Deadline != nil && !p.StartDate.Before(*p.Deadline) {
		return fmt.Errorf("Validate: start date %s is not before deadline %s",
			p.StartDate.Format("2006-01-02"), p.Deadline.Format("2006-01-02"))
	}
	return nil
}
