package domain

import "time"

// Baseline is an immutable budget snapshot for a project. Baselines are only
// ever appended; "current" is a pointer maintained by the baseline store, not
// a field on the snapshot itself.
type Baseline struct {
	ID          string
	ProjectID   string
	Version     string // label, e.g. "v3.0"
	Budget      float64
	Description string
	Author      string
	CreatedAt   time.Time
}
