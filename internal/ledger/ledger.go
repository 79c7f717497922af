// Package ledger implements the versioned committed-budget line-item ledger.
// Editing a line never mutates a row: the active version is deactivated and a
// successor row with version+1 is appended. The version chain per SAP id is
// the audit trail - there is no separate audit-log table.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/pmo-budget/internal/domain"
)

// Month field names accepted by ApplyEdit, index order matching
// domain.LineItemVersion.Months.
var monthFields = [domain.MonthsPerYear]string{
	"jan", "feb", "mar", "apr", "may", "jun",
	"jul", "aug", "sep", "oct", "nov", "dec",
}

// FieldTotal redistributes the yearly total across months instead of setting
// a single month.
const FieldTotal = "total"

// ErrStaleVersion is returned when an edit was prepared against a version
// that is no longer the active one. The caller re-reads and retries;
// accepting the write would fork the version chain.
var ErrStaleVersion = errors.New("line item was modified by a newer version")

// ErrUnknownField is returned for a field name that is neither a month nor
// the total.
var ErrUnknownField = errors.New("unknown line item field")

// EditResult carries both rows produced by an edit: the prior active row,
// now deactivated, and the freshly created successor.
type EditResult struct {
	Deactivated *domain.LineItemVersion
	Created     *domain.LineItemVersion
}

// ApplyEdit derives the successor row for an edit of the active version. The
// successor deep-copies the active row, applies the field change, gets a new
// surrogate id, version+1 and a fresh timestamp. Month edits recompute the
// total from the twelve months; a total edit redistributes the new total
// proportionally to the prior month distribution. When the prior total is
// zero there is no distribution to scale, so the new total is split evenly
// with the cent remainder pushed into December.
func ApplyEdit(active *domain.LineItemVersion, field string, newValue float64, now time.Time) (*EditResult, error) {
	next := *active
	next.ID = uuid.NewString()
	next.Version = active.Version + 1
	next.IsActive = true
	next.UpdatedAt = now

	if field == FieldTotal {
		applyTotalEdit(&next, active, newValue)
	} else {
		idx, ok := monthIndex(field)
		if !ok {
			return nil, fmt.Errorf("ApplyEdit: %w: %q", ErrUnknownField, field)
		}
		next.Months[idx] = newValue
		next.Total = next.SumMonths()
	}

	deactivated := *active
	deactivated.IsActive = false

	return &EditResult{Deactivated: &deactivated, Created: &next}, nil
}

// FieldValue reads the current value of an editable field, for gate checks
// before an edit is applied.
func FieldValue(row *domain.LineItemVersion, field string) (float64, error) {
	if field == FieldTotal {
		return row.Total, nil
	}
	idx, ok := monthIndex(field)
	if !ok {
		return 0, fmt.Errorf("FieldValue: %w: %q", ErrUnknownField, field)
	}
	return row.Months[idx], nil
}

func applyTotalEdit(next, prior *domain.LineItemVersion, newTotal float64) {
	if prior.Total == 0 {
		share := roundCents(newTotal / domain.MonthsPerYear)
		var distributed float64
		for i := 0; i < domain.MonthsPerYear-1; i++ {
			next.Months[i] = share
			distributed += share
		}
		next.Months[domain.MonthsPerYear-1] = roundCents(newTotal - distributed)
		next.Total = newTotal
		return
	}

	for i, m := range prior.Months {
		next.Months[i] = math.Round(newTotal * m / prior.Total)
	}
	next.Total = next.SumMonths()
}

func monthIndex(field string) (int, bool) {
	for i, name := range monthFields {
		if name == field {
			return i, true
		}
	}
	return 0, false
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Arena is an in-memory append-only store of line-item versions indexed by
// SAP id. It enforces the single-active-version invariant mechanically:
// versions are only ever appended, never removed or spliced. Safe for
// concurrent use.
type Arena struct {
	mu       sync.RWMutex
	versions map[string][]*domain.LineItemVersion
}

// NewArena creates an empty version arena.
func NewArena() *Arena {
	return &Arena{versions: make(map[string][]*domain.LineItemVersion)}
}

// Seed registers the first version of a logical line. Version numbers start
// at 1 and the seeded row becomes active.
func (a *Arena) Seed(row *domain.LineItemVersion) (*domain.LineItemVersion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.versions[row.SAPID]) > 0 {
		return nil, fmt.Errorf("Seed: line %s already exists", row.SAPID)
	}

	seeded := *row
	if seeded.ID == "" {
		seeded.ID = uuid.NewString()
	}
	seeded.Version = 1
	seeded.IsActive = true
	seeded.Total = seeded.SumMonths()
	a.versions[row.SAPID] = append(a.versions[row.SAPID], &seeded)

	copied := seeded
	return &copied, nil
}

// Load rebuilds the arena from persisted versions, e.g. at service startup.
// Versions are grouped by SAP id and ordered oldest first; the arena must be
// empty.
func (a *Arena) Load(versions []*domain.LineItemVersion) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.versions) > 0 {
		return errors.New("Load: arena is not empty")
	}

	for _, v := range versions {
		copied := *v
		a.versions[v.SAPID] = append(a.versions[v.SAPID], &copied)
	}
	for _, chain := range a.versions {
		sort.Slice(chain, func(i, j int) bool { return chain[i].Version < chain[j].Version })
	}
	return nil
}

// Edit applies a field change to the line identified by sapID. seenVersion is
// the version number the caller based the edit on; if a newer version became
// active in the meantime the edit is rejected with ErrStaleVersion.
func (a *Arena) Edit(sapID, field string, newValue float64, seenVersion int, now time.Time) (*EditResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	chain := a.versions[sapID]
	if len(chain) == 0 {
		return nil, fmt.Errorf("Edit: line not found: %s", sapID)
	}

	active := chain[len(chain)-1]
	if active.Version != seenVersion {
		return nil, fmt.Errorf("Edit: %w: saw v%d, active is v%d", ErrStaleVersion, seenVersion, active.Version)
	}

	result, err := ApplyEdit(active, field, newValue, now)
	if err != nil {
		return nil, err
	}

	active.IsActive = false
	a.versions[sapID] = append(chain, result.Created)

	return result, nil
}

// Active returns a copy of the active version for a line, or nil if the line
// is unknown.
func (a *Arena) Active(sapID string) *domain.LineItemVersion {
	a.mu.RLock()
	defer a.mu.RUnlock()

	chain := a.versions[sapID]
	if len(chain) == 0 {
		return nil
	}
	copied := *chain[len(chain)-1]
	return &copied
}

// History returns all versions of a line, newest first. The slice holds
// copies; mutating them does not touch the arena.
func (a *Arena) History(sapID string) []*domain.LineItemVersion {
	a.mu.RLock()
	defer a.mu.RUnlock()

	chain := a.versions[sapID]
	out := make([]*domain.LineItemVersion, 0, len(chain))
	for _, v := range chain {
		copied := *v
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out
}

// ActiveLines returns the active version of every line in the arena, sorted
// by SAP id for deterministic listings.
func (a *Arena) ActiveLines() []*domain.LineItemVersion {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*domain.LineItemVersion, 0, len(a.versions))
	for _, chain := range a.versions {
		copied := *chain[len(chain)-1]
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SAPID < out[j].SAPID })
	return out
}
