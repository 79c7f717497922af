// Package gate holds the preconditions every budget edit must pass before it
// is persisted, whether the change lands as a baseline, a ledger version or a
// forecast override. The gate only inspects the change itself; it knows
// nothing about how the caller stores it.
package gate

import (
	"errors"
	"math"
	"strings"

	"github.com/avolkov/pmo-budget/internal/domain"
)

// MaterialityThresholdPercent is the change magnitude above which a
// justification is mandatory. Not the same as the 20/10 display tiers in the
// deviation package; conflating the two breaks approvals at the boundary.
const MaterialityThresholdPercent = 15.0

// ErrJustificationRequired is returned when a material change arrives without
// a justification. Recoverable: the caller supplies one and retries.
var ErrJustificationRequired = errors.New("justification required for material change")

// ErrRowLocked is returned for rows integrated from an upstream system.
// Unconditional - no justification unlocks an integrated row.
var ErrRowLocked = errors.New("row is integrated from an external source and cannot be edited")

// Verdict is the outcome of a gate check.
type Verdict struct {
	Allowed bool
	Reason  string
}

// CanPersist decides whether a value change may be persisted. Changes of more
// than MaterialityThresholdPercent require a non-blank justification; exactly
// at the threshold passes without one. A zero old value always requires
// justification, since the change percentage is undefined there.
func CanPersist(oldValue, newValue float64, justification string) Verdict {
	if !requiresJustification(oldValue, newValue) {
		return Verdict{Allowed: true}
	}
	if strings.TrimSpace(justification) == "" {
		return Verdict{Allowed: false, Reason: ErrJustificationRequired.Error()}
	}
	return Verdict{Allowed: true}
}

// CheckLineItem applies the provenance lock on top of the materiality check.
// Integrated rows are rejected outright regardless of justification.
func CheckLineItem(row *domain.LineItemVersion, oldValue, newValue float64, justification string) error {
	if row.Provenance == domain.ProvenanceIntegrated {
		return ErrRowLocked
	}
	if v := CanPersist(oldValue, newValue, justification); !v.Allowed {
		return ErrJustificationRequired
	}
	return nil
}

func requiresJustification(oldValue, newValue float64) bool {
	if oldValue == 0 {
		// Change percentage is undefined on a zero base; always ask.
		return true
	}
	changePercent := math.Abs(newValue-oldValue) / math.Abs(oldValue) * 100
	return changePercent > MaterialityThresholdPercent
}
