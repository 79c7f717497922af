package gate

import (
	"errors"
	"testing"

	"github.com/avolkov/pmo-budget/internal/domain"
)

func TestCanPersist(t *testing.T) {
	tests := []struct {
		name          string
		oldValue      float64
		newValue      float64
		justification string
		wantAllowed   bool
	}{
		{
			name:        "small change needs no justification",
			oldValue:    100000,
			newValue:    105000,
			wantAllowed: true,
		},
		{
			name:        "exactly 15 percent passes without justification",
			oldValue:    100000,
			newValue:    115000,
			wantAllowed: true,
		},
		{
			name:        "just above 15 percent blocked without justification",
			oldValue:    100000,
			newValue:    115001,
			wantAllowed: false,
		},
		{
			name:          "just above 15 percent passes with justification",
			oldValue:      100000,
			newValue:      115001,
			justification: "Scope extension approved by steering committee",
			wantAllowed:   true,
		},
		{
			name:        "material decrease blocked without justification",
			oldValue:    100000,
			newValue:    80000,
			wantAllowed: false,
		},
		{
			name:          "blank justification does not count",
			oldValue:      100000,
			newValue:      130000,
			justification: "   ",
			wantAllowed:   false,
		},
		{
			name:        "zero old value always requires justification",
			oldValue:    0,
			newValue:    1,
			wantAllowed: false,
		},
		{
			name:          "zero old value passes with justification",
			oldValue:      0,
			newValue:      50000,
			justification: "Initial allocation",
			wantAllowed:   true,
		},
		{
			name:        "negative base uses magnitude",
			oldValue:    -100000,
			newValue:    -110000,
			wantAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanPersist(tt.oldValue, tt.newValue, tt.justification)
			if got.Allowed != tt.wantAllowed {
				t.Errorf("CanPersist(%v, %v, %q).Allowed = %v, want %v",
					tt.oldValue, tt.newValue, tt.justification, got.Allowed, tt.wantAllowed)
			}
			if !got.Allowed && got.Reason == "" {
				t.Error("blocked verdict must carry a reason")
			}
		})
	}
}

func TestCheckLineItem(t *testing.T) {
	manual := &domain.LineItemVersion{SAPID: "LAT-4711", Provenance: domain.ProvenanceManual}
	integrated := &domain.LineItemVersion{SAPID: "LAT-4712", Provenance: domain.ProvenanceIntegrated}

	t.Run("integrated row is locked regardless of justification", func(t *testing.T) {
		err := CheckLineItem(integrated, 100, 101, "upstream is wrong")
		if !errors.Is(err, ErrRowLocked) {
			t.Errorf("CheckLineItem = %v, want ErrRowLocked", err)
		}
	})

	t.Run("manual row with material change needs justification", func(t *testing.T) {
		err := CheckLineItem(manual, 100000, 130000, "")
		if !errors.Is(err, ErrJustificationRequired) {
			t.Errorf("CheckLineItem = %v, want ErrJustificationRequired", err)
		}
	})

	t.Run("manual row with immaterial change passes", func(t *testing.T) {
		if err := CheckLineItem(manual, 100000, 101000, ""); err != nil {
			t.Errorf("CheckLineItem = %v, want nil", err)
		}
	})
}
