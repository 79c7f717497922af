package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/avolkov/pmo-budget/internal/domain"
)

var testTime = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func seedLine(t *testing.T, a *Arena, sapID string, months [domain.MonthsPerYear]float64) *domain.LineItemVersion {
	t.Helper()
	seeded, err := a.Seed(&domain.LineItemVersion{
		SAPID:      sapID,
		Category:   "External Services",
		Provenance: domain.ProvenanceManual,
		Months:     months,
		UpdatedAt:  testTime,
	})
	if err != nil {
		t.Fatalf("Seed(%s) failed: %v", sapID, err)
	}
	return seeded
}

func TestArenaSeed(t *testing.T) {
	a := NewArena()
	months := [domain.MonthsPerYear]float64{50000, 60000, 70000, 80000, 90000, 100000, 90000, 80000, 70000, 60000, 50000, 70000}
	seeded := seedLine(t, a, "LAT-4711", months)

	if seeded.Version != 1 {
		t.Errorf("seeded version = %d, want 1", seeded.Version)
	}
	if !seeded.IsActive {
		t.Error("seeded row must be active")
	}
	if seeded.Total != 870000 {
		t.Errorf("seeded total = %v, want 870000", seeded.Total)
	}
	if seeded.ID == "" {
		t.Error("seeded row must get a surrogate id")
	}

	if _, err := a.Seed(&domain.LineItemVersion{SAPID: "LAT-4711"}); err == nil {
		t.Error("seeding an existing line must fail")
	}
}

func TestArenaEditMonth(t *testing.T) {
	a := NewArena()
	months := [domain.MonthsPerYear]float64{50000, 60000, 70000, 80000, 90000, 100000, 90000, 80000, 70000, 60000, 50000, 70000}
	seedLine(t, a, "LAT-4711", months)

	result, err := a.Edit("LAT-4711", "jan", 60000, 1, testTime)
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	if result.Created.Version != 2 {
		t.Errorf("successor version = %d, want 2", result.Created.Version)
	}
	if result.Created.Months[0] != 60000 {
		t.Errorf("successor jan = %v, want 60000", result.Created.Months[0])
	}
	if result.Created.Total != 880000 {
		t.Errorf("successor total = %v, want 880000", result.Created.Total)
	}
	if result.Deactivated.IsActive {
		t.Error("prior version must be deactivated")
	}
	if result.Deactivated.Version != 1 {
		t.Errorf("deactivated version = %d, want 1", result.Deactivated.Version)
	}
	if result.Created.ID == result.Deactivated.ID {
		t.Error("successor must get a fresh surrogate id")
	}

	active := a.Active("LAT-4711")
	if active == nil || active.Version != 2 {
		t.Fatalf("active after edit = %+v, want version 2", active)
	}
}

func TestArenaEditTotalRedistributes(t *testing.T) {
	a := NewArena()
	var months [domain.MonthsPerYear]float64
	months[0], months[1], months[2] = 100, 100, 200 // total 400
	seedLine(t, a, "LAT-4711", months)

	result, err := a.Edit("LAT-4711", FieldTotal, 800, 1, testTime)
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	want := []float64{200, 200, 400}
	for i, w := range want {
		if result.Created.Months[i] != w {
			t.Errorf("month %d = %v, want %v", i, result.Created.Months[i], w)
		}
	}
	for i := 3; i < domain.MonthsPerYear; i++ {
		if result.Created.Months[i] != 0 {
			t.Errorf("month %d = %v, want 0", i, result.Created.Months[i])
		}
	}
	if result.Created.Total != 800 {
		t.Errorf("total = %v, want 800", result.Created.Total)
	}
}

func TestArenaEditTotalOnZeroPriorSplitsEvenly(t *testing.T) {
	a := NewArena()
	seedLine(t, a, "LAT-4711", [domain.MonthsPerYear]float64{})

	result, err := a.Edit("LAT-4711", FieldTotal, 100, 1, testTime)
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	for i := 0; i < domain.MonthsPerYear-1; i++ {
		if result.Created.Months[i] != 8.33 {
			t.Errorf("month %d = %v, want 8.33", i, result.Created.Months[i])
		}
	}
	// 11 * 8.33 = 91.63; December absorbs the remainder.
	if dec := result.Created.Months[domain.MonthsPerYear-1]; dec != 8.37 {
		t.Errorf("december = %v, want 8.37", dec)
	}
	if result.Created.Total != 100 {
		t.Errorf("total = %v, want 100", result.Created.Total)
	}
}

func TestArenaEditStaleVersion(t *testing.T) {
	a := NewArena()
	months := [domain.MonthsPerYear]float64{1000}
	seedLine(t, a, "LAT-4711", months)

	if _, err := a.Edit("LAT-4711", "jan", 2000, 1, testTime); err != nil {
		t.Fatalf("first edit failed: %v", err)
	}

	// Second writer still holds version 1.
	_, err := a.Edit("LAT-4711", "jan", 3000, 1, testTime)
	if !errors.Is(err, ErrStaleVersion) {
		t.Errorf("stale edit error = %v, want ErrStaleVersion", err)
	}

	// The losing writer did not fork the chain.
	if history := a.History("LAT-4711"); len(history) != 2 {
		t.Errorf("history length after stale edit = %d, want 2", len(history))
	}
}

func TestArenaEditUnknownField(t *testing.T) {
	a := NewArena()
	seedLine(t, a, "LAT-4711", [domain.MonthsPerYear]float64{})

	if _, err := a.Edit("LAT-4711", "q1", 10, 1, testTime); !errors.Is(err, ErrUnknownField) {
		t.Errorf("unknown field error = %v, want ErrUnknownField", err)
	}
	if _, err := a.Edit("LAT-9999", "jan", 10, 1, testTime); err == nil {
		t.Error("editing an unknown line must fail")
	}
}

func TestArenaAppendOnly(t *testing.T) {
	a := NewArena()
	seedLine(t, a, "LAT-4711", [domain.MonthsPerYear]float64{1000})

	edits := 5
	for i := 0; i < edits; i++ {
		if _, err := a.Edit("LAT-4711", "jan", float64(2000+i), 1+i, testTime); err != nil {
			t.Fatalf("edit %d failed: %v", i, err)
		}
	}

	history := a.History("LAT-4711")
	if len(history) != edits+1 {
		t.Fatalf("history length = %d, want %d", len(history), edits+1)
	}

	// Newest first, versions strictly descending, exactly one active row.
	activeCount := 0
	for i, v := range history {
		if wantVersion := edits + 1 - i; v.Version != wantVersion {
			t.Errorf("history[%d].Version = %d, want %d", i, v.Version, wantVersion)
		}
		if v.IsActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("active versions = %d, want exactly 1", activeCount)
	}
	if !history[0].IsActive {
		t.Error("newest version must be the active one")
	}
}

func TestArenaLoad(t *testing.T) {
	a := NewArena()
	persisted := []*domain.LineItemVersion{
		{ID: "a2", SAPID: "LAT-4711", Version: 2, IsActive: true, Total: 2000, UpdatedAt: testTime},
		{ID: "a1", SAPID: "LAT-4711", Version: 1, IsActive: false, Total: 1000, UpdatedAt: testTime},
		{ID: "b1", SAPID: "LAT-4712", Version: 1, IsActive: true, Total: 500, UpdatedAt: testTime},
	}
	if err := a.Load(persisted); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	active := a.Active("LAT-4711")
	if active == nil || active.Version != 2 {
		t.Fatalf("active after load = %+v, want version 2", active)
	}

	lines := a.ActiveLines()
	if len(lines) != 2 {
		t.Fatalf("ActiveLines length = %d, want 2", len(lines))
	}
	if lines[0].SAPID != "LAT-4711" || lines[1].SAPID != "LAT-4712" {
		t.Errorf("ActiveLines order = %s, %s; want sorted by SAP id", lines[0].SAPID, lines[1].SAPID)
	}

	if err := a.Load(persisted); err == nil {
		t.Error("loading a non-empty arena must fail")
	}
}

func TestHistoryCopiesAreDetached(t *testing.T) {
	a := NewArena()
	seedLine(t, a, "LAT-4711", [domain.MonthsPerYear]float64{1000})

	a.History("LAT-4711")[0].Total = -1
	a.Active("LAT-4711").Months[0] = -1

	if got := a.Active("LAT-4711"); got.Total != 1000 || got.Months[0] != 1000 {
		t.Errorf("arena state mutated through returned copies: %+v", got)
	}
}

func TestFieldValue(t *testing.T) {
	row := &domain.LineItemVersion{
		Months: [domain.MonthsPerYear]float64{10, 20, 30},
		Total:  60,
	}

	if got, err := FieldValue(row, "feb"); err != nil || got != 20 {
		t.Errorf("FieldValue(feb) = %v, %v; want 20, nil", got, err)
	}
	if got, err := FieldValue(row, FieldTotal); err != nil || got != 60 {
		t.Errorf("FieldValue(total) = %v, %v; want 60, nil", got, err)
	}
	if _, err := FieldValue(row, "h1"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("FieldValue(h1) error = %v, want ErrUnknownField", err)
	}
}
