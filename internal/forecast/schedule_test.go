package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/avolkov/pmo-budget/internal/deviation"
	"github.com/avolkov/pmo-budget/internal/domain"
)

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestBuildScheduleWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     *time.Time
		deadline  *time.Time
		wantFirst string
		wantLast  string
		wantLen   int
	}{
		{
			name:      "project dates bound the window",
			start:     datePtr(2025, 2, 10),
			deadline:  datePtr(2025, 11, 20),
			wantFirst: "2025-02",
			wantLast:  "2025-11",
			wantLen:   10,
		},
		{
			name:      "missing dates pad around now",
			wantFirst: "2024-12",
			wantLast:  "2025-12",
			wantLen:   13,
		},
		{
			name:      "deadline before start collapses to one month",
			start:     datePtr(2025, 6, 1),
			deadline:  datePtr(2025, 3, 1),
			wantFirst: "2025-06",
			wantLast:  "2025-06",
			wantLen:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := &domain.Project{Budget: 120000, StartDate: tt.start, Deadline: tt.deadline}
			entries := BuildSchedule(project, nil, nil, now)

			if len(entries) != tt.wantLen {
				t.Fatalf("entries = %d, want %d", len(entries), tt.wantLen)
			}
			if entries[0].MonthKey != tt.wantFirst {
				t.Errorf("first month = %s, want %s", entries[0].MonthKey, tt.wantFirst)
			}
			if entries[len(entries)-1].MonthKey != tt.wantLast {
				t.Errorf("last month = %s, want %s", entries[len(entries)-1].MonthKey, tt.wantLast)
			}
		})
	}
}

func TestBuildSchedulePlannedIsEvenSplit(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	project := &domain.Project{
		Budget:    120000,
		StartDate: datePtr(2025, 1, 1),
		Deadline:  datePtr(2025, 12, 31),
	}

	entries := BuildSchedule(project, nil, nil, now)
	if len(entries) != 12 {
		t.Fatalf("entries = %d, want 12", len(entries))
	}
	for _, e := range entries {
		if math.Abs(e.Planned-10000) > 1e-9 {
			t.Errorf("%s planned = %v, want 10000", e.MonthKey, e.Planned)
		}
	}
}

func TestBuildScheduleStatuses(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	project := &domain.Project{
		Budget:    120000,
		StartDate: datePtr(2025, 5, 1),
		Deadline:  datePtr(2025, 7, 31),
	}

	entries := BuildSchedule(project, nil, nil, now)
	want := []Status{StatusExecuted, StatusCurrent, StatusFuture}
	for i, e := range entries {
		if e.Status != want[i] {
			t.Errorf("%s status = %s, want %s", e.MonthKey, e.Status, want[i])
		}
	}
}

func TestBuildScheduleRealizedSumsTransactionsByMonth(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	project := &domain.Project{
		Budget:    300000,
		StartDate: datePtr(2025, 4, 1),
		Deadline:  datePtr(2025, 6, 30),
	}
	txs := []*domain.Transaction{
		{Amount: 40000, Date: time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)},
		{Amount: 25000, Date: time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)},
		{Amount: -5000, Date: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)}, // credit
	}

	entries := BuildSchedule(project, txs, nil, now)

	byKey := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byKey[e.MonthKey] = e
	}
	if got := byKey["2025-04"].Realized; got != 65000 {
		t.Errorf("april realized = %v, want 65000", got)
	}
	if got := byKey["2025-05"].Realized; got != -5000 {
		t.Errorf("may realized = %v, want -5000", got)
	}
	if got := byKey["2025-06"].Realized; got != 0 {
		t.Errorf("june realized = %v, want 0", got)
	}
}

func TestBuildScheduleOverridesAndClassification(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	project := &domain.Project{
		Budget:    300000, // 100000 planned per month
		StartDate: datePtr(2025, 5, 1),
		Deadline:  datePtr(2025, 7, 31),
	}
	txs := []*domain.Transaction{
		// Executed May: realized 125000 vs planned 100000 -> +25% critical.
		{Amount: 125000, Date: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)},
	}
	overrides := map[string]float64{
		"2025-07": 115000, // future month: forecast vs planned -> +15% watch
	}

	entries := BuildSchedule(project, txs, overrides, now)
	byKey := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byKey[e.MonthKey] = e
	}

	may := byKey["2025-05"]
	if may.Tier != deviation.TierCritical {
		t.Errorf("executed month tier = %s, want critical (classified on realized)", may.Tier)
	}
	if math.Abs(may.DeviationPc-25) > 1e-9 {
		t.Errorf("executed month deviation = %v, want 25", may.DeviationPc)
	}

	jun := byKey["2025-06"]
	if jun.Forecast != jun.Planned {
		t.Errorf("unoverridden forecast = %v, want planned %v", jun.Forecast, jun.Planned)
	}
	if jun.Tier != deviation.TierOK {
		t.Errorf("current month tier = %s, want ok (forecast equals plan)", jun.Tier)
	}

	jul := byKey["2025-07"]
	if jul.Forecast != 115000 {
		t.Errorf("overridden forecast = %v, want 115000", jul.Forecast)
	}
	if jul.Tier != deviation.TierWatch {
		t.Errorf("future month tier = %s, want watch (classified on forecast)", jul.Tier)
	}
	// Realized in a future month never drives the tier.
	if jul.Realized != 0 {
		t.Errorf("future month realized = %v, want 0", jul.Realized)
	}
}

func TestBuildSummary(t *testing.T) {
	project := &domain.Project{
		ID:        "p1",
		Budget:    650000,
		Committed: 520000,
		Realized:  780000,
	}

	s := BuildSummary(project, 500000)

	if math.Abs(s.CommittedPercent-80) > 1e-9 {
		t.Errorf("CommittedPercent = %v, want 80", s.CommittedPercent)
	}
	if math.Abs(s.RealizedPercent-120) > 1e-9 {
		t.Errorf("RealizedPercent = %v, want 120", s.RealizedPercent)
	}
	if math.Abs(s.VsInitialPercent-30) > 1e-9 {
		t.Errorf("VsInitialPercent = %v, want 30", s.VsInitialPercent)
	}
	if s.Tier != deviation.TierWatch {
		t.Errorf("Tier = %s, want watch (realized is exactly 20%% over budget)", s.Tier)
	}
}

func TestBuildSummaryZeroGuards(t *testing.T) {
	s := BuildSummary(&domain.Project{ID: "p1", Budget: 0, Realized: 1000}, 0)
	if s.CommittedPercent != 0 || s.RealizedPercent != 0 || s.VsInitialPercent != 0 {
		t.Errorf("zero-budget summary percentages = %v/%v/%v, want all 0",
			s.CommittedPercent, s.RealizedPercent, s.VsInitialPercent)
	}
}
