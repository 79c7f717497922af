// Package forecast derives the per-month planned/forecast/realized schedule
// for a project. Schedules are recomputed on every request from the project,
// its transactions and any forecast overrides; only overrides are persisted,
// never the derived rows.
package forecast

import (
	"time"

	"github.com/avolkov/pmo-budget/internal/deviation"
	"github.com/avolkov/pmo-budget/internal/domain"
)

// MonthKeyLayout formats the year-month keys used throughout the schedule,
// e.g. "2025-03".
const MonthKeyLayout = "2006-01"

// Status describes where a schedule month sits relative to now. Only current
// and future months accept forecast edits; executed months are read-only
// (enforced at the gate, not here).
type Status string

const (
	StatusExecuted Status = "executed"
	StatusCurrent  Status = "current"
	StatusFuture   Status = "future"
)

// Entry is one derived schedule row.
type Entry struct {
	MonthKey    string
	Planned     float64
	Forecast    float64
	Realized    float64
	Status      Status
	Tier        deviation.Tier
	DeviationPc float64
}

// fallbackMonths pads the schedule window when a project has no start date
// or no deadline: six months on either side of now.
const fallbackMonths = 6

// BuildSchedule derives the monthly schedule for a project. The window runs
// from the project's start month to its deadline month inclusive, padded
// around now when either bound is missing. Planned is an even split of the
// budget over the window; realized sums the transactions booked in each
// month; forecast takes the override for the month if present, else planned.
//
// Classification differs by status: executed months compare planned against
// realized, current and future months compare planned against forecast. The
// two comparisons answer different questions and must not be swapped.
func BuildSchedule(project *domain.Project, transactions []*domain.Transaction, overrides map[string]float64, now time.Time) []Entry {
	start := monthOf(now.AddDate(0, -fallbackMonths, 0))
	if project.StartDate != nil {
		start = monthOf(*project.StartDate)
	}
	end := monthOf(now.AddDate(0, fallbackMonths, 0))
	if project.Deadline != nil {
		end = monthOf(*project.Deadline)
	}
	if end.Before(start) {
		end = start
	}

	months := monthsBetween(start, end)
	planned := project.Budget / float64(len(months))
	realized := realizedByMonth(transactions)
	currentMonth := monthOf(now)

	entries := make([]Entry, 0, len(months))
	for _, m := range months {
		key := m.Format(MonthKeyLayout)

		entry := Entry{
			MonthKey: key,
			Planned:  planned,
			Realized: realized[key],
			Status:   statusOf(m, currentMonth),
		}

		entry.Forecast = planned
		if override, ok := overrides[key]; ok {
			entry.Forecast = override
		}

		actual := entry.Forecast
		if entry.Status == StatusExecuted {
			actual = entry.Realized
		}
		result := deviation.Classify(entry.Planned, actual)
		entry.Tier = result.Tier
		entry.DeviationPc = result.Percent

		entries = append(entries, entry)
	}
	return entries
}

func statusOf(month, currentMonth time.Time) Status {
	switch {
	case month.Before(currentMonth):
		return StatusExecuted
	case month.Equal(currentMonth):
		return StatusCurrent
	default:
		return StatusFuture
	}
}

func realizedByMonth(transactions []*domain.Transaction) map[string]float64 {
	sums := make(map[string]float64, len(transactions))
	for _, tx := range transactions {
		key := tx.Date.Format(MonthKeyLayout)
		sums[key] += tx.Amount
	}
	return sums
}

func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthsBetween(start, end time.Time) []time.Time {
	var months []time.Time
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}
