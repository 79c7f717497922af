package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/avolkov/pmo-budget/internal/forecast"
)

func TestCleanModelJSON(t *testing.T) {
	want := `{"headline":"On track","body":"All good.","watch_items":[]}`

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "already clean",
			raw:  want,
		},
		{
			name: "json fence",
			raw:  "```json\n" + want + "\n```",
		},
		{
			name: "bare fence",
			raw:  "```\n" + want + "\n```",
		},
		{
			name: "leading prose",
			raw:  "Here is the report:\n" + want,
		},
		{
			name: "surrounding whitespace",
			raw:  "\n\n  " + want + "  \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanModelJSON(tt.raw)
			if got != want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, want)
			}
			var c Commentary
			if err := json.Unmarshal([]byte(got), &c); err != nil {
				t.Errorf("cleaned output does not parse: %v", err)
			}
		})
	}
}

func TestBuildReportPromptConvertsFigures(t *testing.T) {
	summary := forecast.Summary{
		ProjectID: "p1",
		Budget:    100000,
		Tier:      "ok",
	}
	entries := []forecast.Entry{
		{MonthKey: "2025-06", Planned: 100000, Forecast: 100000, Status: forecast.StatusCurrent, Tier: "ok"},
	}

	prompt := buildReportPrompt(summary, entries, "approval", 2025)

	if !strings.Contains(prompt, "USD (approval)") {
		t.Error("prompt must name the selected rate basis")
	}
	// 100000 * 1.1030 for the 2025 approval rate.
	if !strings.Contains(prompt, "110300.00") {
		t.Error("prompt figures must be converted into the selected basis")
	}
	if !strings.Contains(prompt, "2025-06") {
		t.Error("prompt must include the schedule rows")
	}
	if !strings.Contains(prompt, "STRICT JSON") {
		t.Error("prompt must state the strict-JSON output contract")
	}
}

func TestRenderText(t *testing.T) {
	c := &Commentary{
		Headline:   "Budget overrun in Q2",
		Body:       "May exceeded plan by 25%.",
		WatchItems: []string{"2025-05: realized 125000 vs planned 100000"},
	}
	generatedAt := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	text := RenderText("p1", c, generatedAt)

	for _, want := range []string{
		"Budget overrun in Q2",
		"2025-06-15T10:00:00Z",
		"Project: p1",
		"May exceeded plan by 25%.",
		"Watch items:",
		"- 2025-05: realized 125000 vs planned 100000",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered text missing %q:\n%s", want, text)
		}
	}
}

func TestRenderTextWithoutWatchItems(t *testing.T) {
	text := RenderText("p1", &Commentary{Headline: "h", Body: "b"}, time.Now())
	if strings.Contains(text, "Watch items") {
		t.Error("empty watch list must not render a watch section")
	}
}
