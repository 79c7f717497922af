// Package report drafts deviation commentary for a project's monthly
// schedule with Gemini and archives the finished text. Generation runs in
// the background worker; the core computations never wait on it.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/avolkov/pmo-budget/internal/currency"
	"github.com/avolkov/pmo-budget/internal/forecast"
)

const (
	// DefaultModelName is the default Gemini model used for drafting.
	DefaultModelName = "gemini-2.5-flash"
)

// Commentary is the parsed model response.
type Commentary struct {
	Headline   string   `json:"headline"`
	Body       string   `json:"body"`
	WatchItems []string `json:"watch_items"`
}

// Generator drafts commentary from a schedule and summary.
type Generator struct {
	model string
}

// NewGenerator creates a generator. An empty model name selects the default.
func NewGenerator(model string) *Generator {
	if model == "" {
		model = DefaultModelName
	}
	return &Generator{model: model}
}

// Generate sends the schedule to the model and parses the strict-JSON
// response into a Commentary.
func (g *Generator) Generate(ctx context.Context, summary forecast.Summary, entries []forecast.Entry, basisKey string, year int) (*Commentary, error) {
	prompt := buildReportPrompt(summary, entries, basisKey, year)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("Generate: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Generate: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("Generate: empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var commentary Commentary
	if err := json.Unmarshal([]byte(clean), &commentary); err != nil {
		return nil, fmt.Errorf("Generate: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}

	return &commentary, nil
}

// buildReportPrompt renders the schedule and summary into the drafting
// instructions. Output contract is strict JSON so the response survives
// machine parsing.
func buildReportPrompt(summary forecast.Summary, entries []forecast.Entry, basisKey string, year int) string {
	var b strings.Builder

	b.WriteString("You are a financial controller drafting a monthly budget deviation report.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Summarize the budget situation below in 3-5 sentences.\n")
	b.WriteString("- Call out every month in the 'critical' tier and explain its deviation.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n\n")
	b.WriteString("Output object fields:\n")
	b.WriteString("- \"headline\": string, one line\n")
	b.WriteString("- \"body\": string, the report text\n")
	b.WriteString("- \"watch_items\": array of strings, one per month needing attention\n\n")

	label := currency.Label(basisKey, year)
	fmt.Fprintf(&b, "All figures in %s.\n\n", label)

	fmt.Fprintf(&b, "Project summary: budget %.2f, committed %.2f (%.1f%%), realized %.2f (%.1f%%), change vs initial baseline %.1f%%, overall tier %s.\n\n",
		currency.Convert(summary.Budget, basisKey, year),
		currency.Convert(summary.Committed, basisKey, year),
		summary.CommittedPercent,
		currency.Convert(summary.Realized, basisKey, year),
		summary.RealizedPercent,
		summary.VsInitialPercent,
		summary.Tier,
	)

	b.WriteString("Monthly schedule (month, planned, forecast, realized, status, tier, deviation %):\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s, %.2f, %.2f, %.2f, %s, %s, %.1f\n",
			e.MonthKey,
			currency.Convert(e.Planned, basisKey, year),
			currency.Convert(e.Forecast, basisKey, year),
			currency.Convert(e.Realized, basisKey, year),
			e.Status, e.Tier, e.DeviationPc,
		)
	}

	b.WriteString("\nReturn ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Do NOT use ```json or any Markdown.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")

	return b.String()
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the output contract.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost JSON object if junk remains around it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

// RenderText flattens a commentary into the archived plain-text form.
func RenderText(projectID string, c *Commentary, generatedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", c.Headline, generatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Project: %s\n\n", projectID)
	b.WriteString(c.Body)
	if len(c.WatchItems) > 0 {
		b.WriteString("\n\nWatch items:\n")
		for _, item := range c.WatchItems {
			b.WriteString("- " + item + "\n")
		}
	}
	return b.String()
}
