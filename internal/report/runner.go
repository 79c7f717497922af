package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolkov/pmo-budget/internal/domain"
	"github.com/avolkov/pmo-budget/internal/forecast"
	"github.com/avolkov/pmo-budget/internal/jobs"
)

// ProjectSource supplies the project a report covers.
type ProjectSource interface {
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
}

// TransactionSource supplies the booked actuals for the schedule.
type TransactionSource interface {
	QueryTransactions(ctx context.Context, projectID string, startDate, endDate time.Time) ([]*domain.Transaction, error)
}

// InitialBudgetSource anchors the vs-initial comparison in the summary.
type InitialBudgetSource interface {
	InitialBudget(ctx context.Context, projectID string) (float64, error)
}

// Runner executes report generation jobs: build the schedule, draft the
// commentary, archive the text.
type Runner struct {
	projects  ProjectSource
	txs       TransactionSource
	baselines InitialBudgetSource
	generator *Generator
	bucket    string
	log       zerolog.Logger
}

// NewRunner creates a report runner. bucket may be empty to disable
// archival.
func NewRunner(projects ProjectSource, txs TransactionSource, baselines InitialBudgetSource, generator *Generator, bucket string, log zerolog.Logger) *Runner {
	return &Runner{
		projects:  projects,
		txs:       txs,
		baselines: baselines,
		generator: generator,
		bucket:    bucket,
		log:       log,
	}
}

// Run processes one job. On success the job's ArchiveURI is filled in when
// archival is enabled.
func (r *Runner) Run(ctx context.Context, job *jobs.GenerateReportJob) error {
	project, err := r.projects.GetProject(ctx, job.ProjectID)
	if err != nil {
		return fmt.Errorf("Run: loading project: %w", err)
	}

	now := time.Now()
	start := now.AddDate(0, -6, 0)
	if project.StartDate != nil {
		start = *project.StartDate
	}
	end := now.AddDate(0, 6, 0)
	if project.Deadline != nil {
		end = *project.Deadline
	}

	txs, err := r.txs.QueryTransactions(ctx, job.ProjectID, start, end)
	if err != nil {
		return fmt.Errorf("Run: loading transactions: %w", err)
	}

	initial, err := r.baselines.InitialBudget(ctx, job.ProjectID)
	if err != nil {
		initial = 0 // no baseline yet
	}

	entries := forecast.BuildSchedule(project, txs, nil, now)
	summary := forecast.BuildSummary(project, initial)

	commentary, err := r.generator.Generate(ctx, summary, entries, job.BasisKey, now.Year())
	if err != nil {
		return fmt.Errorf("Run: drafting commentary: %w", err)
	}

	text := RenderText(job.ProjectID, commentary, now)

	uri, err := Archive(ctx, r.bucket, job.ProjectID, text, now)
	if err != nil {
		return fmt.Errorf("Run: archiving report: %w", err)
	}
	job.ArchiveURI = uri

	r.log.Info().
		Str("job_id", job.JobID).
		Str("project_id", job.ProjectID).
		Str("archive_uri", uri).
		Msg("Report generated")

	return nil
}
