package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/avolkov/pmo-budget/internal/domain"
)

// InsertProject validates and streams a new project row.
func (c *Client) InsertProject(ctx context.Context, p *domain.Project) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("InsertProject: %w", err)
	}

	row := &ProjectRow{
		ProjectID:    p.ID,
		Name:         p.Name,
		SAPID:        p.SAPID,
		HomeCurrency: p.HomeCurrency,
		Budget:       ratFromFloat(p.Budget),
		Committed:    ratFromFloat(p.Committed),
		Realized:     ratFromFloat(p.Realized),
		CreatedTS:    time.Now(),
	}
	if p.StartDate != nil {
		row.StartDate = bigquery.NullDate{Date: civil.DateOf(*p.StartDate), Valid: true}
	}
	if p.Deadline != nil {
		row.Deadline = bigquery.NullDate{Date: civil.DateOf(*p.Deadline), Valid: true}
	}

	if err := c.table(projectsTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("InsertProject: inserting row: %w", err)
	}
	return nil
}

// GetProject fetches a single project by id.
func (c *Client) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	q := c.bq.Query(fmt.Sprintf(`
		SELECT
			project_id, name, sap_id, home_currency,
			budget, committed, realized,
			start_date, deadline, current_baseline_id, created_ts
		FROM %s.%s
		WHERE project_id = @project_id
	`, c.datasetID, projectsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "project_id", Value: projectID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetProject: query read: %w", err)
	}

	var row ProjectRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("GetProject: project not found: %s", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("GetProject: iter next: %w", err)
	}

	return row.toDomain(), nil
}

// ListProjects returns all projects ordered by SAP id.
func (c *Client) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	q := c.bq.Query(fmt.Sprintf(`
		SELECT
			project_id, name, sap_id, home_currency,
			budget, committed, realized,
			start_date, deadline, current_baseline_id, created_ts
		FROM %s.%s
		ORDER BY sap_id
	`, c.datasetID, projectsTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListProjects: query read: %w", err)
	}

	var projects []*domain.Project
	for {
		var row ProjectRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListProjects: iter next: %w", err)
		}
		projects = append(projects, row.toDomain())
	}
	return projects, nil
}

// SetCurrentBaseline records a baseline pointer move on the project row and
// aligns the effective budget with the designated snapshot.
func (c *Client) SetCurrentBaseline(ctx context.Context, projectID, baselineID string) error {
	query := fmt.Sprintf(`
		UPDATE %s.%s p
		SET current_baseline_id = @baseline_id,
		    budget = (SELECT b.budget FROM %s.%s b WHERE b.baseline_id = @baseline_id)
		WHERE p.project_id = @project_id
	`, c.datasetID, projectsTable, c.datasetID, baselinesTable)

	params := []bigquery.QueryParameter{
		{Name: "baseline_id", Value: baselineID},
		{Name: "project_id", Value: projectID},
	}

	if err := c.runDML(ctx, query, params); err != nil {
		return fmt.Errorf("SetCurrentBaseline: %w", err)
	}
	return nil
}

// CurrentBaselineID reads the baseline pointer for a project, "" when unset.
func (c *Client) CurrentBaselineID(ctx context.Context, projectID string) (string, error) {
	q := c.bq.Query(fmt.Sprintf(`
		SELECT current_baseline_id
		FROM %s.%s
		WHERE project_id = @project_id
	`, c.datasetID, projectsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "project_id", Value: projectID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("CurrentBaselineID: query read: %w", err)
	}

	var row struct {
		CurrentBaselineID bigquery.NullString `bigquery:"current_baseline_id"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return "", fmt.Errorf("CurrentBaselineID: project not found: %s", projectID)
	}
	if err != nil {
		return "", fmt.Errorf("CurrentBaselineID: iter next: %w", err)
	}

	if !row.CurrentBaselineID.Valid {
		return "", nil
	}
	return row.CurrentBaselineID.StringVal, nil
}
