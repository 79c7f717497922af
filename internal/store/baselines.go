package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/avolkov/pmo-budget/internal/domain"
)

// AppendBaseline streams a new baseline snapshot. Baseline rows are never
// updated or deleted; the current pointer lives on the project row.
func (c *Client) AppendBaseline(ctx context.Context, b *domain.Baseline) error {
	row := &BaselineRow{
		BaselineID:  b.ID,
		ProjectID:   b.ProjectID,
		Version:     b.Version,
		Budget:      ratFromFloat(b.Budget),
		Description: b.Description,
		Author:      b.Author,
		CreatedTS:   b.CreatedAt,
	}

	if err := c.table(baselinesTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("AppendBaseline: inserting row: %w", err)
	}
	return nil
}

// ListBaselines returns a project's snapshots oldest first.
func (c *Client) ListBaselines(ctx context.Context, projectID string) ([]*domain.Baseline, error) {
	q := c.bq.Query(fmt.Sprintf(`
		SELECT
			baseline_id, project_id, version, budget,
			description, author, created_ts
		FROM %s.%s
		WHERE project_id = @project_id
		ORDER BY created_ts
	`, c.datasetID, baselinesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "project_id", Value: projectID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBaselines: query read: %w", err)
	}

	var baselines []*domain.Baseline
	for {
		var row BaselineRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBaselines: iter next: %w", err)
		}
		baselines = append(baselines, row.toDomain())
	}
	return baselines, nil
}
