// Package store is the thin record-store client. Persistence lives in
// BigQuery; this package only maps domain entities onto the four tables
// (projects, transactions, baselines, line_items) and back. No retries here -
// retry policy belongs to the caller or the underlying client.
package store

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
)

const (
	defaultDatasetID = "pmo"

	projectsTable     = "projects"
	transactionsTable = "transactions"
	baselinesTable    = "baselines"
	lineItemsTable    = "line_items"

	dateFormat = "2006-01-02"
)

// Client bundles a shared BigQuery connection with the dataset holding the
// budget tables.
type Client struct {
	bq        *bigquery.Client
	projectID string
	datasetID string
}

// NewClient creates a record-store client. gcpProject may be empty, in which
// case the GCP_PROJECT environment variable is used.
func NewClient(ctx context.Context, gcpProject string) (*Client, error) {
	if gcpProject == "" {
		gcpProject = os.Getenv("GCP_PROJECT")
	}
	if gcpProject == "" {
		return nil, fmt.Errorf("NewClient: no GCP project configured")
	}

	bq, err := bigquery.NewClient(ctx, gcpProject)
	if err != nil {
		return nil, fmt.Errorf("NewClient: bigquery client: %w", err)
	}

	return &Client{bq: bq, projectID: gcpProject, datasetID: defaultDatasetID}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.bq != nil {
		return c.bq.Close()
	}
	return nil
}

// runDML executes a parameterized DML statement and waits for completion.
func (c *Client) runDML(ctx context.Context, query string, params []bigquery.QueryParameter) error {
	q := c.bq.Query(query)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("runDML: running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("runDML: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("runDML: job error: %w", err)
	}
	return nil
}

func (c *Client) table(name string) *bigquery.Table {
	return c.bq.DatasetInProject(c.projectID, c.datasetID).Table(name)
}
