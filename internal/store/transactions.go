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

// InsertTransactions streams a batch of transactions. Transactions are
// append-only; there is no update path.
func (c *Client) InsertTransactions(ctx context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, &TransactionRow{
			TransactionID:   tx.ID,
			ProjectID:       tx.ProjectID,
			Amount:          ratFromFloat(tx.Amount),
			Category:        tx.Category,
			TransactionType: string(tx.Type),
			TransactionDate: civil.DateOf(tx.Date),
			CreatedTS:       time.Now(),
		})
	}

	if err := c.table(transactionsTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// QueryTransactions returns a project's transactions within the date range,
// ordered by booking date.
func (c *Client) QueryTransactions(ctx context.Context, projectID string, startDate, endDate time.Time) ([]*domain.Transaction, error) {
	q := c.bq.Query(fmt.Sprintf(`
		SELECT
			transaction_id, project_id, amount, category,
			transaction_type, transaction_date, created_ts
		FROM %s.%s
		WHERE project_id = @project_id
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY transaction_date, created_ts
	`, c.datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "project_id", Value: projectID},
		{Name: "start_date", Value: startDate.Format(dateFormat)},
		{Name: "end_date", Value: endDate.Format(dateFormat)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactions: query read: %w", err)
	}

	var txs []*domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactions: iter next: %w", err)
		}
		txs = append(txs, row.toDomain())
	}
	return txs, nil
}
