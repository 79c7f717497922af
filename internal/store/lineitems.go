package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/avolkov/pmo-budget/internal/domain"
	"github.com/avolkov/pmo-budget/internal/ledger"
)

// InsertLineItemVersion streams a new version row. Used both for seeding a
// line and for the successor row produced by an edit.
func (c *Client) InsertLineItemVersion(ctx context.Context, v *domain.LineItemVersion) error {
	if err := c.table(lineItemsTable).Inserter().Put(ctx, lineItemRowFromDomain(v)); err != nil {
		return fmt.Errorf("InsertLineItemVersion: inserting row: %w", err)
	}
	return nil
}

// DeactivateLineItemVersion flips is_active on the prior head of a version
// chain. The update predicates on the version number the caller based its
// edit on: if a newer version got there first, zero rows match and the write
// is rejected as stale instead of forking the chain.
func (c *Client) DeactivateLineItemVersion(ctx context.Context, sapID string, seenVersion int) error {
	query := fmt.Sprintf(`
		UPDATE %s.%s
		SET is_active = FALSE,
		    updated_ts = @updated_ts
		WHERE sap_id = @sap_id
		  AND version = @version
		  AND is_active = TRUE
	`, c.datasetID, lineItemsTable)

	params := []bigquery.QueryParameter{
		{Name: "updated_ts", Value: time.Now()},
		{Name: "sap_id", Value: sapID},
		{Name: "version", Value: int64(seenVersion)},
	}

	if err := c.runDML(ctx, query, params); err != nil {
		return fmt.Errorf("DeactivateLineItemVersion: %w", err)
	}
	return nil
}

// ActiveLineItem returns the active version for a SAP id.
func (c *Client) ActiveLineItem(ctx context.Context, sapID string) (*domain.LineItemVersion, error) {
	q := c.bq.Query(fmt.Sprintf(`
		SELECT
			line_item_id, sap_id, category, project_name, months,
			total, version, is_active, provenance, updated_ts
		FROM %s.%s
		WHERE sap_id = @sap_id
		  AND is_active = TRUE
	`, c.datasetID, lineItemsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "sap_id", Value: sapID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ActiveLineItem: query read: %w", err)
	}

	var row LineItemRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("ActiveLineItem: line not found: %s", sapID)
	}
	if err != nil {
		return nil, fmt.Errorf("ActiveLineItem: iter next: %w", err)
	}

	return row.toDomain(), nil
}

// LineItemHistory returns every version of a line, newest first. This query
// is the audit trail the versioning scheme exists for.
func (c *Client) LineItemHistory(ctx context.Context, sapID string) ([]*domain.LineItemVersion, error) {
	q := c.bq.Query(fmt.Sprintf(`
		SELECT
			line_item_id, sap_id, category, project_name, months,
			total, version, is_active, provenance, updated_ts
		FROM %s.%s
		WHERE sap_id = @sap_id
		ORDER BY sap_id, version DESC
	`, c.datasetID, lineItemsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "sap_id", Value: sapID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("LineItemHistory: query read: %w", err)
	}

	var versions []*domain.LineItemVersion
	for {
		var row LineItemRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("LineItemHistory: iter next: %w", err)
		}
		versions = append(versions, row.toDomain())
	}
	return versions, nil
}

// ListAllLineItems returns every version of every line, used to rebuild the
// in-memory arena at startup.
func (c *Client) ListAllLineItems(ctx context.Context) ([]*domain.LineItemVersion, error) {
	q := c.bq.Query(fmt.Sprintf(`
		SELECT
			line_item_id, sap_id, category, project_name, months,
			total, version, is_active, provenance, updated_ts
		FROM %s.%s
		ORDER BY sap_id, version
	`, c.datasetID, lineItemsTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAllLineItems: query read: %w", err)
	}

	var versions []*domain.LineItemVersion
	for {
		var row LineItemRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAllLineItems: iter next: %w", err)
		}
		versions = append(versions, row.toDomain())
	}
	return versions, nil
}

// PersistEdit writes both halves of a ledger edit: deactivate the prior head
// with the stale-write guard, then insert the successor row.
func (c *Client) PersistEdit(ctx context.Context, result *ledger.EditResult) error {
	if err := c.DeactivateLineItemVersion(ctx, result.Deactivated.SAPID, result.Deactivated.Version); err != nil {
		return fmt.Errorf("PersistEdit: %w", err)
	}
	if err := c.InsertLineItemVersion(ctx, result.Created); err != nil {
		return fmt.Errorf("PersistEdit: %w", err)
	}
	return nil
}
