package handlers

import (
	"context"
	"time"

	"github.com/avolkov/pmo-budget/internal/domain"
	"github.com/avolkov/pmo-budget/internal/ledger"
)

// ProjectRepository is the slice of the record store the handlers need for
// project reads and writes.
type ProjectRepository interface {
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	InsertProject(ctx context.Context, p *domain.Project) error
}

// TransactionRepository supplies the booked actuals consumed by the forecast
// model.
type TransactionRepository interface {
	QueryTransactions(ctx context.Context, projectID string, startDate, endDate time.Time) ([]*domain.Transaction, error)
}

// EditPersister writes both halves of a ledger edit to the record store.
// A nil persister keeps the ledger in memory only (local runs, tests).
type EditPersister interface {
	PersistEdit(ctx context.Context, result *ledger.EditResult) error
	InsertLineItemVersion(ctx context.Context, v *domain.LineItemVersion) error
}
