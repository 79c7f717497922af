// Package baseline maintains the append-only sequence of budget snapshots
// per project. Creating a baseline appends; reverting moves the "current"
// pointer without deleting anything, so a revert can itself be undone by
// reverting forward again.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/pmo-budget/internal/domain"
)

// ErrNotFound is returned when a project has no baselines or a baseline id
// is unknown.
var ErrNotFound = errors.New("baseline not found")

// Repository is the persistence surface the store needs. Implemented by the
// record store client and by the in-memory repository used in tests.
type Repository interface {
	// AppendBaseline persists a new snapshot. Snapshots are insert-only.
	AppendBaseline(ctx context.Context, b *domain.Baseline) error
	// ListBaselines returns all snapshots for a project, oldest first.
	ListBaselines(ctx context.Context, projectID string) ([]*domain.Baseline, error)
	// SetCurrentBaseline records the current-pointer move on the project.
	SetCurrentBaseline(ctx context.Context, projectID, baselineID string) error
	// CurrentBaselineID returns the pointer, or "" if never set.
	CurrentBaselineID(ctx context.Context, projectID string) (string, error)
}

// Store owns baseline lifecycle for all projects.
type Store struct {
	repo Repository
	now  func() time.Time
}

// NewStore creates a baseline store over the given repository.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo, now: time.Now}
}

// Create appends a new baseline snapshot of the project's current budget and
// makes it current. The version label is "v{n}.0" with n = prior count + 1,
// so labels are unique per project by construction.
func (s *Store) Create(ctx context.Context, project *domain.Project, description, author string) (*domain.Baseline, error) {
	existing, err := s.repo.ListBaselines(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("Create: listing baselines: %w", err)
	}

	b := &domain.Baseline{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		Version:     fmt.Sprintf("v%d.0", len(existing)+1),
		Budget:      project.Budget,
		Description: description,
		Author:      author,
		CreatedAt:   s.now(),
	}

	if err := s.repo.AppendBaseline(ctx, b); err != nil {
		return nil, fmt.Errorf("Create: appending baseline: %w", err)
	}
	if err := s.repo.SetCurrentBaseline(ctx, project.ID, b.ID); err != nil {
		return nil, fmt.Errorf("Create: setting current pointer: %w", err)
	}

	return b, nil
}

// RevertTo moves the current pointer to an existing baseline. History stays
// intact: baselines created after the target are preserved and remain
// revert targets themselves.
func (s *Store) RevertTo(ctx context.Context, projectID, baselineID string) (*domain.Baseline, error) {
	baselines, err := s.repo.ListBaselines(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("RevertTo: listing baselines: %w", err)
	}

	for _, b := range baselines {
		if b.ID == baselineID {
			if err := s.repo.SetCurrentBaseline(ctx, projectID, baselineID); err != nil {
				return nil, fmt.Errorf("RevertTo: setting current pointer: %w", err)
			}
			return b, nil
		}
	}
	return nil, fmt.Errorf("RevertTo: %w: %s", ErrNotFound, baselineID)
}

// List returns a project's baselines ordered oldest to newest.
func (s *Store) List(ctx context.Context, projectID string) ([]*domain.Baseline, error) {
	return s.repo.ListBaselines(ctx, projectID)
}

// Current resolves the currently effective baseline. When no pointer has
// been recorded the most recently created baseline is current by convention.
func (s *Store) Current(ctx context.Context, projectID string) (*domain.Baseline, error) {
	baselines, err := s.repo.ListBaselines(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("Current: listing baselines: %w", err)
	}
	if len(baselines) == 0 {
		return nil, fmt.Errorf("Current: %w for project %s", ErrNotFound, projectID)
	}

	currentID, err := s.repo.CurrentBaselineID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("Current: reading current pointer: %w", err)
	}
	if currentID == "" {
		return baselines[len(baselines)-1], nil
	}

	for _, b := range baselines {
		if b.ID == currentID {
			return b, nil
		}
	}
	return nil, fmt.Errorf("Current: %w: pointer %s has no snapshot", ErrNotFound, currentID)
}

// InitialBudget returns the budget of the first baseline ever created for the
// project. This figure anchors every "vs. initial" comparison and never
// changes once the first baseline exists.
func (s *Store) InitialBudget(ctx context.Context, projectID string) (float64, error) {
	baselines, err := s.repo.ListBaselines(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("InitialBudget: listing baselines: %w", err)
	}
	if len(baselines) == 0 {
		return 0, fmt.Errorf("InitialBudget: %w for project %s", ErrNotFound, projectID)
	}
	return baselines[0].Budget, nil
}
