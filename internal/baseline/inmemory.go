package baseline

import (
	"context"
	"sort"
	"sync"

	"github.com/avolkov/pmo-budget/internal/domain"
)

// InMemoryRepository keeps baselines in process memory. Used in tests and
// for local runs without record-store credentials. Safe for concurrent use.
type InMemoryRepository struct {
	mu        sync.RWMutex
	baselines map[string][]*domain.Baseline // projectID -> snapshots
	current   map[string]string             // projectID -> baselineID
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		baselines: make(map[string][]*domain.Baseline),
		current:   make(map[string]string),
	}
}

// AppendBaseline implements Repository.
func (r *InMemoryRepository) AppendBaseline(ctx context.Context, b *domain.Baseline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *b
	r.baselines[b.ProjectID] = append(r.baselines[b.ProjectID], &copied)
	return nil
}

// ListBaselines implements Repository. Results are copies, oldest first.
func (r *InMemoryRepository) ListBaselines(ctx context.Context, projectID string) ([]*domain.Baseline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Baseline, 0, len(r.baselines[projectID]))
	for _, b := range r.baselines[projectID] {
		copied := *b
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SetCurrentBaseline implements Repository.
func (r *InMemoryRepository) SetCurrentBaseline(ctx context.Context, projectID, baselineID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current[projectID] = baselineID
	return nil
}

// CurrentBaselineID implements Repository.
func (r *InMemoryRepository) CurrentBaselineID(ctx context.Context, projectID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.current[projectID], nil
}

var _ Repository = (*InMemoryRepository)(nil)
