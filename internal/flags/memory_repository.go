package flags

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository for
// testing and for deployments that do not persist overrides.
type InMemoryRepository struct {
	mu        sync.RWMutex
	overrides Partial
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{overrides: make(Partial)}
}

// NewInMemoryRepositoryWithOverrides creates a new in-memory repository
// seeded with the given overrides.
func NewInMemoryRepositoryWithOverrides(overrides Partial) *InMemoryRepository {
	repo := NewInMemoryRepository()
	for k, v := range overrides {
		repo.overrides[k] = v
	}
	return repo
}

// Overrides returns every persisted override.
func (r *InMemoryRepository) Overrides(_ context.Context) (Partial, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(Partial, len(r.overrides))
	for k, v := range r.overrides {
		out[k] = v
	}
	return out, nil
}

// SetOverride persists a single override.
func (r *InMemoryRepository) SetOverride(_ context.Context, key Key, value bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.overrides[key] = value
	return nil
}

// Clear removes all persisted overrides.
func (r *InMemoryRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.overrides = make(Partial)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
