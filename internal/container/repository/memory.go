package repository

import (
	"context"
	"sync"

	"tokenforge/engine/internal/container/domain"
	"tokenforge/engine/internal/errs"
)

// MemoryRepository is an in-memory Repository implementation, used by tests
// and the seed tool. Safe for concurrent use.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.Container
}

// NewMemoryRepository returns a new in-memory container repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Container)}
}

// Create stores the container. Duplicate serials are rejected.
func (r *MemoryRepository) Create(ctx context.Context, c *domain.Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[c.Serial]; ok {
		return errs.Integrity("duplicate serial " + c.Serial)
	}
	r.m[c.Serial] = copyContainer(c)
	return nil
}

// GetBySerial returns a copy of the container, or nil if not found.
func (r *MemoryRepository) GetBySerial(ctx context.Context, serial string) (*domain.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[serial]
	if !ok {
		return nil, nil
	}
	return copyContainer(c), nil
}

// AddToken records token membership; duplicate adds are rejected.
func (r *MemoryRepository) AddToken(ctx context.Context, containerSerial, tokenSerial string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[containerSerial]
	if !ok {
		return errs.Integrity("unknown container " + containerSerial)
	}
	if c.Holds(tokenSerial) {
		return errs.Integrity("token " + tokenSerial + " already in container")
	}
	c.TokenSerials = append(c.TokenSerials, tokenSerial)
	return nil
}

// RemoveToken removes token membership; removing a non-member is a no-op.
func (r *MemoryRepository) RemoveToken(ctx context.Context, containerSerial, tokenSerial string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[containerSerial]
	if !ok {
		return errs.Integrity("unknown container " + containerSerial)
	}
	for i, s := range c.TokenSerials {
		if s == tokenSerial {
			c.TokenSerials = append(c.TokenSerials[:i], c.TokenSerials[i+1:]...)
			return nil
		}
	}
	return nil
}

// Delete removes the container.
func (r *MemoryRepository) Delete(ctx context.Context, serial string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, serial)
	return nil
}

func copyContainer(c *domain.Container) *domain.Container {
	cp := *c
	cp.TokenSerials = append([]string(nil), c.TokenSerials...)
	return &cp
}
