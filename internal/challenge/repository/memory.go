package repository

import (
	"context"
	"sync"
	"time"

	"tokenforge/engine/internal/challenge/domain"
	"tokenforge/engine/internal/errs"
)

// MemoryRepository is an in-memory Repository implementation, used by tests
// and the seed tool. Safe for concurrent use.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.Challenge
}

// NewMemoryRepository returns a new in-memory challenge repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Challenge)}
}

// Create stores the challenge. Duplicate transaction ids are rejected.
func (r *MemoryRepository) Create(ctx context.Context, c *domain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[c.TransactionID]; ok {
		return errs.Integrity("duplicate transaction id " + c.TransactionID)
	}
	cp := *c
	r.m[c.TransactionID] = &cp
	return nil
}

// GetByTransaction returns a copy of the challenge, or nil if not found.
func (r *MemoryRepository) GetByTransaction(ctx context.Context, transactionID string) (*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// ListOutstanding returns unconsumed, unexpired challenges for serial at now.
func (r *MemoryRepository) ListOutstanding(ctx context.Context, serial string, now time.Time) ([]*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Challenge
	for _, c := range r.m {
		if c.Serial == serial && c.Outstanding(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Consume performs the conditional consumed transition under the repository
// lock, mirroring the single UPDATE of the postgres implementation.
func (r *MemoryRepository) Consume(ctx context.Context, transactionID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[transactionID]
	if !ok || c.Consumed || c.Expired(now) {
		return false, nil
	}
	c.Consumed = true
	return true, nil
}

// Delete removes the challenge by transaction id.
func (r *MemoryRepository) Delete(ctx context.Context, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, transactionID)
	return nil
}

// DeleteExpired removes challenges whose deadline passed before now.
func (r *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, c := range r.m {
		if c.Expired(now) {
			delete(r.m, id)
			n++
		}
	}
	return n, nil
}
