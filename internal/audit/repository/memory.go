package repository

import (
	"context"
	"sync"

	"tokenforge/engine/internal/audit/domain"
)

// MemoryRepository is an in-memory audit log repository for tests.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

// NewMemoryRepository returns a new in-memory audit repository.
func NewMemoryRepository() *MemoryRepository { return &MemoryRepository{} }

// Create appends the audit entry.
func (r *MemoryRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

// ListByRealm returns entries for a realm, newest last (insertion order).
func (r *MemoryRepository) ListByRealm(ctx context.Context, realm string, limit int32) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditLog
	for _, e := range r.entries {
		if e.Realm == realm {
			cp := *e
			out = append(out, &cp)
		}
		if limit > 0 && int32(len(out)) >= limit {
			break
		}
	}
	return out, nil
}
