package repository

import (
	"context"
	"sync"

	"tokenforge/engine/internal/errs"
	"tokenforge/engine/internal/token/domain"
)

// MemoryRepository is an in-memory Repository implementation, used by tests
// and the seed tool. Safe for concurrent use.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.Token
}

// NewMemoryRepository returns a new in-memory token repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Token)}
}

// Create stores the token. Duplicate serials are rejected.
func (r *MemoryRepository) Create(ctx context.Context, t *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[t.Serial]; ok {
		return errs.Integrity("duplicate serial " + t.Serial)
	}
	r.m[t.Serial] = copyToken(t)
	return nil
}

// GetBySerial returns a copy of the token, or nil if not found.
func (r *MemoryRepository) GetBySerial(ctx context.Context, serial string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.m[serial]
	if !ok {
		return nil, nil
	}
	return copyToken(t), nil
}

// ListByOwner returns all tokens owned by ownerID in realm.
func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID, realm string) ([]*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Token
	for _, t := range r.m {
		if t.OwnerID == ownerID && t.Realm == realm {
			out = append(out, copyToken(t))
		}
	}
	return out, nil
}

// Update replaces the stored token. Unknown serials are an error.
func (r *MemoryRepository) Update(ctx context.Context, t *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[t.Serial]; !ok {
		return errs.Integrity("unknown serial " + t.Serial)
	}
	r.m[t.Serial] = copyToken(t)
	return nil
}

// Delete removes the token by serial.
func (r *MemoryRepository) Delete(ctx context.Context, serial string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, serial)
	return nil
}

func copyToken(t *domain.Token) *domain.Token {
	cp := *t
	cp.OTPKey = append([]byte(nil), t.OTPKey...)
	if t.Info != nil {
		cp.Info = make(map[string]string, len(t.Info))
		for k, v := range t.Info {
			cp.Info[k] = v
		}
	}
	return &cp
}
