package repository

import (
	"context"
	"sort"
	"sync"

	"tokenforge/engine/internal/container/domain"
	"tokenforge/engine/internal/errs"
)

// MemoryTemplateRepository is an in-memory TemplateRepository implementation,
// used by tests. Safe for concurrent use.
type MemoryTemplateRepository struct {
	mu sync.Mutex
	m  map[string]*domain.Template
}

// NewMemoryTemplateRepository returns a new in-memory template repository.
func NewMemoryTemplateRepository() *MemoryTemplateRepository {
	return &MemoryTemplateRepository{m: make(map[string]*domain.Template)}
}

// Create stores the template. Duplicate names are rejected.
func (r *MemoryTemplateRepository) Create(ctx context.Context, tpl *domain.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[tpl.Name]; ok {
		return errs.Integrity("duplicate template " + tpl.Name)
	}
	r.m[tpl.Name] = copyTemplate(tpl)
	return nil
}

// GetByName returns a copy of the template, or nil if not found.
func (r *MemoryTemplateRepository) GetByName(ctx context.Context, name string) (*domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.m[name]
	if !ok {
		return nil, nil
	}
	return copyTemplate(tpl), nil
}

// List returns the templates for a container type, ordered by name.
func (r *MemoryTemplateRepository) List(ctx context.Context, containerType string) ([]*domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Template
	for _, tpl := range r.m {
		if containerType == "" || tpl.ContainerType == containerType {
			out = append(out, copyTemplate(tpl))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ClearDefault drops the default flag from all templates of the type.
func (r *MemoryTemplateRepository) ClearDefault(ctx context.Context, containerType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tpl := range r.m {
		if tpl.ContainerType == containerType {
			tpl.Default = false
		}
	}
	return nil
}

// Delete removes the template.
func (r *MemoryTemplateRepository) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, name)
	return nil
}

func copyTemplate(tpl *domain.Template) *domain.Template {
	cp := *tpl
	cp.Tokens = append([]domain.TokenTemplate(nil), tpl.Tokens...)
	if tpl.Options != nil {
		cp.Options = make(map[string]string, len(tpl.Options))
		for k, v := range tpl.Options {
			cp.Options[k] = v
		}
	}
	return &cp
}
