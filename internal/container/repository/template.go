package repository

import (
	"context"

	"tokenforge/engine/internal/container/domain"
)

// TemplateRepository defines persistence for container templates.
type TemplateRepository interface {
	// Create persists a new template. Duplicate names are an error.
	Create(ctx context.Context, tpl *domain.Template) error
	// GetByName returns the template for name, or nil if not found. Returns
	// an error only for storage failures.
	GetByName(ctx context.Context, name string) (*domain.Template, error)
	// List returns templates for a container type, ordered by name. An empty
	// containerType lists all templates.
	List(ctx context.Context, containerType string) ([]*domain.Template, error)
	// ClearDefault drops the default flag from all templates of the container
	// type, so a new default can take over.
	ClearDefault(ctx context.Context, containerType string) error
	// Delete removes the template. Deleting an unknown name is a no-op.
	Delete(ctx context.Context, name string) error
}
