package repository

import (
	"context"

	"tokenforge/engine/internal/container/domain"
)

// Repository defines persistence for containers and their token membership.
type Repository interface {
	// Create persists a new container. Duplicate serials are an error.
	Create(ctx context.Context, c *domain.Container) error
	// GetBySerial returns the container (with membership) for serial, or nil
	// if not found. Returns an error only for storage failures.
	GetBySerial(ctx context.Context, serial string) (*domain.Container, error)
	// AddToken records token membership. Adding an already-member token is an
	// error.
	AddToken(ctx context.Context, containerSerial, tokenSerial string) error
	// RemoveToken removes token membership. Removing a non-member is a no-op.
	RemoveToken(ctx context.Context, containerSerial, tokenSerial string) error
	// Delete removes the container and its membership rows; member tokens
	// themselves are untouched.
	Delete(ctx context.Context, serial string) error
}
