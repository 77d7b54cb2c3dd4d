package repository

import (
	"context"

	"tokenforge/engine/internal/token/domain"
)

// Repository defines persistence for tokens.
type Repository interface {
	// Create persists a new token. Duplicate serials are an error.
	Create(ctx context.Context, t *domain.Token) error
	// GetBySerial returns the token for serial, or nil if not found. Returns
	// an error only for storage failures.
	GetBySerial(ctx context.Context, serial string) (*domain.Token, error)
	// ListByOwner returns all tokens owned by the given user in the realm.
	ListByOwner(ctx context.Context, ownerID, realm string) ([]*domain.Token, error)
	// Update persists all mutable fields of the token.
	Update(ctx context.Context, t *domain.Token) error
	// Delete removes the token by serial.
	Delete(ctx context.Context, serial string) error
}
