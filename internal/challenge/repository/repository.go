package repository

import (
	"context"
	"time"

	"tokenforge/engine/internal/challenge/domain"
)

// Repository defines persistence for challenges.
//
// Consume is the atomic primitive behind the consume-once invariant: it must
// mark the challenge consumed only if it is currently unconsumed and unexpired,
// in a single conditional update, and report whether this call won.
type Repository interface {
	Create(ctx context.Context, c *domain.Challenge) error
	// GetByTransaction returns the challenge for the transaction id, or nil if
	// not found. Returns an error only for storage failures.
	GetByTransaction(ctx context.Context, transactionID string) (*domain.Challenge, error)
	// ListOutstanding returns the unconsumed, unexpired challenges for a token
	// serial at time now.
	ListOutstanding(ctx context.Context, serial string, now time.Time) ([]*domain.Challenge, error)
	// Consume atomically marks the challenge consumed if it is unconsumed and
	// unexpired at now. Returns true when this call performed the transition.
	Consume(ctx context.Context, transactionID string, now time.Time) (bool, error)
	Delete(ctx context.Context, transactionID string) error
	// DeleteExpired removes challenges whose deadline passed before now and
	// returns how many were removed. Advisory housekeeping only.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
