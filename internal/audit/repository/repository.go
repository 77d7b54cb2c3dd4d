package repository

import (
	"context"

	"tokenforge/engine/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	// ListByRealm returns audit entries for a realm, newest first, up to limit.
	ListByRealm(ctx context.Context, realm string, limit int32) ([]*domain.AuditLog, error)
}
