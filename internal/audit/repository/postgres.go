package repository

import (
	"context"
	"database/sql"

	"tokenforge/engine/internal/audit/domain"
)

// PostgresRepository persists audit logs in the audit_logs table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit entry.
func (r *PostgresRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, realm, user_id, action, resource, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.Realm, entry.UserID, entry.Action, entry.Resource, entry.Metadata, entry.CreatedAt,
	)
	return err
}

// ListByRealm returns audit entries for a realm, newest first.
func (r *PostgresRepository) ListByRealm(ctx context.Context, realm string, limit int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, realm, user_id, action, resource, metadata, created_at
		FROM audit_logs WHERE realm = $1 ORDER BY created_at DESC LIMIT $2`, realm, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var e domain.AuditLog
		if err := rows.Scan(&e.ID, &e.Realm, &e.UserID, &e.Action, &e.Resource, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
