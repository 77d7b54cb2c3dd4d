package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tokenforge/engine/internal/container/domain"
)

// PostgresRepository persists containers in the containers table and
// membership in the container_tokens join table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a container repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the container. The container must have Serial and Type set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Container) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO containers (serial, type, description, owner_id, realm, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.Serial, c.Type, c.Description, c.OwnerID, c.Realm, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// GetBySerial returns the container with its membership, or nil if not found.
func (r *PostgresRepository) GetBySerial(ctx context.Context, serial string) (*domain.Container, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT serial, type, description, owner_id, realm, created_at, updated_at
		FROM containers WHERE serial = $1`, serial)
	var c domain.Container
	err := row.Scan(&c.Serial, &c.Type, &c.Description, &c.OwnerID, &c.Realm, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT token_serial FROM container_tokens WHERE container_serial = $1 ORDER BY added_at`, serial)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ts string
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		c.TokenSerials = append(c.TokenSerials, ts)
	}
	return &c, rows.Err()
}

// AddToken records token membership. The primary key on (container_serial,
// token_serial) rejects duplicate adds.
func (r *PostgresRepository) AddToken(ctx context.Context, containerSerial, tokenSerial string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO container_tokens (container_serial, token_serial, added_at)
		VALUES ($1, $2, $3)`,
		containerSerial, tokenSerial, time.Now().UTC(),
	)
	return err
}

// RemoveToken removes token membership.
func (r *PostgresRepository) RemoveToken(ctx context.Context, containerSerial, tokenSerial string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM container_tokens WHERE container_serial = $1 AND token_serial = $2`,
		containerSerial, tokenSerial,
	)
	return err
}

// Delete removes the container and its membership rows.
func (r *PostgresRepository) Delete(ctx context.Context, serial string) error {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM container_tokens WHERE container_serial = $1`, serial); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM containers WHERE serial = $1`, serial)
	return err
}
