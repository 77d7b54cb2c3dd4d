package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tokenforge/engine/internal/challenge/domain"
)

// PostgresRepository persists challenges in the challenges table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a challenge repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the challenge. The challenge must have TransactionID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Challenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO challenges (transaction_id, serial, value, data, session, consumed, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.TransactionID, c.Serial, c.Value, c.Data, c.Session, c.Consumed, c.ExpiresAt, c.CreatedAt,
	)
	return err
}

// GetByTransaction returns the challenge for the transaction id, or nil if not found.
func (r *PostgresRepository) GetByTransaction(ctx context.Context, transactionID string) (*domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT transaction_id, serial, value, data, session, consumed, expires_at, created_at
		FROM challenges WHERE transaction_id = $1`, transactionID)
	c, err := scanChallenge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// ListOutstanding returns unconsumed, unexpired challenges for serial at now.
func (r *PostgresRepository) ListOutstanding(ctx context.Context, serial string, now time.Time) ([]*domain.Challenge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT transaction_id, serial, value, data, session, consumed, expires_at, created_at
		FROM challenges
		WHERE serial = $1 AND consumed = FALSE AND expires_at > $2
		ORDER BY created_at`, serial, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Consume marks the challenge consumed in a single conditional update. The
// WHERE clause carries the whole consume-once invariant; concurrent callers
// race on the row update and exactly one sees RowsAffected == 1.
func (r *PostgresRepository) Consume(ctx context.Context, transactionID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE challenges SET consumed = TRUE
		WHERE transaction_id = $1 AND consumed = FALSE AND expires_at > $2`,
		transactionID, now,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete removes the challenge by transaction id.
func (r *PostgresRepository) Delete(ctx context.Context, transactionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM challenges WHERE transaction_id = $1`, transactionID)
	return err
}

// DeleteExpired removes challenges whose deadline passed before now, and
// challenges whose token no longer exists.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM challenges
		WHERE expires_at <= $1
		   OR NOT EXISTS (SELECT 1 FROM tokens t WHERE t.serial = challenges.serial)`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row rowScanner) (*domain.Challenge, error) {
	var c domain.Challenge
	if err := row.Scan(&c.TransactionID, &c.Serial, &c.Value, &c.Data, &c.Session,
		&c.Consumed, &c.ExpiresAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
